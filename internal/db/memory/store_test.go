package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newRequest(stage models.Stage, created time.Time) *models.MaintenanceRequest {
	return &models.MaintenanceRequest{
		Subject:           "Check spindle",
		Description:       "noise at high rpm",
		Type:              models.TypeCorrective,
		Priority:          models.PriorityHigh,
		Stage:             stage,
		Equipment:         primitive.NewObjectID(),
		EquipmentCategory: models.CategoryCNCMachine,
		AssignedTeam:      primitive.NewObjectID(),
		RequestedBy:       primitive.NewObjectID(),
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func TestRequestCollection_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewRequestCollection()
	r := newRequest(models.StageNew, base)
	require.NoError(t, c.InsertRequest(ctx, r))

	r.Subject = "mutated after insert"
	got, err := c.FindRequestByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Check spindle", got.Subject)

	got.Subject = "mutated after read"
	again, err := c.FindRequestByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Check spindle", again.Subject)
	assert.NotNil(t, again.Notes)
}

func TestRequestCollection_FindSortAndPaginate(t *testing.T) {
	ctx := context.Background()
	c := NewRequestCollection()
	var ids []primitive.ObjectID
	for i := 0; i < 5; i++ {
		r := newRequest(models.StageNew, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, c.InsertRequest(ctx, r))
		ids = append(ids, r.ID)
	}

	page, err := c.FindRequests(ctx, models.RequestFilter{}, db.FindOptions{Limit: 2, Skip: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	past, err := c.FindRequests(ctx, models.RequestFilter{}, db.FindOptions{Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, past)

	n, err := c.CountRequests(ctx, models.RequestFilter{Stages: []models.Stage{models.StageNew}})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestRequestCollection_ScheduledSort(t *testing.T) {
	ctx := context.Background()
	c := NewRequestCollection()
	late := newRequest(models.StageNew, base)
	lateDate := base.Add(48 * time.Hour)
	late.ScheduledDate = &lateDate
	early := newRequest(models.StageNew, base)
	earlyDate := base.Add(24 * time.Hour)
	early.ScheduledDate = &earlyDate
	require.NoError(t, c.InsertRequest(ctx, late))
	require.NoError(t, c.InsertRequest(ctx, early))

	got, err := c.FindRequests(ctx, models.RequestFilter{ScheduledOnly: true}, db.FindOptions{Sort: db.SortScheduledAsc})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)
}

func TestRequestCollection_UpdateStampsOnce(t *testing.T) {
	ctx := context.Background()
	c := NewRequestCollection()
	r := newRequest(models.StageNew, base)
	require.NoError(t, c.InsertRequest(ctx, r))

	t1 := base.Add(time.Hour)
	updated, err := c.UpdateRequest(ctx, r.ID,
		bson.M{"stage": models.StageInProgress, "updated_at": t1},
		map[string]time.Time{models.FieldActualStartDate: t1})
	require.NoError(t, err)
	assert.Equal(t, models.StageInProgress, updated.Stage)
	require.NotNil(t, updated.ActualStartDate)
	assert.True(t, t1.Equal(*updated.ActualStartDate))

	t2 := t1.Add(time.Hour)
	updated, err = c.UpdateRequest(ctx, r.ID,
		bson.M{"stage": models.StageInProgress, "duration": 2.5},
		map[string]time.Time{models.FieldActualStartDate: t2})
	require.NoError(t, err)
	assert.True(t, t1.Equal(*updated.ActualStartDate))
	assert.Equal(t, 2.5, updated.Duration)
	assert.Equal(t, "Check spindle", updated.Subject)

	_, err = c.UpdateRequest(ctx, primitive.NewObjectID(), bson.M{"stage": models.StageNew}, nil)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRequestCollection_PushAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewRequestCollection()
	r := newRequest(models.StageNew, base)
	require.NoError(t, c.InsertRequest(ctx, r))

	note := models.Note{ID: primitive.NewObjectID(), Content: "ordered parts", AddedBy: r.RequestedBy, AddedAt: base}
	updated, err := c.PushNote(ctx, r.ID, note, base)
	require.NoError(t, err)
	require.Len(t, updated.Notes, 1)
	assert.Equal(t, "ordered parts", updated.Notes[0].Content)

	att := models.Attachment{ID: primitive.NewObjectID(), Filename: "a.png", Path: "requests/x/a.png"}
	updated, err = c.PushAttachment(ctx, r.ID, att, base)
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 1)

	removed, err := c.DeleteRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, removed.Attachments, 1)

	_, err = c.DeleteRequest(ctx, r.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestEquipmentCollection_UniqueSerial(t *testing.T) {
	ctx := context.Background()
	c := NewEquipmentCollection()
	a := &models.Equipment{Name: "Lathe-1", SerialNumber: "SN-100"}
	b := &models.Equipment{Name: "Lathe-2", SerialNumber: "SN-200"}
	require.NoError(t, c.InsertEquipment(ctx, a))
	require.NoError(t, c.InsertEquipment(ctx, b))

	err := c.InsertEquipment(ctx, &models.Equipment{Name: "Copy", SerialNumber: "SN-100"})
	assert.ErrorIs(t, err, db.ErrDuplicateKey)

	_, err = c.UpdateEquipment(ctx, b.ID, bson.M{"serial_number": "SN-100"})
	assert.ErrorIs(t, err, db.ErrDuplicateKey)

	updated, err := c.UpdateEquipment(ctx, b.ID, bson.M{"serial_number": "SN-300"})
	require.NoError(t, err)
	assert.Equal(t, "SN-300", updated.SerialNumber)
	assert.Equal(t, "Lathe-2", updated.Name)

	found, err := c.FindEquipmentByIDs(ctx, []primitive.ObjectID{a.ID, a.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestTeamCollection_Members(t *testing.T) {
	ctx := context.Background()
	c := NewTeamCollection()
	team := &models.MaintenanceTeam{Name: "Mechanics", Specialization: models.SpecializationMechanics}
	require.NoError(t, c.InsertTeam(ctx, team))

	user := primitive.NewObjectID()
	m := models.TeamMember{User: user, Role: models.MemberTechnician, JoinedAt: base}
	updated, err := c.AddMember(ctx, team.ID, m, base)
	require.NoError(t, err)
	assert.Len(t, updated.Members, 1)

	_, err = c.AddMember(ctx, team.ID, m, base)
	assert.ErrorIs(t, err, db.ErrAlreadyMember)

	_, err = c.AddMember(ctx, primitive.NewObjectID(), m, base)
	assert.ErrorIs(t, err, db.ErrNotFound)

	updated, err = c.RemoveMember(ctx, team.ID, primitive.NewObjectID(), base)
	require.NoError(t, err)
	assert.Len(t, updated.Members, 1)

	updated, err = c.RemoveMember(ctx, team.ID, user, base)
	require.NoError(t, err)
	assert.Empty(t, updated.Members)

	assert.ErrorIs(t, c.InsertTeam(ctx, &models.MaintenanceTeam{Name: "Mechanics"}), db.ErrDuplicateKey)
}

func TestTeamCollection_ConcurrentAddMember(t *testing.T) {
	ctx := context.Background()
	c := NewTeamCollection()
	team := &models.MaintenanceTeam{Name: "IT", Specialization: models.SpecializationIT}
	require.NoError(t, c.InsertTeam(ctx, team))

	user := primitive.NewObjectID()
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.AddMember(ctx, team.ID, models.TeamMember{User: user, Role: models.MemberTechnician}, base)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestUserCollection(t *testing.T) {
	ctx := context.Background()
	c := NewUserCollection()
	require.NoError(t, c.InsertUser(ctx, &models.User{Name: "Zed", Email: "zed@example.com", Role: models.RoleTechnician}))
	amy := &models.User{Name: "Amy", Email: "amy@example.com", Role: models.RoleTechnician}
	require.NoError(t, c.InsertUser(ctx, amy))
	require.NoError(t, c.InsertUser(ctx, &models.User{Name: "Bob", Email: "bob@example.com", Role: models.RoleManager}))

	assert.ErrorIs(t, c.InsertUser(ctx, &models.User{Name: "Dup", Email: "amy@example.com"}), db.ErrDuplicateKey)

	found, err := c.FindUserByEmail(ctx, "amy@example.com")
	require.NoError(t, err)
	assert.Equal(t, amy.ID, found.ID)

	_, err = c.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, db.ErrNotFound)

	techs, err := c.FindUsers(ctx, models.RoleTechnician)
	require.NoError(t, err)
	require.Len(t, techs, 2)
	assert.Equal(t, "Amy", techs[0].Name)

	require.NoError(t, c.UpdateLastLogin(ctx, amy.ID, base))
	found, err = c.FindUserByID(ctx, amy.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.True(t, base.Equal(*found.LastLogin))
}

func TestCalendarEventCollection_Window(t *testing.T) {
	ctx := context.Background()
	c := NewCalendarEventCollection()
	for i := 3; i >= 0; i-- {
		e := &models.CalendarEvent{Title: "event", Start: base.AddDate(0, 0, i), Priority: models.PriorityLow, Stage: models.EventPlanned}
		require.NoError(t, c.InsertEvent(ctx, e))
	}

	all, err := c.FindEvents(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].Start.Before(all[1].Start))

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 2)
	window, err := c.FindEvents(ctx, &from, &to)
	require.NoError(t, err)
	assert.Len(t, window, 2)

	updated, err := c.UpdateEvent(ctx, all[0].ID, bson.M{"stage": models.EventDone})
	require.NoError(t, err)
	assert.Equal(t, models.EventDone, updated.Stage)

	require.NoError(t, c.DeleteEvent(ctx, all[0].ID))
	assert.ErrorIs(t, c.DeleteEvent(ctx, all[0].ID), db.ErrNotFound)
}
