package maintenance

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/db/memory"
	"github.com/ukydev/gearguard/internal/events"
	"github.com/ukydev/gearguard/internal/models"
	"github.com/ukydev/gearguard/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc        *Service
	store      *db.Store
	now        time.Time
	requester  models.User
	technician models.User
	team       models.MaintenanceTeam
	equipment  models.Equipment
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store: memory.NewStore(),
		now:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = NewService(f.store, opts...)

	f.requester = models.User{Name: "Rita Requester", Email: "rita@example.com", Role: models.RoleEmployee, IsActive: true}
	f.technician = models.User{Name: "Tom Tech", Email: "tom@example.com", Role: models.RoleTechnician, IsActive: true}
	require.NoError(t, f.store.Users.InsertUser(ctx, &f.requester))
	require.NoError(t, f.store.Users.InsertUser(ctx, &f.technician))

	f.team = models.MaintenanceTeam{
		Name:           "Mechanics A",
		Specialization: models.SpecializationMechanics,
		Members:        []models.TeamMember{{User: f.technician.ID, Role: models.MemberTechnician, JoinedAt: f.now}},
		IsActive:       true,
		CreatedAt:      f.now,
	}
	require.NoError(t, f.store.Teams.InsertTeam(ctx, &f.team))

	f.equipment = models.Equipment{
		Name:            "Lathe-1",
		SerialNumber:    "SN-001",
		Category:        models.CategoryCNCMachine,
		Department:      "Production",
		MaintenanceTeam: &f.team.ID,
		PurchaseDate:    f.now.AddDate(-2, 0, 0),
		Location:        "Hall 1",
		Status:          models.StatusOperational,
		CreatedAt:       f.now,
	}
	require.NoError(t, f.store.Equipment.InsertEquipment(ctx, &f.equipment))
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// createRequest fills the required fields of in that are unset and creates it.
func (f *fixture) createRequest(t *testing.T, in RequestInput) *models.RequestDetail {
	t.Helper()
	if in.Subject == nil {
		in.Subject = ptr("Leaking oil")
	}
	if in.Description == nil {
		in.Description = ptr("Oil pooling under the spindle")
	}
	if in.Type == nil {
		in.Type = ptr(models.TypeCorrective)
	}
	if in.Equipment == nil {
		in.Equipment = ptr(f.equipment.ID.Hex())
	}
	if in.RequestedBy == nil {
		in.RequestedBy = ptr(f.requester.ID.Hex())
	}
	d, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	f.advance(time.Minute)
	return d
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func eventOfType(t events.Type) interface{} {
	return mock.MatchedBy(func(e events.Event) bool { return e.Type == t })
}

func TestCreate_DefaultsFromEquipment(t *testing.T) {
	f := newFixture(t)

	d := f.createRequest(t, RequestInput{})

	assert.Equal(t, models.StageNew, d.Stage)
	assert.Equal(t, models.PriorityMedium, d.Priority)
	assert.Equal(t, models.CategoryCNCMachine, d.EquipmentCategory)
	assert.Equal(t, f.team.ID, d.AssignedTeam.ID)
	assert.Equal(t, "Mechanics A", d.AssignedTeam.Name)
	assert.Equal(t, "Lathe-1", d.Equipment.Name)
	assert.Equal(t, "Rita Requester", d.RequestedBy.Name)
	assert.Nil(t, d.AssignedTechnician)
	assert.Nil(t, d.ActualStartDate)
	assert.Nil(t, d.CompletionDate)
	assert.Empty(t, d.Notes)
	assert.NotNil(t, d.Attachments)
	assert.False(t, d.IsOverdue)
}

func TestCreate_IgnoresSuppliedStage(t *testing.T) {
	f := newFixture(t)
	d := f.createRequest(t, RequestInput{Stage: ptr(models.StageRepaired)})
	assert.Equal(t, models.StageNew, d.Stage)
	assert.Nil(t, d.CompletionDate)
}

func TestCreate_DefaultTechnicianFromEquipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Equipment.UpdateEquipment(ctx, f.equipment.ID, bson.M{"default_technician": f.technician.ID})
	require.NoError(t, err)

	d := f.createRequest(t, RequestInput{})
	require.NotNil(t, d.AssignedTechnician)
	assert.Equal(t, "Tom Tech", d.AssignedTechnician.Name)
}

func TestCreate_ExplicitTeamWins(t *testing.T) {
	f := newFixture(t)
	other := models.MaintenanceTeam{Name: "Electrical", Specialization: models.SpecializationElectrician, IsActive: true}
	require.NoError(t, f.store.Teams.InsertTeam(context.Background(), &other))

	d := f.createRequest(t, RequestInput{AssignedTeam: ptr(other.ID.Hex())})
	assert.Equal(t, other.ID, d.AssignedTeam.ID)
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bare := models.Equipment{
		Name: "Printer-9", SerialNumber: "SN-900", Category: models.CategoryPrinter,
		Department: "Office", PurchaseDate: f.now, Location: "Floor 2", Status: models.StatusOperational,
	}
	require.NoError(t, f.store.Equipment.InsertEquipment(ctx, &bare))

	valid := func() RequestInput {
		return RequestInput{
			Subject:     ptr("Jammed"),
			Description: ptr("Paper jam in tray 2"),
			Type:        ptr(models.TypeCorrective),
			Equipment:   ptr(f.equipment.ID.Hex()),
			RequestedBy: ptr(f.requester.ID.Hex()),
		}
	}
	missing := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		mutate func(*RequestInput)
		kind   error
		msg    string
	}{
		{"no equipment", func(in *RequestInput) { in.Equipment = nil }, ErrValidation, "equipment is required"},
		{"malformed equipment id", func(in *RequestInput) { in.Equipment = ptr("nope") }, ErrValidation, "not a valid id"},
		{"unknown equipment", func(in *RequestInput) { in.Equipment = ptr(missing) }, ErrNotFound, "equipment not found"},
		{"equipment without team", func(in *RequestInput) { in.Equipment = ptr(bare.ID.Hex()) }, ErrValidation, "assigned team is required"},
		{"unknown team", func(in *RequestInput) { in.AssignedTeam = ptr(missing) }, ErrNotFound, "maintenance team not found"},
		{"unknown technician", func(in *RequestInput) { in.AssignedTechnician = ptr(missing) }, ErrNotFound, "technician not found"},
		{"unknown requester", func(in *RequestInput) { in.RequestedBy = ptr(missing) }, ErrNotFound, "requesting user not found"},
		{"no requester", func(in *RequestInput) { in.RequestedBy = nil }, ErrValidation, "requested by is required"},
		{"bad type", func(in *RequestInput) { in.Type = ptr(models.RequestType("Urgent")) }, ErrValidation, "type must be"},
		{"no subject", func(in *RequestInput) { in.Subject = nil }, ErrValidation, "subject is required"},
		{"negative duration", func(in *RequestInput) { in.Duration = ptr(-2.0) }, ErrValidation, "duration"},
		{"bad scheduled date", func(in *RequestInput) { in.ScheduledDate = ptr("next tuesday") }, ErrValidation, "scheduledDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := f.svc.Create(ctx, in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, PublicMessage(err), tt.msg)
		})
	}

	n, err := f.store.Requests.CountRequests(ctx, models.RequestFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "failed creates must not persist anything")
}

func TestCategorySnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{})

	_, err := f.svc.UpdateEquipment(ctx, f.equipment.ID.Hex(), EquipmentInput{Category: ptr(models.CategoryVehicle)})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, d.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.CategoryCNCMachine, got.EquipmentCategory)
}

func TestUpdate_Partial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{})

	laptop := models.Equipment{
		Name: "Laptop-7", SerialNumber: "SN-777", Category: models.CategoryComputer,
		Department: "IT", PurchaseDate: f.now, Location: "Desk 4", Status: models.StatusOperational,
	}
	require.NoError(t, f.store.Equipment.InsertEquipment(ctx, &laptop))

	got, err := f.svc.Update(ctx, d.ID.Hex(), RequestInput{
		Priority:  ptr(models.PriorityHigh),
		Equipment: ptr(laptop.ID.Hex()),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, "Leaking oil", got.Subject, "absent fields are kept")
	assert.Equal(t, laptop.ID, got.Equipment.ID)
	assert.Equal(t, models.CategoryComputer, got.EquipmentCategory)
	assert.Equal(t, f.team.ID, got.AssignedTeam.ID)

	_, err = f.svc.Update(ctx, d.ID.Hex(), RequestInput{Priority: ptr(models.Priority("Whenever"))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Update(ctx, primitive.NewObjectID().Hex(), RequestInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_StageStampsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{})
	t0 := f.now

	got, err := f.svc.Update(ctx, d.ID.Hex(), RequestInput{Stage: ptr(models.StageInProgress)})
	require.NoError(t, err)
	require.NotNil(t, got.ActualStartDate)
	assert.True(t, got.ActualStartDate.Equal(t0))

	f.advance(time.Hour)
	got, err = f.svc.Update(ctx, d.ID.Hex(), RequestInput{Stage: ptr(models.StageInProgress)})
	require.NoError(t, err)
	assert.True(t, got.ActualStartDate.Equal(t0))
}

func TestChangeStage_StampsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRequest(t, RequestInput{}).ID.Hex()

	t0 := f.now
	d, err := f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(models.StageInProgress)})
	require.NoError(t, err)
	require.NotNil(t, d.ActualStartDate)
	assert.True(t, d.ActualStartDate.Equal(t0))
	assert.Nil(t, d.CompletionDate)

	f.advance(time.Hour)
	_, err = f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(models.StageNew)})
	require.NoError(t, err)

	f.advance(time.Hour)
	d, err = f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(models.StageInProgress)})
	require.NoError(t, err)
	assert.True(t, d.ActualStartDate.Equal(t0), "re-entering In Progress keeps the first start")

	f.advance(time.Hour)
	t2 := f.now
	d, err = f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(models.StageRepaired), Duration: ptr(3.5)})
	require.NoError(t, err)
	require.NotNil(t, d.CompletionDate)
	assert.True(t, d.CompletionDate.Equal(t2))
	assert.Equal(t, 3.5, d.Duration)

	f.advance(time.Hour)
	d, err = f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(models.StageScrap)})
	require.NoError(t, err)
	assert.Equal(t, models.StageScrap, d.Stage)
	assert.True(t, d.CompletionDate.Equal(t2), "completion is never moved")
	assert.Equal(t, 3.5, d.Duration, "duration is kept when absent")
}

func TestChangeStage_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createRequest(t, RequestInput{}).ID.Hex()

	_, err := f.svc.ChangeStage(ctx, id, StageInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(models.Stage("Done"))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(models.StageRepaired), Duration: ptr(-1.0)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ChangeStage(ctx, primitive.NewObjectID().Hex(), StageInput{Stage: ptr(models.StageRepaired)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ChangeStage(ctx, "xyz", StageInput{Stage: ptr(models.StageRepaired)})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StageNew, got.Stage, "rejected transitions change nothing")
}

func TestOverdue_DerivedAtReadTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{ScheduledDate: ptr("2024-05-30")})
	assert.True(t, d.IsOverdue)

	moved, err := f.svc.ChangeStage(ctx, d.ID.Hex(), StageInput{Stage: ptr(models.StageInProgress)})
	require.NoError(t, err)
	assert.False(t, moved.IsOverdue)

	future := f.createRequest(t, RequestInput{ScheduledDate: ptr("2024-06-10T08:00")})
	assert.False(t, future.IsOverdue)

	f.now = time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	got, err := f.svc.Get(ctx, future.ID.Hex())
	require.NoError(t, err)
	assert.True(t, got.IsOverdue, "the clock moving past the schedule makes it overdue")
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, s := range []string{"first", "second", "third"} {
		f.createRequest(t, RequestInput{Subject: ptr(s)})
	}

	page, err := f.svc.List(ctx, models.RequestFilter{}, models.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.Equal(t, int64(1), page.CurrentPage)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "third", page.Items[0].Subject)
	assert.Equal(t, "second", page.Items[1].Subject)

	page, err = f.svc.List(ctx, models.RequestFilter{}, models.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "first", page.Items[0].Subject)

	_, err = f.svc.List(ctx, models.RequestFilter{Stages: []models.Stage{"Parked"}}, models.PageRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDelete(t *testing.T) {
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	f := newFixture(t, WithBlobStore(blobs))
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{})

	withFile, err := f.svc.AddAttachment(ctx, d.ID.Hex(), Upload{
		Filename: "photo.JPG", ContentType: "image/jpeg", Size: 4, Body: strings.NewReader("jpeg"),
	})
	require.NoError(t, err)
	key := withFile.Attachments[0].Path

	require.NoError(t, f.svc.Delete(ctx, d.ID.Hex()))

	_, err = f.svc.Get(ctx, d.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = blobs.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound, "attachment content is removed with the request")

	assert.ErrorIs(t, f.svc.Delete(ctx, d.ID.Hex()), ErrNotFound)
}

func TestAddNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{})

	got, err := f.svc.AddNote(ctx, d.ID.Hex(), NoteInput{Content: ptr("  Replaced seal  "), AddedBy: ptr(f.technician.ID.Hex())})
	require.NoError(t, err)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Replaced seal", got.Notes[0].Content)
	assert.Equal(t, "Tom Tech", got.Notes[0].AddedBy.Name)

	_, err = f.svc.ChangeStage(ctx, d.ID.Hex(), StageInput{Stage: ptr(models.StageScrap)})
	require.NoError(t, err)
	got, err = f.svc.AddNote(ctx, d.ID.Hex(), NoteInput{Content: ptr("Written off"), AddedBy: ptr(f.requester.ID.Hex())})
	require.NoError(t, err, "notes are accepted in any stage")
	assert.Len(t, got.Notes, 2)

	_, err = f.svc.AddNote(ctx, d.ID.Hex(), NoteInput{Content: ptr("   "), AddedBy: ptr(f.requester.ID.Hex())})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.AddNote(ctx, d.ID.Hex(), NoteInput{Content: ptr("hi"), AddedBy: ptr(primitive.NewObjectID().Hex())})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AddNote(ctx, primitive.NewObjectID().Hex(), NoteInput{Content: ptr("hi"), AddedBy: ptr(f.requester.ID.Hex())})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachments(t *testing.T) {
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	f := newFixture(t, WithBlobStore(blobs))
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{})

	got, err := f.svc.AddAttachment(ctx, d.ID.Hex(), Upload{
		Filename:   "manual.pdf",
		Size:       7,
		Body:       strings.NewReader("%PDF-1."),
		UploadedBy: f.technician.ID,
	})
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)
	a := got.Attachments[0]
	assert.Equal(t, "manual.pdf", a.OriginalName)
	assert.Equal(t, "application/octet-stream", a.ContentType)
	assert.True(t, strings.HasPrefix(a.Path, "requests/"+d.ID.Hex()+"/"))
	assert.True(t, strings.HasSuffix(a.Path, ".pdf"))

	meta, body, err := f.svc.OpenAttachment(ctx, d.ID.Hex(), a.ID.Hex())
	require.NoError(t, err)
	defer body.Close()
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.", string(content))
	assert.Equal(t, a.ID, meta.ID)

	_, _, err = f.svc.OpenAttachment(ctx, d.ID.Hex(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AddAttachment(ctx, primitive.NewObjectID().Hex(), Upload{Filename: "x.txt", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachments_NotConfigured(t *testing.T) {
	f := newFixture(t)
	d := f.createRequest(t, RequestInput{})
	_, err := f.svc.AddAttachment(context.Background(), d.ID.Hex(), Upload{Filename: "a.txt", Body: strings.NewReader("a")})
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, "internal server error", PublicMessage(err))
}

func TestEventsArePublished(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, eventOfType(events.RequestCreated)).Return(nil).Once()
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.Type == events.RequestStageChanged &&
			e.Stage == models.StageInProgress &&
			e.PreviousStage == models.StageNew
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything, eventOfType(events.RequestDeleted)).Return(errors.New("broker down")).Once()

	f := newFixture(t, WithPublisher(pub))
	ctx := context.Background()
	d := f.createRequest(t, RequestInput{})
	_, err := f.svc.ChangeStage(ctx, d.ID.Hex(), StageInput{Stage: ptr(models.StageInProgress)})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, d.ID.Hex()), "publish failures do not fail the operation")

	pub.AssertExpectations(t)
}

type failingRequests struct {
	db.RequestCollection
	mock.Mock
}

func (m *failingRequests) CountRequests(ctx context.Context, f models.RequestFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func TestStoreFailuresAreInternal(t *testing.T) {
	f := newFixture(t)
	requests := &failingRequests{RequestCollection: f.store.Requests}
	requests.On("CountRequests", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection reset"))
	f.store.Requests = requests

	_, err := f.svc.Dashboard(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "internal server error", PublicMessage(err))
	requests.AssertCalled(t, "CountRequests", mock.Anything, models.RequestFilter{})
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-06-01T10:30", time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-06-01T10:30:15", time.Date(2024, 6, 1, 10, 30, 15, 0, time.UTC)},
		{"2024-06-01T10:30:00+02:00", time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime("date", tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTime("date", "06/01/2024")
	assert.ErrorIs(t, err, ErrValidation)
}
