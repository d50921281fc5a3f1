package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ptrTime(t time.Time) *time.Time { return &t }

func validRequest() MaintenanceRequest {
	return MaintenanceRequest{
		Subject:           "Blade worn",
		Description:       "Cutting blade shows visible wear",
		Type:              TypeCorrective,
		Priority:          PriorityMedium,
		Stage:             StageNew,
		Equipment:         primitive.NewObjectID(),
		EquipmentCategory: CategoryCNCMachine,
		AssignedTeam:      primitive.NewObjectID(),
		RequestedBy:       primitive.NewObjectID(),
	}
}

func TestMaintenanceRequest_IsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		stage     Stage
		scheduled *time.Time
		expected  bool
	}{
		{"new and scheduled in the past", StageNew, &past, true},
		{"new and scheduled now", StageNew, &now, false},
		{"new and scheduled in the future", StageNew, &future, false},
		{"new without schedule", StageNew, nil, false},
		{"in progress and past", StageInProgress, &past, false},
		{"repaired and past", StageRepaired, &past, false},
		{"scrap and past", StageScrap, &past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MaintenanceRequest{Stage: tt.stage, ScheduledDate: tt.scheduled}
			assert.Equal(t, tt.expected, r.IsOverdue(now))
		})
	}
}

func TestMaintenanceRequest_ApplyStage(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	r := validRequest()

	r.ApplyStage(StageInProgress, t0)
	require.NotNil(t, r.ActualStartDate)
	assert.Equal(t, t0, *r.ActualStartDate)
	assert.Nil(t, r.CompletionDate)

	r.ApplyStage(StageInProgress, t1)
	assert.Equal(t, t0, *r.ActualStartDate, "start stamp must not move")

	r.ApplyStage(StageRepaired, t1)
	require.NotNil(t, r.CompletionDate)
	assert.Equal(t, t1, *r.CompletionDate)

	r.ApplyStage(StageNew, t2)
	assert.Equal(t, StageNew, r.Stage)
	assert.Equal(t, t0, *r.ActualStartDate, "stamps are never cleared")
	assert.Equal(t, t1, *r.CompletionDate)

	r.ApplyStage(StageScrap, t2)
	assert.Equal(t, t1, *r.CompletionDate, "completion stamp must not move")
}

func TestStageStamps(t *testing.T) {
	assert.Empty(t, StageStamps(StageNew))
	assert.Equal(t, []string{FieldActualStartDate}, StageStamps(StageInProgress))
	assert.Equal(t, []string{FieldCompletionDate}, StageStamps(StageRepaired))
	assert.Equal(t, []string{FieldCompletionDate}, StageStamps(StageScrap))
}

func TestMaintenanceRequest_Validate(t *testing.T) {
	r := validRequest()
	assert.NoError(t, r.Validate())

	r.Subject = "  "
	r.Priority = "Urgent"
	r.AssignedTeam = primitive.NilObjectID
	r.Duration = -1
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject is required")
	assert.Contains(t, err.Error(), "priority must be")
	assert.Contains(t, err.Error(), "assigned team is required")
	assert.Contains(t, err.Error(), "duration must not be negative")
}

func TestMaintenanceRequest_Attachment(t *testing.T) {
	r := validRequest()
	a := Attachment{ID: primitive.NewObjectID(), Filename: "photo.jpg"}
	r.Attachments = []Attachment{a}

	got, ok := r.Attachment(a.ID)
	require.True(t, ok)
	assert.Equal(t, "photo.jpg", got.Filename)

	_, ok = r.Attachment(primitive.NewObjectID())
	assert.False(t, ok)
}

func TestRequestFilter_Matches(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tech := primitive.NewObjectID()
	r := validRequest()
	r.Type = TypePreventive
	r.AssignedTechnician = &tech
	r.ScheduledDate = ptrTime(now.Add(-24 * time.Hour))
	r.CreatedAt = now.Add(-48 * time.Hour)

	other := primitive.NewObjectID()

	tests := []struct {
		name     string
		filter   RequestFilter
		expected bool
	}{
		{"empty filter", RequestFilter{}, true},
		{"stage match", RequestFilter{Stages: []Stage{StageNew}}, true},
		{"stage miss", RequestFilter{Stages: OpenStages[1:]}, false},
		{"type miss", RequestFilter{Type: TypeCorrective}, false},
		{"team match", RequestFilter{Team: &r.AssignedTeam}, true},
		{"team miss", RequestFilter{Team: &other}, false},
		{"technician match", RequestFilter{Technician: &tech}, true},
		{"technician miss", RequestFilter{Technician: &other}, false},
		{"equipment match", RequestFilter{Equipment: &r.Equipment}, true},
		{"created window", RequestFilter{CreatedFrom: ptrTime(now.Add(-72 * time.Hour)), CreatedTo: ptrTime(now)}, true},
		{"created after window", RequestFilter{CreatedTo: ptrTime(now.Add(-72 * time.Hour))}, false},
		{"scheduled only", RequestFilter{ScheduledOnly: true}, true},
		{"scheduled before now", RequestFilter{ScheduledBefore: &now}, true},
		{"scheduled before is strict", RequestFilter{ScheduledBefore: r.ScheduledDate}, false},
		{"scheduled from after date", RequestFilter{ScheduledFrom: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Matches(&r))
		})
	}

	unscheduled := validRequest()
	assert.False(t, RequestFilter{ScheduledOnly: true}.Matches(&unscheduled))
	assert.False(t, RequestFilter{ScheduledTo: &now}.Matches(&unscheduled))
	assert.False(t, RequestFilter{Technician: &tech}.Matches(&unscheduled))
}

func TestPageRequest(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, Limit: DefaultPageLimit}, PageRequest{}.Normalize())
	assert.Equal(t, PageRequest{Page: 2, Limit: MaxPageLimit}, PageRequest{Page: 2, Limit: 1000}.Normalize())
	assert.Equal(t, int64(20), PageRequest{Page: 3, Limit: 10}.Skip())

	p := NewPage[int](nil, 21, PageRequest{Page: 3, Limit: 10})
	assert.Equal(t, int64(3), p.TotalPages)
	assert.Equal(t, int64(3), p.CurrentPage)
	assert.Equal(t, int64(21), p.Total)
	assert.NotNil(t, p.Items)

	huge := PageRequest{Page: math.MaxInt64, Limit: 10}.Normalize()
	assert.Equal(t, int64(MaxPage), huge.Page)
	assert.Greater(t, huge.Skip(), int64(0))
	assert.Greater(t, PageRequest{Page: math.MaxInt64, Limit: MaxPageLimit}.Skip(), int64(0))

	empty := NewPage([]string{}, 0, PageRequest{})
	assert.Equal(t, int64(0), empty.TotalPages)
}

func TestNewKanban(t *testing.T) {
	k := NewKanban()
	require.Len(t, k, 4)
	for _, s := range Stages {
		col, ok := k[s]
		assert.True(t, ok, "missing column %s", s)
		assert.Empty(t, col)
	}
}

func TestNewRequestDetail(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	eq := &Equipment{ID: primitive.NewObjectID(), Name: "Lathe-1", SerialNumber: "SN-100", Category: CategoryCNCMachine}
	team := &MaintenanceTeam{ID: primitive.NewObjectID(), Name: "Mechanics A", Specialization: SpecializationMechanics}
	author := &User{ID: primitive.NewObjectID(), Name: "Dana", Email: "dana@example.com"}

	r := validRequest()
	r.ID = primitive.NewObjectID()
	r.Equipment = eq.ID
	r.AssignedTeam = team.ID
	r.RequestedBy = author.ID
	r.ScheduledDate = ptrTime(now.Add(-time.Hour))
	r.Notes = []Note{{ID: primitive.NewObjectID(), Content: "checked", AddedBy: author.ID, AddedAt: now}}

	refs := NewRefs()
	refs.Equipment[eq.ID] = eq
	refs.Teams[team.ID] = team
	refs.Users[author.ID] = author

	d := NewRequestDetail(&r, refs, now)
	assert.Equal(t, "Lathe-1", d.Equipment.Name)
	assert.Equal(t, "Mechanics A", d.AssignedTeam.Name)
	assert.Equal(t, "Dana", d.RequestedBy.Name)
	assert.Nil(t, d.AssignedTechnician)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "dana@example.com", d.Notes[0].AddedBy.Email)
	assert.True(t, d.IsOverdue)
	assert.NotNil(t, d.Attachments)

	entry := NewCalendarEntry(&r, refs)
	assert.Equal(t, "Blade worn - Lathe-1", entry.Title)
	assert.Equal(t, *r.ScheduledDate, entry.Start)
	assert.Equal(t, StageNew, entry.ExtendedProps.Stage)

	delete(refs.Equipment, eq.ID)
	entry = NewCalendarEntry(&r, refs)
	assert.Equal(t, "Blade worn", entry.Title)
	assert.Equal(t, eq.ID, entry.ExtendedProps.Equipment.ID)
}

func TestMaintenanceTeam_Validate(t *testing.T) {
	user := primitive.NewObjectID()
	team := MaintenanceTeam{
		Name:           "Electrical",
		Specialization: SpecializationElectrician,
		Members: []TeamMember{
			{User: user, Role: MemberTeamLead},
			{User: user, Role: MemberTechnician},
		},
	}
	err := team.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed more than once")
	assert.True(t, team.HasMember(user))

	team.Members = team.Members[:1]
	assert.NoError(t, team.Validate())
}

func TestCalendarEvent_Validate(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	e := CalendarEvent{Title: "Audit", Start: start, Priority: PriorityLow, Stage: EventPlanned}
	assert.NoError(t, e.Validate())

	e.End = ptrTime(start.Add(-time.Hour))
	assert.Error(t, e.Validate())

	e.End = nil
	e.Stage = "Someday"
	assert.Error(t, e.Validate())
}
