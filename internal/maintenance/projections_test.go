package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/gearguard/internal/models"
)

func subjects(ds []models.RequestDetail) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Subject)
	}
	return out
}

func TestKanban(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createRequest(t, RequestInput{Subject: ptr("first"), AssignedTechnician: ptr(f.technician.ID.Hex())})
	working := f.createRequest(t, RequestInput{Subject: ptr("working")})
	done := f.createRequest(t, RequestInput{Subject: ptr("done")})
	f.createRequest(t, RequestInput{Subject: ptr("latest")})

	_, err := f.svc.ChangeStage(ctx, working.ID.Hex(), StageInput{Stage: ptr(models.StageInProgress)})
	require.NoError(t, err)
	_, err = f.svc.ChangeStage(ctx, done.ID.Hex(), StageInput{Stage: ptr(models.StageRepaired)})
	require.NoError(t, err)

	board, err := f.svc.Kanban(ctx, BoardFilter{})
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, []string{"latest", "first"}, subjects(board[models.StageNew]))
	assert.Equal(t, []string{"working"}, subjects(board[models.StageInProgress]))
	assert.Equal(t, []string{"done"}, subjects(board[models.StageRepaired]))
	require.Contains(t, board, models.StageScrap)
	assert.Empty(t, board[models.StageScrap])
	assert.Equal(t, "Lathe-1", board[models.StageNew][0].Equipment.Name)

	board, err = f.svc.Kanban(ctx, BoardFilter{Technician: &f.technician.ID})
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, []string{"first"}, subjects(board[models.StageNew]))
	assert.Empty(t, board[models.StageInProgress])
	assert.Equal(t, first.ID, board[models.StageNew][0].ID)
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	preventive := ptr(models.TypePreventive)

	f.createRequest(t, RequestInput{Subject: ptr("Quarterly service"), Type: preventive, ScheduledDate: ptr("2024-06-10")})
	f.createRequest(t, RequestInput{Subject: ptr("Belt check"), Type: preventive, ScheduledDate: ptr("2024-06-05")})
	f.createRequest(t, RequestInput{Subject: ptr("Broken guard"), ScheduledDate: ptr("2024-06-07")})
	f.createRequest(t, RequestInput{Subject: ptr("Unplanned"), Type: preventive})

	entries, err := f.svc.Calendar(ctx, CalendarFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Belt check - Lathe-1", entries[0].Title)
	assert.Equal(t, "Quarterly service - Lathe-1", entries[1].Title)
	assert.True(t, entries[0].Start.Equal(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.PriorityMedium, entries[0].ExtendedProps.Priority)
	assert.Equal(t, models.StageNew, entries[0].ExtendedProps.Stage)
	assert.Equal(t, "Mechanics A", entries[0].ExtendedProps.Team.Name)

	split := ptr(time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC))

	entries, err = f.svc.Calendar(ctx, CalendarFilter{Start: split})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Quarterly service - Lathe-1", entries[0].Title)

	entries, err = f.svc.Calendar(ctx, CalendarFilter{End: split})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Belt check - Lathe-1", entries[0].Title)

	_, err = f.svc.Calendar(ctx, CalendarFilter{Start: split, End: ptr(split.Add(-time.Hour))})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	preventive := ptr(models.TypePreventive)

	f.createRequest(t, RequestInput{Subject: ptr("overdue"), ScheduledDate: ptr("2024-05-01")})
	f.createRequest(t, RequestInput{Subject: ptr("planned"), Type: preventive, ScheduledDate: ptr("2024-07-01")})
	working := f.createRequest(t, RequestInput{Subject: ptr("working"), ScheduledDate: ptr("2024-05-01")})
	repaired := f.createRequest(t, RequestInput{Subject: ptr("repaired"), Type: preventive})
	scrapped := f.createRequest(t, RequestInput{Subject: ptr("scrapped")})

	for id, stage := range map[string]models.Stage{
		working.ID.Hex():  models.StageInProgress,
		repaired.ID.Hex(): models.StageRepaired,
		scrapped.ID.Hex(): models.StageScrap,
	} {
		_, err := f.svc.ChangeStage(ctx, id, StageInput{Stage: ptr(stage)})
		require.NoError(t, err)
	}

	stats, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{
		Total:      5,
		New:        2,
		InProgress: 1,
		Repaired:   1,
		Scrap:      1,
		Preventive: 2,
		Corrective: 3,
		Overdue:    1,
	}, *stats)
}

func TestExportRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRequest(t, RequestInput{Subject: ptr("older"), AssignedTechnician: ptr(f.technician.ID.Hex())})
	f.createRequest(t, RequestInput{Subject: ptr("newer"), Type: ptr(models.TypePreventive)})

	rows, err := f.svc.ExportRows(ctx, models.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "newer", rows[0].Subject)
	assert.Equal(t, "Lathe-1", rows[1].Equipment)
	assert.Equal(t, "Mechanics A", rows[1].Team)
	assert.Equal(t, "Tom Tech", rows[1].Technician)
	assert.Empty(t, rows[0].Technician)

	rows, err = f.svc.ExportRows(ctx, models.RequestFilter{Type: models.TypePreventive})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = f.svc.ExportRows(ctx, models.RequestFilter{Priority: "Soon"})
	assert.ErrorIs(t, err, ErrValidation)
}
