package maintenance

import (
	"context"
	"time"

	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BoardFilter narrows the kanban board.
type BoardFilter struct {
	Team       *primitive.ObjectID
	Technician *primitive.ObjectID
}

// Kanban groups requests by stage, newest first within each column. Every
// stage has a column even when it is empty.
func (s *Service) Kanban(ctx context.Context, f BoardFilter) (models.Kanban, error) {
	columns := make(map[models.Stage][]models.MaintenanceRequest, len(models.Stages))
	set := newRefSet()
	for _, stage := range models.Stages {
		filter := models.RequestFilter{
			Stages:     []models.Stage{stage},
			Team:       f.Team,
			Technician: f.Technician,
		}
		requests, err := s.store.Requests.FindRequests(ctx, filter, db.FindOptions{Sort: db.SortNewest})
		if err != nil {
			return nil, fromStore(err, "maintenance request")
		}
		for i := range requests {
			set.request(&requests[i])
		}
		columns[stage] = requests
	}

	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	now := s.now()
	board := models.NewKanban()
	for stage, requests := range columns {
		board[stage] = models.NewRequestDetails(requests, refs, now)
	}
	return board, nil
}

// CalendarFilter bounds the calendar by scheduled date. Each bound applies
// on its own.
type CalendarFilter struct {
	Start *time.Time
	End   *time.Time
	Team  *primitive.ObjectID
}

// Calendar lists scheduled preventive requests by scheduled date ascending.
func (s *Service) Calendar(ctx context.Context, f CalendarFilter) ([]models.CalendarEntry, error) {
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return nil, invalid("end must not be before start")
	}
	filter := models.RequestFilter{
		Type:          models.TypePreventive,
		Team:          f.Team,
		ScheduledOnly: true,
		ScheduledFrom: f.Start,
		ScheduledTo:   f.End,
	}
	requests, err := s.store.Requests.FindRequests(ctx, filter, db.FindOptions{Sort: db.SortScheduledAsc})
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	set := newRefSet()
	for i := range requests {
		set.request(&requests[i])
	}
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	entries := make([]models.CalendarEntry, 0, len(requests))
	for i := range requests {
		entries = append(entries, models.NewCalendarEntry(&requests[i], refs))
	}
	return entries, nil
}

// Dashboard counts requests in total, per stage, per type and overdue.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now()
	stats := &models.DashboardStats{}
	counts := []struct {
		dst    *int64
		filter models.RequestFilter
	}{
		{&stats.Total, models.RequestFilter{}},
		{&stats.New, models.RequestFilter{Stages: []models.Stage{models.StageNew}}},
		{&stats.InProgress, models.RequestFilter{Stages: []models.Stage{models.StageInProgress}}},
		{&stats.Repaired, models.RequestFilter{Stages: []models.Stage{models.StageRepaired}}},
		{&stats.Scrap, models.RequestFilter{Stages: []models.Stage{models.StageScrap}}},
		{&stats.Preventive, models.RequestFilter{Type: models.TypePreventive}},
		{&stats.Corrective, models.RequestFilter{Type: models.TypeCorrective}},
		{&stats.Overdue, models.RequestFilter{Stages: []models.Stage{models.StageNew}, ScheduledBefore: &now}},
	}
	for _, c := range counts {
		n, err := s.store.Requests.CountRequests(ctx, c.filter)
		if err != nil {
			return nil, fromStore(err, "maintenance request")
		}
		*c.dst = n
	}
	return stats, nil
}

// ExportRows flattens every request matching f, newest first.
func (s *Service) ExportRows(ctx context.Context, f models.RequestFilter) ([]models.ExportRow, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	requests, err := s.store.Requests.FindRequests(ctx, f, db.FindOptions{Sort: db.SortNewest})
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	details, err := s.requestDetails(ctx, requests)
	if err != nil {
		return nil, err
	}
	rows := make([]models.ExportRow, 0, len(details))
	for i := range details {
		rows = append(rows, models.NewExportRow(&details[i]))
	}
	return rows, nil
}
