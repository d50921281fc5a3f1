package maintenance

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// equipmentRefs resolves and verifies the optional references of an
// equipment payload, recording them on e and in set.
func (s *Service) equipmentRefs(ctx context.Context, in EquipmentInput, e *models.Equipment, set bson.M) error {
	assignedTo, err := parseOptionalID("assignedTo", in.AssignedTo)
	if err != nil {
		return err
	}
	if assignedTo != nil {
		if err := s.requireUser(ctx, *assignedTo, "assigned user"); err != nil {
			return err
		}
		e.AssignedTo = assignedTo
		set["assigned_to"] = *assignedTo
	}
	team, err := parseOptionalID("maintenanceTeam", in.MaintenanceTeam)
	if err != nil {
		return err
	}
	if team != nil {
		if _, err := s.requireTeam(ctx, *team); err != nil {
			return err
		}
		e.MaintenanceTeam = team
		set["maintenance_team"] = *team
	}
	technician, err := parseOptionalID("defaultTechnician", in.DefaultTechnician)
	if err != nil {
		return err
	}
	if technician != nil {
		if err := s.requireUser(ctx, *technician, "default technician"); err != nil {
			return err
		}
		e.DefaultTechnician = technician
		set["default_technician"] = *technician
	}
	return nil
}

// applyEquipment copies the scalar fields of in onto e and records them in set.
func applyEquipment(in EquipmentInput, e *models.Equipment, set bson.M) error {
	if in.Name != nil {
		e.Name = *in.Name
		set["name"] = e.Name
	}
	if in.SerialNumber != nil {
		e.SerialNumber = *in.SerialNumber
		set["serial_number"] = e.SerialNumber
	}
	if in.Category != nil {
		e.Category = *in.Category
		set["category"] = e.Category
	}
	if in.Department != nil {
		e.Department = *in.Department
		set["department"] = e.Department
	}
	if in.Location != nil {
		e.Location = *in.Location
		set["location"] = e.Location
	}
	if in.Status != nil {
		e.Status = *in.Status
		set["status"] = e.Status
	}
	if in.Description != nil {
		e.Description = *in.Description
		set["description"] = e.Description
	}
	if in.PurchaseDate != nil {
		t, err := ParseTime("purchaseDate", *in.PurchaseDate)
		if err != nil {
			return err
		}
		e.PurchaseDate = t
		set["purchase_date"] = t
	}
	if in.WarrantyExpiry != nil {
		t, err := ParseTime("warrantyExpiry", *in.WarrantyExpiry)
		if err != nil {
			return err
		}
		e.WarrantyExpiry = &t
		set["warranty_expiry"] = t
	}
	return nil
}

func equipmentStoreErr(err error, serial string) error {
	if errors.Is(err, db.ErrDuplicateKey) {
		return invalid("serial number %q is already registered", serial)
	}
	return fromStore(err, "equipment")
}

func (s *Service) equipmentView(ctx context.Context, e *models.Equipment) (*models.EquipmentView, error) {
	set := newRefSet()
	set.equipmentRecord(e)
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	v := models.NewEquipmentView(e, refs)
	return &v, nil
}

// CreateEquipment registers a new asset. Status defaults to Operational.
func (s *Service) CreateEquipment(ctx context.Context, in EquipmentInput) (*models.EquipmentView, error) {
	e := &models.Equipment{Status: models.StatusOperational}
	set := bson.M{}
	if err := applyEquipment(in, e, set); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, invalidModel(err)
	}
	if err := s.equipmentRefs(ctx, in, e, set); err != nil {
		return nil, err
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.store.Equipment.InsertEquipment(ctx, e); err != nil {
		return nil, equipmentStoreErr(err, e.SerialNumber)
	}
	log.WithFields(log.Fields{"equipment_id": e.ID.Hex(), "serial_number": e.SerialNumber}).Info("Equipment registered")
	return s.equipmentView(ctx, e)
}

// GetEquipment returns an asset with its open requests.
func (s *Service) GetEquipment(ctx context.Context, id string) (*models.EquipmentDetail, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	e, err := s.requireEquipment(ctx, oid)
	if err != nil {
		return nil, err
	}
	open, err := s.store.Requests.FindRequests(ctx, models.RequestFilter{
		Equipment: &oid,
		Stages:    models.OpenStages,
	}, db.FindOptions{Sort: db.SortNewest})
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}

	set := newRefSet()
	set.equipmentRecord(e)
	for i := range open {
		set.request(&open[i])
	}
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	return &models.EquipmentDetail{
		EquipmentView:           models.NewEquipmentView(e, refs),
		OpenMaintenanceRequests: models.NewRequestDetails(open, refs, s.now()),
	}, nil
}

// ListEquipment returns one page of assets, newest first.
func (s *Service) ListEquipment(ctx context.Context, f models.EquipmentFilter, page models.PageRequest) (*models.Page[models.EquipmentView], error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, invalid("unknown category %q", f.Category)
	}
	page = page.Normalize()
	items, err := s.store.Equipment.FindEquipment(ctx, f, db.PageOptions(page))
	if err != nil {
		return nil, fromStore(err, "equipment")
	}
	total, err := s.store.Equipment.CountEquipment(ctx, f)
	if err != nil {
		return nil, fromStore(err, "equipment")
	}
	set := newRefSet()
	for i := range items {
		set.equipmentRecord(&items[i])
	}
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	views := make([]models.EquipmentView, 0, len(items))
	for i := range items {
		views = append(views, models.NewEquipmentView(&items[i], refs))
	}
	p := models.NewPage(views, total, page)
	return &p, nil
}

// UpdateEquipment applies a partial payload. Existing requests keep the
// category they were created with.
func (s *Service) UpdateEquipment(ctx context.Context, id string, in EquipmentInput) (*models.EquipmentView, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	current, err := s.requireEquipment(ctx, oid)
	if err != nil {
		return nil, err
	}
	next := *current
	set := bson.M{}
	if err := applyEquipment(in, &next, set); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, invalidModel(err)
	}
	if err := s.equipmentRefs(ctx, in, &next, set); err != nil {
		return nil, err
	}
	set["updated_at"] = s.now()
	updated, err := s.store.Equipment.UpdateEquipment(ctx, oid, set)
	if err != nil {
		return nil, equipmentStoreErr(err, next.SerialNumber)
	}
	return s.equipmentView(ctx, updated)
}

// DeleteEquipment removes an asset unless a New or In Progress request
// references it. The check and the delete are separate operations.
func (s *Service) DeleteEquipment(ctx context.Context, id string) error {
	oid, err := ParseID("id", id)
	if err != nil {
		return err
	}
	open, err := s.store.Requests.ExistsRequest(ctx, models.RequestFilter{
		Equipment: &oid,
		Stages:    models.OpenStages,
	})
	if err != nil {
		return fromStore(err, "maintenance request")
	}
	if open {
		return conflict("cannot delete equipment with open maintenance requests")
	}
	if err := s.store.Equipment.DeleteEquipment(ctx, oid); err != nil {
		return fromStore(err, "equipment")
	}
	log.WithField("equipment_id", oid.Hex()).Info("Equipment deleted")
	return nil
}

// EquipmentRequests returns one page of an asset's request history.
func (s *Service) EquipmentRequests(ctx context.Context, id string, stages []models.Stage, page models.PageRequest) (*models.Page[models.RequestDetail], error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	f := models.RequestFilter{Equipment: &oid, Stages: stages}
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	if _, err := s.requireEquipment(ctx, oid); err != nil {
		return nil, err
	}
	return s.pageRequests(ctx, f, page)
}
