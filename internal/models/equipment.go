package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EquipmentCategory classifies an asset.
type EquipmentCategory string

const (
	CategoryCNCMachine EquipmentCategory = "CNC Machine"
	CategoryVehicle    EquipmentCategory = "Vehicle"
	CategoryComputer   EquipmentCategory = "Computer"
	CategoryPrinter    EquipmentCategory = "Printer"
	CategoryOther      EquipmentCategory = "Other"
)

// Valid reports whether c is a known category.
func (c EquipmentCategory) Valid() bool {
	switch c {
	case CategoryCNCMachine, CategoryVehicle, CategoryComputer, CategoryPrinter, CategoryOther:
		return true
	default:
		return false
	}
}

// EquipmentStatus is the operational state of an asset.
type EquipmentStatus string

const (
	StatusOperational      EquipmentStatus = "Operational"
	StatusUnderMaintenance EquipmentStatus = "Under Maintenance"
	StatusScrap            EquipmentStatus = "Scrap"
)

// Valid reports whether s is a known equipment status.
func (s EquipmentStatus) Valid() bool {
	return s == StatusOperational || s == StatusUnderMaintenance || s == StatusScrap
}

// Equipment is a tracked asset.
type Equipment struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name              string              `bson:"name" json:"name"`
	SerialNumber      string              `bson:"serial_number" json:"serialNumber"`
	Category          EquipmentCategory   `bson:"category" json:"category"`
	Department        string              `bson:"department" json:"department"`
	AssignedTo        *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assignedTo,omitempty"`
	MaintenanceTeam   *primitive.ObjectID `bson:"maintenance_team,omitempty" json:"maintenanceTeam,omitempty"`
	DefaultTechnician *primitive.ObjectID `bson:"default_technician,omitempty" json:"defaultTechnician,omitempty"`
	PurchaseDate      time.Time           `bson:"purchase_date" json:"purchaseDate"`
	WarrantyExpiry    *time.Time          `bson:"warranty_expiry,omitempty" json:"warrantyExpiry,omitempty"`
	Location          string              `bson:"location" json:"location"`
	Status            EquipmentStatus     `bson:"status" json:"status"`
	Description       string              `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt         time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updated_at" json:"updatedAt"`
}

// Validate checks the field constraints of an equipment record.
func (e *Equipment) Validate() error {
	var errs []error
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(e.SerialNumber) == "" {
		errs = append(errs, errors.New("serial number is required"))
	}
	if !e.Category.Valid() {
		errs = append(errs, errors.New("category must be one of CNC Machine, Vehicle, Computer, Printer, Other"))
	}
	if strings.TrimSpace(e.Department) == "" {
		errs = append(errs, errors.New("department is required"))
	}
	if e.PurchaseDate.IsZero() {
		errs = append(errs, errors.New("purchase date is required"))
	}
	if strings.TrimSpace(e.Location) == "" {
		errs = append(errs, errors.New("location is required"))
	}
	if !e.Status.Valid() {
		errs = append(errs, errors.New("status must be Operational, Under Maintenance or Scrap"))
	}
	return errors.Join(errs...)
}
