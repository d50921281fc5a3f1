package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/gearguard/internal/maintenance"
	"github.com/ukydev/gearguard/internal/models"
)

// EquipmentHandler serves the equipment registry.
type EquipmentHandler struct {
	svc *maintenance.Service
}

func NewEquipmentHandler(svc *maintenance.Service) *EquipmentHandler {
	return &EquipmentHandler{svc: svc}
}

// List handles GET /api/equipment
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.EquipmentFilter{
		Department: q.Get("department"),
		Category:   models.EquipmentCategory(q.Get("category")),
	}
	var err error
	if f.AssignedTo, err = queryID(r, "assignedTo"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.svc.ListEquipment(r.Context(), f, pageFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/equipment/{id}
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetEquipment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Create handles POST /api/equipment
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in maintenance.EquipmentInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	v, err := h.svc.CreateEquipment(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Update handles PUT /api/equipment/{id}
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in maintenance.EquipmentInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	v, err := h.svc.UpdateEquipment(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Delete handles DELETE /api/equipment/{id}
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEquipment(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Equipment deleted successfully")
}

// Requests handles GET /api/equipment/{id}/maintenance, the maintenance
// history of one asset.
func (h *EquipmentHandler) Requests(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.EquipmentRequests(r.Context(), mux.Vars(r)["id"], queryStages(r), pageFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
