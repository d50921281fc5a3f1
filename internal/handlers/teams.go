package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/gearguard/internal/maintenance"
	"github.com/ukydev/gearguard/internal/models"
)

// TeamHandler serves maintenance teams and their membership.
type TeamHandler struct {
	svc *maintenance.Service
}

func NewTeamHandler(svc *maintenance.Service) *TeamHandler {
	return &TeamHandler{svc: svc}
}

// List handles GET /api/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	f := models.TeamFilter{
		Specialization: models.Specialization(r.URL.Query().Get("specialization")),
		IsActive:       queryBool(r, "isActive"),
	}
	page, err := h.svc.ListTeams(r.Context(), f, pageFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/teams/{id}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetTeam(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Create handles POST /api/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in maintenance.TeamInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	v, err := h.svc.CreateTeam(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Update handles PUT /api/teams/{id}
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in maintenance.TeamInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	v, err := h.svc.UpdateTeam(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Delete handles DELETE /api/teams/{id}
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTeam(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Team deleted successfully")
}

// AddMember handles POST /api/teams/{id}/members
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var in maintenance.MemberInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	v, err := h.svc.AddMember(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// RemoveMember handles DELETE /api/teams/{id}/members/{userId}
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	v, err := h.svc.RemoveMember(r.Context(), vars["id"], vars["userId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Requests handles GET /api/teams/{id}/requests
func (h *TeamHandler) Requests(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.TeamRequests(r.Context(), mux.Vars(r)["id"], queryStages(r), pageFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
