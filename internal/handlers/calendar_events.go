package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/gearguard/internal/maintenance"
)

// CalendarEventHandler serves free-standing calendar events.
type CalendarEventHandler struct {
	svc *maintenance.Service
}

func NewCalendarEventHandler(svc *maintenance.Service) *CalendarEventHandler {
	return &CalendarEventHandler{svc: svc}
}

// List handles GET /api/calendar-events?start=&end=
func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "start")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	to, err := queryTime(r, "end")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	events, err := h.svc.ListEvents(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in maintenance.EventInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	v, err := h.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in maintenance.EventInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	v, err := h.svc.UpdateEvent(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Event deleted successfully")
}
