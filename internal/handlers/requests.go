package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/export"
	"github.com/ukydev/gearguard/internal/maintenance"
	"github.com/ukydev/gearguard/internal/middleware"
	"github.com/ukydev/gearguard/internal/models"
)

// DefaultMaxUpload caps attachment uploads when no limit is configured.
const DefaultMaxUpload = 10 << 20

// RequestHandler serves the maintenance request endpoints.
type RequestHandler struct {
	svc       *maintenance.Service
	maxUpload int64
}

// NewRequestHandler creates a request handler. A non-positive maxUpload
// selects DefaultMaxUpload.
func NewRequestHandler(svc *maintenance.Service, maxUpload int64) *RequestHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &RequestHandler{svc: svc, maxUpload: maxUpload}
}

// currentUser returns the authenticated user's id, or nil.
func currentUser(r *http.Request) *string {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok || claims.UserID == "" {
		return nil
	}
	id := claims.UserID
	return &id
}

func requestFilterFromQuery(r *http.Request) (models.RequestFilter, error) {
	q := r.URL.Query()
	f := models.RequestFilter{
		Stages:   queryStages(r),
		Type:     models.RequestType(q.Get("type")),
		Priority: models.Priority(q.Get("priority")),
	}
	var err error
	if f.Team, err = queryID(r, "assignedTeam"); err != nil {
		return f, err
	}
	if f.Technician, err = queryID(r, "assignedTechnician"); err != nil {
		return f, err
	}
	if f.Equipment, err = queryID(r, "equipment"); err != nil {
		return f, err
	}
	if f.CreatedFrom, err = queryTime(r, "startDate"); err != nil {
		return f, err
	}
	if f.CreatedTo, err = queryTime(r, "endDate"); err != nil {
		return f, err
	}
	return f, nil
}

// List handles GET /api/maintenance-requests
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := requestFilterFromQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.svc.List(r.Context(), f, pageFromQuery(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Kanban handles GET /api/maintenance-requests/kanban
func (h *RequestHandler) Kanban(w http.ResponseWriter, r *http.Request) {
	var f maintenance.BoardFilter
	var err error
	if f.Team, err = queryID(r, "assignedTeam"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.Technician, err = queryID(r, "assignedTechnician"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	board, err := h.svc.Kanban(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Calendar handles GET /api/maintenance-requests/calendar
func (h *RequestHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	var f maintenance.CalendarFilter
	var err error
	if f.Start, err = queryTime(r, "start"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.End, err = queryTime(r, "end"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.Team, err = queryID(r, "assignedTeam"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	entries, err := h.svc.Calendar(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Dashboard handles GET /api/maintenance-requests/stats/dashboard
func (h *RequestHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Export handles GET /api/maintenance-requests/export
func (h *RequestHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := requestFilterFromQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rows, err := h.svc.ExportRows(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteRequests(&buf, rows); err != nil {
		log.WithError(err).Error("Failed to build export workbook")
		writeError(w, http.StatusInternalServerError, "Failed to build export")
		return
	}
	filename := fmt.Sprintf("maintenance-requests-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Get handles GET /api/maintenance-requests/{id}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Create handles POST /api/maintenance-requests. The requester defaults to
// the authenticated user.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in maintenance.RequestInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if in.RequestedBy == nil {
		in.RequestedBy = currentUser(r)
	}
	d, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Update handles PUT /api/maintenance-requests/{id}
func (h *RequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in maintenance.RequestInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	d, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ChangeStage handles PATCH /api/maintenance-requests/{id}/stage
func (h *RequestHandler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	var in maintenance.StageInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	d, err := h.svc.ChangeStage(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Delete handles DELETE /api/maintenance-requests/{id}
func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Maintenance request deleted successfully")
}

// AddNote handles POST /api/maintenance-requests/{id}/notes. The author
// defaults to the authenticated user.
func (h *RequestHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var in maintenance.NoteInput
	if err := decodePartial(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if in.AddedBy == nil {
		in.AddedBy = currentUser(r)
	}
	d, err := h.svc.AddNote(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// AddAttachment handles multipart POST /api/maintenance-requests/{id}/attachments
// with the file in the "file" field.
func (h *RequestHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	up := maintenance.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	if uploader := currentUser(r); uploader != nil {
		if id, err := db.ParseID(*uploader); err == nil {
			up.UploadedBy = id
		}
	}

	d, err := h.svc.AddAttachment(r.Context(), mux.Vars(r)["id"], up)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// DownloadAttachment handles GET /api/maintenance-requests/{id}/attachments/{attachmentId}
func (h *RequestHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	a, body, err := h.svc.OpenAttachment(r.Context(), vars["id"], vars["attachmentId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.OriginalName}))
	if a.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(a.Size))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		log.WithError(err).WithField("attachment_id", a.ID.Hex()).Warn("Attachment download interrupted")
	}
}
