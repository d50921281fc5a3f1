package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/maintenance"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid JSON")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// writeServiceError maps a maintenance error onto its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errInvalidJSON):
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	case errors.Is(err, maintenance.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, maintenance.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, maintenance.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
	}
	writeError(w, status, maintenance.PublicMessage(err))
}

// decodePartial decodes a JSON object into v after dropping keys whose value
// is null or the empty string, so absent and blank fields are treated alike.
// An empty body leaves v untouched.
func decodePartial(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errInvalidJSON
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return errInvalidJSON
	}
	for k, raw := range fields {
		trimmed := bytes.TrimSpace(raw)
		if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
			delete(fields, k)
		}
	}
	cleaned, err := json.Marshal(fields)
	if err != nil {
		return errInvalidJSON
	}
	if err := json.Unmarshal(cleaned, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &maintenance.Error{
				Kind:    maintenance.ErrValidation,
				Message: typeErr.Field + " has the wrong type",
			}
		}
		return errInvalidJSON
	}
	return nil
}

func pageFromQuery(r *http.Request) models.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.ParseInt(q.Get("page"), 10, 64)
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	return models.PageRequest{Page: page, Limit: limit}.Normalize()
}

func queryID(r *http.Request, name string) (*primitive.ObjectID, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	id, err := maintenance.ParseID(name, v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	t, err := maintenance.ParseTime(name, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// queryStages reads stage filters given as repeated or comma-separated values.
func queryStages(r *http.Request) []models.Stage {
	var stages []models.Stage
	for _, v := range r.URL.Query()["stage"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				stages = append(stages, models.Stage(s))
			}
		}
	}
	return stages
}

func queryBool(r *http.Request, name string) *bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	b := v == "true"
	return &b
}
