package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func isStatus(err error, status int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *client) do(method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &apiError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type user struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResponse struct {
	Token string `json:"token"`
	User  user   `json:"user"`
}

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type equipmentRecord struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serialNumber"`
}

type page[T any] struct {
	Items []T `json:"items"`
}

// login signs in with the seed account, registering it on first use, and
// keeps the token for later calls. The API only accepts an admin sign-up
// while it has no users.
func (c *client) login(name, email, password, role string) (user, error) {
	var resp authResponse
	err := c.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &resp)
	if isStatus(err, http.StatusUnauthorized) {
		err = c.do(http.MethodPost, "/auth/register", map[string]string{
			"name": name, "email": email, "password": password, "role": role,
		}, &resp)
	}
	if err != nil {
		return user{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// ensureTechnician returns an existing technician or registers one.
func (c *client) ensureTechnician(password string) (user, error) {
	var techs []user
	if err := c.do(http.MethodGet, "/users?role=technician", nil, &techs); err != nil {
		return user{}, err
	}
	if len(techs) > 0 {
		return techs[0], nil
	}
	var resp authResponse
	err := c.do(http.MethodPost, "/auth/register", map[string]string{
		"name": "Sam Technician", "email": "technician@gearguard.local", "password": password, "role": "technician",
	}, &resp)
	if err != nil {
		return user{}, err
	}
	log.WithField("user_id", resp.User.ID).Info("Registered technician")
	return resp.User, nil
}

func (c *client) ensureTeam(name, specialization, technicianID string) (string, error) {
	var teams page[record]
	if err := c.do(http.MethodGet, "/maintenance-teams?limit=100", nil, &teams); err != nil {
		return "", err
	}
	for _, t := range teams.Items {
		if t.Name == name {
			return t.ID, nil
		}
	}
	var created record
	err := c.do(http.MethodPost, "/maintenance-teams", map[string]interface{}{
		"name":           name,
		"specialization": specialization,
		"members":        []map[string]string{{"user": technicianID, "role": "Team Lead"}},
	}, &created)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"team_id": created.ID, "name": name}).Info("Created team")
	return created.ID, nil
}

type equipmentSeed struct {
	Name       string
	Serial     string
	Category   string
	Department string
	Location   string
	Team       string // specialization of the maintaining team
}

var equipmentSeeds = []equipmentSeed{
	{"CNC Lathe 01", "CNC-0001", "CNC Machine", "Production", "Hall A", "Mechanics"},
	{"CNC Mill 02", "CNC-0002", "CNC Machine", "Production", "Hall A", "Mechanics"},
	{"Forklift 7", "VEH-0007", "Vehicle", "Logistics", "Warehouse", "Mechanics"},
	{"Office Printer 3F", "PRN-0301", "Printer", "Administration", "Floor 3", "IT Support"},
	{"Design Workstation", "CMP-0042", "Computer", "Engineering", "Floor 2", "IT Support"},
	{"Compressor Panel", "OTH-0100", "Other", "Facilities", "Plant room", "Electricians"},
}

var teamSeeds = map[string]string{
	"Mechanics":    "Mechanics Crew",
	"Electricians": "Electrical Crew",
	"IT Support":   "IT Helpdesk",
}

func (c *client) ensureEquipment(seed equipmentSeed, teamID, technicianID string) (string, error) {
	var existing page[equipmentRecord]
	if err := c.do(http.MethodGet, "/equipment?limit=100", nil, &existing); err != nil {
		return "", err
	}
	for _, e := range existing.Items {
		if e.SerialNumber == seed.Serial {
			return e.ID, nil
		}
	}
	var created record
	err := c.do(http.MethodPost, "/equipment", map[string]string{
		"name":              seed.Name,
		"serialNumber":      seed.Serial,
		"category":          seed.Category,
		"department":        seed.Department,
		"location":          seed.Location,
		"purchaseDate":      time.Now().AddDate(-2, 0, 0).Format("2006-01-02"),
		"maintenanceTeam":   teamID,
		"defaultTechnician": technicianID,
	}, &created)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"equipment_id": created.ID, "serial": seed.Serial}).Info("Created equipment")
	return created.ID, nil
}

var (
	subjects   = []string{"Unusual vibration", "Oil leak", "Overheating", "Calibration due", "Belt replacement", "Firmware update", "Paper jam", "Noise at startup"}
	priorities = []string{"Low", "Medium", "High", "Critical"}
	stages     = []string{"New", "In Progress", "Repaired", "Scrap"}
)

// randomRequest builds a request payload. Preventive requests are scheduled
// within the coming month.
func randomRequest(rng *rand.Rand, equipmentID string, now time.Time) map[string]interface{} {
	req := map[string]interface{}{
		"subject":     subjects[rng.Intn(len(subjects))],
		"description": "Reported during routine inspection",
		"priority":    priorities[rng.Intn(len(priorities))],
		"equipment":   equipmentID,
		"type":        "Corrective",
	}
	if rng.Intn(2) == 0 {
		req["type"] = "Preventive"
		req["scheduledDate"] = now.AddDate(0, 0, rng.Intn(30)-5).UTC().Format(time.RFC3339)
	}
	return req
}

type config struct {
	apiURL   string
	email    string
	password string
	requests int
	seed     int64
}

func loadConfig() config {
	cfg := config{
		apiURL:   os.Getenv("API_BASE_URL"),
		email:    os.Getenv("SEED_EMAIL"),
		password: os.Getenv("SEED_PASSWORD"),
		requests: 20,
		seed:     time.Now().UnixNano(),
	}
	if cfg.apiURL == "" {
		cfg.apiURL = "http://localhost:8080/api"
	}
	if cfg.email == "" {
		cfg.email = "admin@gearguard.local"
	}
	if cfg.password == "" {
		cfg.password = "changeme123"
	}
	if v := os.Getenv("SEED_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.requests = n
		}
	}
	return cfg
}

// seed populates the API with teams, equipment and requests and returns the
// number of requests created.
func seed(cfg config) (int, error) {
	c := newClient(cfg.apiURL)
	admin, err := c.login("Seed Admin", cfg.email, cfg.password, "admin")
	if err != nil {
		return 0, fmt.Errorf("sign in: %w", err)
	}
	log.WithField("user_id", admin.ID).Info("Signed in")

	tech, err := c.ensureTechnician(cfg.password)
	if err != nil {
		return 0, fmt.Errorf("technician: %w", err)
	}

	teams := make(map[string]string, len(teamSeeds))
	for spec, name := range teamSeeds {
		id, err := c.ensureTeam(name, spec, tech.ID)
		if err != nil {
			return 0, fmt.Errorf("team %s: %w", name, err)
		}
		teams[spec] = id
	}

	equipment := make([]string, 0, len(equipmentSeeds))
	for _, s := range equipmentSeeds {
		id, err := c.ensureEquipment(s, teams[s.Team], tech.ID)
		if err != nil {
			return 0, fmt.Errorf("equipment %s: %w", s.Serial, err)
		}
		equipment = append(equipment, id)
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	now := time.Now()
	created := 0
	for i := 0; i < cfg.requests; i++ {
		var r record
		if err := c.do(http.MethodPost, "/maintenance-requests", randomRequest(rng, equipment[rng.Intn(len(equipment))], now), &r); err != nil {
			log.WithError(err).Warn("Failed to create request")
			continue
		}
		created++
		if stage := stages[rng.Intn(len(stages))]; stage != "New" {
			body := map[string]interface{}{"stage": stage}
			if stage == "Repaired" {
				body["duration"] = float64(1 + rng.Intn(8))
			}
			if err := c.do(http.MethodPatch, "/maintenance-requests/"+r.ID+"/stage", body, nil); err != nil {
				log.WithError(err).WithField("request_id", r.ID).Warn("Failed to move request")
			}
		}
	}
	return created, nil
}

func main() {
	cfg := loadConfig()
	log.WithFields(log.Fields{"api_url": cfg.apiURL, "requests": cfg.requests}).Info("Seeding demo data")

	n, err := seed(cfg)
	if err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	log.WithField("created_requests", n).Info("Seeding completed")
}
