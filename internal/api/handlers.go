// Package api exposes HTTP handlers for the exercise tracker.
package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"example.com/exercisetracker/internal/domain"
)

//go:embed index.html
var indexHTML []byte

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/exercise/new-user", h.newUser)
	mux.HandleFunc("/api/exercise/users", h.users)
	mux.HandleFunc("/api/exercise/add", h.addExercise)
	mux.HandleFunc("/api/exercise/log", h.exerciseLog)
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/", index)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// index serves the landing page and answers every other unmatched route with 404.
func index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		writeError(w, r, errNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (h *Handler) newUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, errNotFound)
		return
	}

	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), fields["username"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UserView{Username: user.Username, ID: user.ID})
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, errNotFound)
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := ListUsersResponse{Users: make([]UserView, 0, len(users))}
	for _, user := range users {
		resp.Users = append(resp.Users, UserView{Username: user.Username, ID: user.ID})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addExercise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, errNotFound)
		return
	}

	fields, err := readFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := AddExerciseRequest{
		UserID:      fields["userId"],
		Description: fields["description"],
		Duration:    fields["duration"],
		Date:        fields["date"],
	}
	input, err := req.Validate()
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, exercise, err := h.service.AppendExercise(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AddExerciseResponse{
		Username:    user.Username,
		ID:          user.ID,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        domain.FormatDate(exercise.Date),
	})
}

func (h *Handler) exerciseLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, errNotFound)
		return
	}

	query := r.URL.Query()
	userID := strings.TrimSpace(query.Get("userId"))
	if userID == "" {
		writeError(w, r, &StatusError{Status: http.StatusBadRequest, Message: missingFields([]string{"userId"})})
		return
	}

	filter, err := parseLogFilter(query.Get("limit"), query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.service.Log(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AddExerciseRequest is the payload for POST /api/exercise/add. Values arrive
// as strings from both form and JSON bodies.
type AddExerciseRequest struct {
	UserID      string
	Description string
	Duration    string
	Date        string
}

// Validate reports empty required fields together and converts the rest.
func (r AddExerciseRequest) Validate() (domain.AppendExerciseInput, error) {
	var missing []string
	if strings.TrimSpace(r.UserID) == "" {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(r.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(r.Duration) == "" {
		missing = append(missing, "duration")
	}
	if len(missing) > 0 {
		return domain.AppendExerciseInput{}, &StatusError{Status: http.StatusBadRequest, Message: missingFields(missing)}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(r.Duration), 64)
	if err != nil {
		return domain.AppendExerciseInput{}, &domain.ValidationError{Field: "duration", Message: "duration must be a number"}
	}

	input := domain.AppendExerciseInput{
		UserID:      strings.TrimSpace(r.UserID),
		Description: r.Description,
		Duration:    duration,
	}
	if strings.TrimSpace(r.Date) != "" {
		date, err := domain.ParseDate(r.Date)
		if err != nil {
			return domain.AppendExerciseInput{}, &domain.ValidationError{Field: "date", Message: "date must be a valid date (YYYY-MM-DD)"}
		}
		input.Date = &date
	}
	return input, nil
}

func parseLogFilter(limit, from, to string) (domain.LogFilter, error) {
	var filter domain.LogFilter
	if raw := strings.TrimSpace(limit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return filter, &domain.ValidationError{Field: "limit", Message: "limit must be a non-negative integer"}
		}
		filter.Limit = &parsed
	}
	if from != "" {
		param, err := domain.ParseDateParam(from)
		if err != nil {
			return filter, &domain.ValidationError{Field: "from", Message: "from must be a valid date (YYYY-MM-DD)"}
		}
		filter.From = param
	}
	if to != "" {
		param, err := domain.ParseDateParam(to)
		if err != nil {
			return filter, &domain.ValidationError{Field: "to", Message: "to must be a valid date (YYYY-MM-DD)"}
		}
		filter.To = param
	}
	return filter, nil
}

func missingFields(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "`" + name + "`"
	}
	return strings.Join(quoted, ",") + "required!"
}

// UserView is the public shape of a user.
type UserView struct {
	Username string `json:"username"`
	ID       string `json:"_id"`
}

// ListUsersResponse packages list results.
type ListUsersResponse struct {
	Users []UserView `json:"users"`
}

// AddExerciseResponse describes the response body for add.
type AddExerciseResponse struct {
	Username    string  `json:"username"`
	ID          string  `json:"_id"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Date        string  `json:"date"`
}

// StatusError carries an explicit HTTP status and client-facing message.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

var errNotFound = &StatusError{Status: http.StatusNotFound, Message: "not found"}

// writeError renders err as plain text. Store and unexpected failures are
// logged and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeText(w, status, message)
}

func classify(err error) (int, string) {
	var validation *domain.ValidationError
	var status *StatusError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &status):
		return status.Status, status.Message
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, "username already taken"
	case errors.Is(err, domain.ErrInvalidIdentity):
		return http.StatusBadRequest, "invalid userId"
	case errors.Is(err, domain.ErrUnknownUser):
		return http.StatusNotFound, "unknown userId"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
