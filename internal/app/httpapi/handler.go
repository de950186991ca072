// Package httpapi bundles the REST endpoints for the application services.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/nutrilens/companion/internal/app"
	"github.com/nutrilens/companion/internal/app/domain/profile"
	"github.com/nutrilens/companion/internal/app/metrics"
	"github.com/nutrilens/companion/internal/app/services/checklist"
	"github.com/nutrilens/companion/internal/app/storage"
	"github.com/nutrilens/companion/internal/supabase"
	"github.com/nutrilens/companion/internal/vision"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)

	r.HandleFunc("/session", h.session).Methods(http.MethodGet)
	r.HandleFunc("/session", h.logout).Methods(http.MethodDelete)

	r.HandleFunc("/profile", h.currentProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile/refresh", h.refresh).Methods(http.MethodPost)
	r.HandleFunc("/profile/fields/{field}", h.updateField).Methods(http.MethodPatch)
	r.HandleFunc("/profile/image", h.updateImage).Methods(http.MethodPut)

	r.HandleFunc("/catalog", h.catalog).Methods(http.MethodGet)
	r.HandleFunc("/checklist", h.checklist).Methods(http.MethodGet)
	r.HandleFunc("/checklist/foods/{foodID}/toggle", h.toggle).Methods(http.MethodPost)

	r.HandleFunc("/assess", h.assess).Methods(http.MethodPost)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.app.Profiles.Authenticate(r.Context(), payload.Name, payload.Email)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var draft profile.Draft
	if err := decodeJSON(r.Body, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.app.Profiles.RegisterOrReuse(r.Context(), draft)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"profile": res.Profile,
		"reused":  res.Reused,
	})
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Profiles.Current(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if p, err := h.app.Profiles.Current(r.Context()); err == nil {
		h.app.Checklist.Reset(p.ID)
	}
	if err := h.app.Profiles.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentProfile serves the freshest profile available: the remote row when
// reachable, the cached copy otherwise.
func (h *handler) currentProfile(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Profiles.Refresh(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateField(w http.ResponseWriter, r *http.Request) {
	field := mux.Vars(r)["field"]

	var payload struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id := payload.ID
	if id == "" {
		p, err := h.app.Profiles.Current(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		id = p.ID
	}

	updated, err := h.app.Profiles.UpdateField(r.Context(), id, field, payload.Value)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) updateImage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.app.Profiles.Current(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	updated, err := h.app.Profiles.UpdateImage(r.Context(), p.ID, payload.Image)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) catalog(w http.ResponseWriter, r *http.Request) {
	cat := h.app.Checklist.Catalog()
	if query := r.URL.Query().Get("q"); query != "" {
		writeJSON(w, http.StatusOK, map[string]any{"foods": cat.SearchFoods(query)})
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *handler) checklist(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Profiles.Current(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sections":  h.app.Checklist.Sections(p.ID),
		"completed": h.app.Checklist.Snapshot(p.ID),
	})
}

func (h *handler) toggle(w http.ResponseWriter, r *http.Request) {
	foodID := mux.Vars(r)["foodID"]

	p, err := h.app.Profiles.Current(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	transition, ack := h.app.Checklist.Toggle(p.ID, foodID)
	metrics.RecordToggle(transition.String())

	body := map[string]any{
		"food_id":    foodID,
		"completed":  transition == checklist.BecameComplete,
		"transition": transition.String(),
	}
	if ack != "" {
		body["acknowledgment"] = ack
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) assess(w http.ResponseWriter, r *http.Request) {
	if h.app.Vision == nil {
		writeError(w, http.StatusNotImplemented, errors.New("vision assessor not configured"))
		return
	}

	var payload struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The model sees the freshest profile available; a failed remote read
	// falls back to the cached copy inside Refresh.
	p, err := h.app.Profiles.Refresh(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	start := time.Now()
	summary, err := h.app.Vision.AssessImage(r.Context(), p, payload.Image)
	if err != nil {
		metrics.RecordAssessment("error", time.Since(start))
		writeError(w, statusFor(err), err)
		return
	}
	metrics.RecordAssessment("ok", time.Since(start))

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// statusFor maps domain errors onto HTTP statuses. Remote store and model
// failures become 502 so clients can tell them apart from their own
// mistakes; anything unclassified is a local fault and reads as 500.
func statusFor(err error) int {
	var remoteModel *vision.RemoteError
	var remoteStore *supabase.RemoteError
	switch {
	case errors.Is(err, profile.ErrValidation), errors.Is(err, profile.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, profile.ErrNotRegistered), errors.Is(err, profile.ErrNoSession),
		errors.Is(err, storage.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, profile.ErrCreationFailed), errors.Is(err, supabase.ErrCircuitOpen),
		errors.As(err, &remoteModel), errors.As(err, &remoteStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
