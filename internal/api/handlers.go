package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"secret.share/config"
	"secret.share/internal/gate"
	"secret.share/internal/logging"
	"secret.share/internal/models"
	"secret.share/internal/secrets"

	"github.com/go-chi/chi/v5"
)

// Every denial looks the same to the caller so that existence, expiry and
// password correctness cannot be told apart.
const denialMessage = "incorrect password or expired secret"

type Handler struct {
	secrets *secrets.Service
	gate    *gate.Gate
	config  *config.Config
	log     *logging.Logger
}

func NewHandler(svc *secrets.Service, g *gate.Gate, cfg *config.Config, log *logging.Logger) *Handler {
	return &Handler{
		secrets: svc,
		gate:    g,
		config:  cfg,
		log:     log,
	}
}

type CreateRequest struct {
	Text             string              `json:"text,omitempty"`
	File             *models.File        `json:"file,omitempty"`
	Password         string              `json:"password,omitempty"`
	GeneratePassword bool                `json:"generate_password,omitempty"`
	Expiry           models.ExpiryPolicy `json:"expiry"`
	NotifyEmail      string              `json:"notify_email,omitempty"`
}

type CreateResponse struct {
	ID       string              `json:"id"`
	URL      string              `json:"url"`
	Password string              `json:"password,omitempty"`
	Expiry   models.ExpiryPolicy `json:"expiry"`
}

type ViewRequest struct {
	Password string `json:"password"`
}

type ViewResponse struct {
	Kind      models.ContentKind `json:"kind"`
	Text      string             `json:"text,omitempty"`
	File      *models.File       `json:"file,omitempty"`
	Remaining gate.Remaining     `json:"remaining"`
	Message   string             `json:"message"`
}

type StatsResponse struct {
	Active int `json:"active"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Expiry.Kind == "" {
		req.Expiry.Kind = models.PolicyTime
	}

	created, err := h.secrets.Create(r.Context(), secrets.CreateParams{
		Text:             req.Text,
		File:             req.File,
		Password:         req.Password,
		GeneratePassword: req.GeneratePassword,
		Policy:           req.Expiry,
		NotifyEmail:      req.NotifyEmail,
	})
	if err != nil {
		if errors.Is(err, secrets.ErrInvalid) {
			writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), secrets.ErrInvalid.Error()+": "))
			return
		}
		h.log.Errorf("create secret: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save secret")
		return
	}

	url := strings.TrimRight(h.config.Server.BaseURL, "/") + "/s/" + created.Secret.ID
	if created.Password != "" {
		url += "#" + created.Password
	}

	h.log.Infof("secret %s created (%s %d)", created.Secret.ID, created.Secret.Policy.Kind, created.Secret.Policy.Value)
	writeJSON(w, http.StatusCreated, CreateResponse{
		ID:       created.Secret.ID,
		URL:      url,
		Password: created.Password,
		Expiry:   created.Secret.Policy,
	})
}

func (h *Handler) ViewSecret(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ViewRequest
	if !h.decode(w, r, &req) {
		return
	}

	grant, err := h.gate.Attempt(r.Context(), id, req.Password, h.viewer(r))
	if err != nil {
		h.handleGateError(w, id, err)
		return
	}

	resp := ViewResponse{
		Kind:      grant.Content.Kind,
		Remaining: grant.Remaining,
		Message:   grant.Remaining.Message(),
	}
	switch grant.Content.Kind {
	case models.ContentFile:
		resp.File = grant.Content.File
	default:
		resp.Text = grant.Content.Text
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.secrets.Status(r.Context(), id)
	if err != nil {
		h.log.Errorf("status %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := h.secrets.ActiveCount(r.Context())
	if err != nil {
		h.log.Errorf("stats: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Active: n})
}

func (h *Handler) viewer(r *http.Request) gate.Viewer {
	v := gate.Viewer{UserAgent: r.UserAgent(), Location: "unknown"}
	if v.UserAgent == "" {
		v.UserAgent = "unknown"
	}
	if hdr := h.config.Notify.LocationHeader; hdr != "" {
		if loc := strings.TrimSpace(r.Header.Get(hdr)); loc != "" {
			v.Location = loc
		}
	}
	return v
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *Handler) handleGateError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, gate.ErrNotFound),
		errors.Is(err, gate.ErrExpired),
		errors.Is(err, gate.ErrWrongPassword):
		h.log.Debugf("view %s denied: %v", id, err)
		writeError(w, http.StatusForbidden, denialMessage)
	case errors.Is(err, gate.ErrConflict):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "please retry")
	case errors.Is(err, gate.ErrIntegrity):
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		h.log.Errorf("view %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

