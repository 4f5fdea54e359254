package client

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"client-registry/internal/httpx"
	"client-registry/internal/observability"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type stateRequest struct {
	State *int `json:"state" validate:"required,min=1"`
}

type pnumberRequest struct {
	ClientID string `json:"clientId" validate:"required,uuid"`
	Pnumber  string `json:"pnumber" validate:"required,max=45"`
}

func (r *pnumberRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.Pnumber = strings.TrimSpace(r.Pnumber)
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.repo.List(r.Context())
	if err != nil {
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, clients)
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get client")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var input Input
	if !httpx.Bind(w, r, &input) {
		return
	}

	c, err := h.repo.Create(r.Context(), input)
	if err != nil {
		writeRepoError(w, err, "failed to create client")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var input Input
	if !httpx.Bind(w, r, &input) {
		return
	}

	c, err := h.repo.Update(r.Context(), id, input)
	if err != nil {
		writeRepoError(w, err, "failed to update client")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to delete client")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Client deleted successfully")
}

func (h *Handler) UpdateClientState(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var body stateRequest
	if !httpx.Bind(w, r, &body) {
		return
	}

	if err := h.repo.UpdateState(r.Context(), id, body.State); err != nil {
		writeRepoError(w, err, "failed to update client state")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Client state updated successfully")
}

func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.repo.ListStates(r.Context())
	if err != nil {
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list states")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, states)
}

func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	organizations, err := h.repo.ListOrganizations(r.Context())
	if err != nil {
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list organizations")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, organizations)
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body pnumberRequest
	if !httpx.Bind(w, r, &body) {
		return
	}

	req, err := h.repo.CreateRequest(r.Context(), body.ClientID, body.Pnumber)
	if err != nil {
		writeRepoError(w, err, "failed to create request")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"message":   "Request created successfully",
		"requestId": req.ID,
	})
}

func (h *Handler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.repo.PendingRequests(r.Context())
	if err != nil {
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list pending requests")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) UpdatePnumber(w http.ResponseWriter, r *http.Request) {
	var body pnumberRequest
	if !httpx.Bind(w, r, &body) {
		return
	}

	if err := h.repo.AcceptRequest(r.Context(), body.ClientID, body.Pnumber); err != nil {
		writeRepoError(w, err, "failed to update pnumber")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Pnumber updated successfully")
}

func (h *Handler) AcceptedRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.repo.AcceptedRequests(r.Context())
	if err != nil {
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list accepted requests")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, requests)
}

func clientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid client id")
		return "", false
	}
	return id, true
}

func writeRepoError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrClientNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Client not found")
	case errors.Is(err, ErrNoPendingRequest):
		httpx.WriteError(w, http.StatusNotFound, "No pending request found for this client")
	case errors.Is(err, ErrUnknownState):
		httpx.WriteError(w, http.StatusBadRequest, "Unknown state")
	default:
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
