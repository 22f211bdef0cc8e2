package urls

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	middle "keepalive/internals/middleware"
	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/registry"
	"keepalive/internals/modules/status"
	"keepalive/pkg/apperror"
	"keepalive/pkg/utils"
)

type Registry interface {
	AddURL(ctx context.Context, userID, raw string) ([]registry.MonitoredURL, error)
	RemoveURL(ctx context.Context, userID, raw string) ([]registry.MonitoredURL, error)
	ListURLs(ctx context.Context, userID string) ([]registry.MonitoredURL, error)
}

type StatusReader interface {
	StatusFor(userID string, owned []string) status.UserStatusView
	History(userID, url string) []prober.Result
}

type Handler struct {
	registry  Registry
	status    StatusReader
	validator *validator.Validate
}

func NewHandler(reg Registry, st StatusReader, validator *validator.Validate) *Handler {
	return &Handler{
		registry:  reg,
		status:    st,
		validator: validator,
	}
}

func (h *Handler) GetURLs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "Unauthorized")
		return
	}

	set, err := h.registry.ListURLs(ctx, user.UserID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	owned := registry.URLs(set)
	view := h.status.StatusFor(user.UserID, owned)

	utils.WriteJSON(w, http.StatusOK, GetURLsResponse{
		URLs:    owned,
		Status:  view.Status,
		Details: view.PerURL,
	})
}

func (h *Handler) AddURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "Unauthorized")
		return
	}

	req, ok := h.decode(w, r, reqID)
	if !ok {
		return
	}

	set, err := h.registry.AddURL(ctx, user.UserID, req.URL)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, URLsResponse{URLs: registry.URLs(set)})
}

func (h *Handler) RemoveURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "Unauthorized")
		return
	}

	req, ok := h.decode(w, r, reqID)
	if !ok {
		return
	}

	set, err := h.registry.RemoveURL(ctx, user.UserID, req.URL)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, URLsResponse{URLs: registry.URLs(set)})
}

// GET /api/url-history?url=...
func (h *Handler) URLHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	user, ok := middle.UserFromContext(ctx)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "Unauthorized")
		return
	}

	url := registry.Normalize(r.URL.Query().Get("url"))
	if url == "" {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "url query parameter is required")
		return
	}

	set, err := h.registry.ListURLs(ctx, user.UserID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	if !owns(set, url) {
		utils.WriteError(w, http.StatusNotFound, reqID, apperror.NotFound, "url not registered: "+url)
		return
	}

	results := h.status.History(user.UserID, url)
	if results == nil {
		results = []prober.Result{}
	}

	utils.WriteJSON(w, http.StatusOK, URLHistoryResponse{URL: url, Results: results})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, reqID string) (URLRequest, bool) {
	var req URLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "url is required")
		return req, false
	}

	return req, true
}

func owns(set []registry.MonitoredURL, url string) bool {
	for _, m := range set {
		if m.URL == url {
			return true
		}
	}
	return false
}
