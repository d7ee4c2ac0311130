package consent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atrium/internal/site"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	"atrium/pkg/requestcontext"
)

// BannerService is the slice of Service the HTTP layer needs.
type BannerService interface {
	Status(ctx context.Context, st *site.Site, subject string) (Status, error)
	Decide(ctx context.Context, st *site.Site, subject string, decisions map[Category]bool) error
	Revoke(ctx context.Context, st *site.Site, subject string) error
}

// Handler exposes the consent banner endpoints for one site.
type Handler struct {
	service BannerService
	site    *site.Site
	logger  *slog.Logger
}

func NewHandler(service BannerService, st *site.Site, logger *slog.Logger) *Handler {
	return &Handler{service: service, site: st, logger: logger}
}

// Register mounts the privacy routes on the site router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/privacy/consent", h.handleStatus)
	r.Post("/privacy/consent", h.handleDecide)
	r.Delete("/privacy/consent", h.handleRevoke)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.service.Status(ctx, h.site, Subject(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "consent status failed",
			"request_id", requestcontext.RequestID(ctx),
			"site", h.site.Key,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

type decideRequest struct {
	Decisions map[Category]bool `json:"decisions"`
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.service.Decide(ctx, h.site, Subject(ctx), req.Decisions); err != nil {
		if !dErrors.Is(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "consent decide failed",
				"request_id", requestcontext.RequestID(ctx),
				"site", h.site.Key,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Revoke(ctx, h.site, Subject(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
