package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"amora/internal/screening/models"
	"amora/internal/screening/ports"
	"amora/internal/screening/service/session"
	"amora/pkg/platform/httputil"
	"amora/pkg/platform/sentinel"
	"amora/pkg/requestcontext"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

// Service defines the screening operations the handler exposes.
type Service interface {
	Start(ctx context.Context, userID id.UserID, segmentHint models.AudienceSegment) (*session.Result, error)
	Submit(ctx context.Context, userID id.UserID, questionID id.QuestionID, selected []id.AnswerID) (*session.Result, error)
	GetStatus(ctx context.Context, userID id.UserID) (*session.Status, error)
}

// Handler wires screening endpoints to the session service. Mutating
// endpoints run under the per-user lease; the engine relies on that for its
// no-concurrent-mutations assumption.
type Handler struct {
	service Service
	locker  ports.Locker
	logger  *slog.Logger
}

func New(service Service, locker ports.Locker, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		locker:  locker,
		logger:  logger,
	}
}

// Register mounts screening endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/screening/start", h.HandleStart)
	r.Post("/screening/answers", h.HandleSubmit)
	r.Get("/screening/status", h.HandleStatus)
}

// HandleStart handles POST /screening/start requests.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	// the body is optional; an absent body means no segment hint
	req := &StartRequest{}
	if r.ContentLength != 0 {
		req, ok = httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	} else if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	release, ok := h.acquire(w, ctx, userID)
	if !ok {
		return
	}
	defer release()

	result, err := h.service.Start(ctx, userID, req.ParsedSegment())
	if err != nil {
		h.logger.ErrorContext(ctx, "screening start failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleSubmit handles POST /screening/answers requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	release, ok := h.acquire(w, ctx, userID)
	if !ok {
		return
	}
	defer release()

	result, err := h.service.Submit(ctx, userID, req.ParsedQuestionID(), req.ParsedAnswerIDs())
	if err != nil {
		h.logger.ErrorContext(ctx, "screening submission failed",
			"request_id", requestID,
			"user_id", userID,
			"question_id", req.QuestionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if result.Terminal() {
		h.logger.InfoContext(ctx, "screening finished",
			"request_id", requestID,
			"user_id", userID,
			"outcome", result.Outcome,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleStatus handles GET /screening/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	status, err := h.service.GetStatus(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "screening status read failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromStatus(status))
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) acquire(w http.ResponseWriter, ctx context.Context, userID id.UserID) (func(), bool) {
	release, err := h.locker.Acquire(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "another screening request is in progress"))
		} else {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to serialize screening request"))
		}
		return nil, false
	}
	return release, true
}
