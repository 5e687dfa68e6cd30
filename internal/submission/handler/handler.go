// Package handler exposes the submission service over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"supplierflow/internal/completeness"
	"supplierflow/internal/matcher"
	"supplierflow/internal/review"
	"supplierflow/internal/submission/models"
	"supplierflow/internal/submission/service"
	"supplierflow/internal/submission/store"
	id "supplierflow/pkg/domain"
	dErrors "supplierflow/pkg/domain-errors"
	"supplierflow/pkg/platform/httputil"
	"supplierflow/pkg/requestcontext"
)

const maxListLimit = 500

// Service is the submission lifecycle as the HTTP layer sees it.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Submission, error)
	Get(ctx context.Context, subID id.SubmissionID) (*models.Submission, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.Submission, error)
	History(ctx context.Context, subID id.SubmissionID) ([]models.IndexEntry, error)
	Missing(ctx context.Context, subID id.SubmissionID, scope completeness.Scope) (completeness.Missing, error)
	Screen(ctx context.Context, name string) (matcher.Report, error)
	Amend(ctx context.Context, subID id.SubmissionID, req service.AmendRequest) (*service.Result, error)
	Submit(ctx context.Context, subID id.SubmissionID) (*service.Result, error)
	Resubmit(ctx context.Context, subID id.SubmissionID) (*service.Result, error)
	Review(ctx context.Context, subID id.SubmissionID, req review.Request) (*service.Result, error)
	RecordSDSResponse(ctx context.Context, subID id.SubmissionID) (*service.Result, error)
}

// Handler serves the /submissions and /screening routes.
type Handler struct {
	service Service
	logger  *slog.Logger
	reviews *reviewValidator
}

// New compiles the review schemas and returns a handler.
func New(svc Service, logger *slog.Logger) (*Handler, error) {
	reviews, err := newReviewValidator()
	if err != nil {
		return nil, err
	}
	return &Handler{service: svc, logger: logger, reviews: reviews}, nil
}

// Register mounts the submission routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/submissions", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleAmend)
			r.Get("/missing", h.handleMissing)
			r.Get("/history", h.handleHistory)
			r.Post("/submit", h.handleSubmit)
			r.Post("/resubmit", h.handleResubmit)
			r.Post("/reviews/{role}", h.handleReview)
			r.Post("/sds-response", h.handleSDSResponse)
		})
	})
	r.Post("/screening", h.handleScreen)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateSubmissionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sub, err := h.service.Create(ctx, req.toService())
	if err != nil {
		h.fail(ctx, w, "create submission", err)
		return
	}
	w.Header().Set("Location", "/submissions/"+sub.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subs, err := h.service.List(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "list submissions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubmissionListResponse{Submissions: subs, Count: len(subs)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	sub, err := h.service.Get(ctx, subID)
	if err != nil {
		h.fail(ctx, w, "get submission", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSubmissionResponse(sub, requestcontext.Now(ctx)))
}

func (h *Handler) handleAmend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AmendSubmissionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.respond(ctx, w, "amend submission", func() (*service.Result, error) {
		return h.service.Amend(ctx, subID, service.AmendRequest{Fields: req.Fields, Documents: req.Documents})
	})
}

func (h *Handler) handleMissing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	scope := completeness.All
	if raw := r.URL.Query().Get("scope"); raw != "" {
		parsed, err := completeness.ParseScope(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		scope = parsed
	}
	missing, err := h.service.Missing(ctx, subID, scope)
	if err != nil {
		h.fail(ctx, w, "check completeness", err)
		return
	}
	if missing == nil {
		missing = completeness.Missing{}
	}
	resp := MissingResponse{Scope: scope, Complete: missing.Empty(), Missing: missing}
	if scope == completeness.All && !missing.Empty() {
		resp.Sections = missing.BySection()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.History(ctx, subID)
	if err != nil {
		h.fail(ctx, w, "load history", err)
		return
	}
	if entries == nil {
		entries = []models.IndexEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	h.respond(ctx, w, "submit", func() (*service.Result, error) {
		return h.service.Submit(ctx, subID)
	})
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	h.respond(ctx, w, "resubmit", func() (*service.Result, error) {
		return h.service.Resubmit(ctx, subID)
	})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	role := models.Role(strings.ToLower(chi.URLParam(r, "role")))
	if !role.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown reviewer role "+string(role)))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}
	req, err := h.reviews.decode(role, body)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid review",
			"request_id", requestcontext.RequestID(ctx),
			"role", role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.respond(ctx, w, "record "+string(role)+" review", func() (*service.Result, error) {
		return h.service.Review(ctx, subID, req)
	})
}

func (h *Handler) handleSDSResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, ok := h.submissionID(w, r)
	if !ok {
		return
	}
	h.respond(ctx, w, "record SDS response", func() (*service.Result, error) {
		return h.service.RecordSDSResponse(ctx, subID)
	})
}

func (h *Handler) handleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ScreeningRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	report, err := h.service.Screen(ctx, req.Name)
	if err != nil {
		h.fail(ctx, w, "screen supplier name", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, action string, run func() (*service.Result, error)) {
	res, err := run()
	if err != nil {
		h.fail(ctx, w, action, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransitionResponse(res, requestcontext.Now(ctx)))
}

// fail logs at warn for caller mistakes and at error for everything the
// caller could not have caused.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	requestID := requestcontext.RequestID(ctx)
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, "failed to "+action, "request_id", requestID, "error", err)
	default:
		h.logger.WarnContext(ctx, "rejected "+action, "request_id", requestID, "code", code, "error", err)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) submissionID(w http.ResponseWriter, r *http.Request) (id.SubmissionID, bool) {
	subID, err := id.ParseSubmissionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.SubmissionID{}, false
	}
	return subID, true
}

func parseListFilter(r *http.Request) (store.ListFilter, error) {
	q := r.URL.Query()
	var filter store.ListFilter
	for _, raw := range q["status"] {
		for _, part := range strings.Split(raw, ",") {
			status := models.Status(strings.TrimSpace(part))
			if status == "" {
				continue
			}
			if !status.IsValid() {
				return store.ListFilter{}, dErrors.New(dErrors.CodeInvalidInput, "unknown status "+string(status))
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := strings.TrimSpace(q.Get("stage")); raw != "" {
		stage := models.Stage(raw)
		if !stage.IsValid() {
			return store.ListFilter{}, dErrors.New(dErrors.CodeInvalidInput, "unknown stage "+raw)
		}
		filter.Stage = stage
	}
	filter.SubmittedBy = strings.TrimSpace(q.Get("submitted_by"))
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return store.ListFilter{}, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and "+strconv.Itoa(maxListLimit))
		}
		filter.Limit = limit
	}
	return filter, nil
}
