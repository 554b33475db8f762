// Package review turns submitted source code into a structured, persisted review.
//
// A submission flows through: identity check, input validation, entitlement and
// free-tier quota, prompt construction, one call to the generation service,
// lenient extraction of the JSON payload (with a synthetic fallback), and
// persistence. Only the generation call and the store write block.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"coderoast-backend/apperr"
	"coderoast-backend/billing"
	"coderoast-backend/metrics"
	"coderoast-backend/models"
	"coderoast-backend/utils"
)

const (
	EntrypointWeb = "web"
	EntrypointAPI = "api"

	// MaxOutputTokens caps every generation call.
	MaxOutputTokens = 2000
	// DefaultLanguage applies to API requests that omit a language.
	DefaultLanguage = "javascript"
	// DefaultFreeLimit is the monthly review cap on the free plan.
	DefaultFreeLimit = 10
)

// Request is a code submission.
type Request struct {
	Code     string `json:"code" form:"code" validate:"required" normalize:"-"`
	Language string `json:"language" form:"language" validate:"required"`
}

func (Request) ValidationMessages() map[string]string {
	return map[string]string{
		"code.required":     "Code is required",
		"language.required": "Language is required",
	}
}

// Submission is the result handed back to the caller: the stored review's id
// plus the structured review.
type Submission struct {
	ID string `json:"id"`
	models.ReviewResult
	Degraded bool `json:"-"`
}

// Store persists reviews.
type Store interface {
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	Create(ctx context.Context, review *models.CodeReview) error
	ListRecent(ctx context.Context, userID string, limit int) ([]models.CodeReview, error)
	FindForUser(ctx context.Context, id, userID string) (*models.CodeReview, error)
}

// EntitlementResolver reports a user's current plan.
type EntitlementResolver interface {
	Resolve(ctx context.Context, userID string) (billing.Entitlement, error)
}

type Pipeline struct {
	store        Store
	entitlements EntitlementResolver
	generator    Generator
	logger       *slog.Logger
	metrics      *metrics.Metrics
	freeLimit    int
	maxTokens    int
	now          func() time.Time
}

type Option func(*Pipeline)

func WithMetrics(m *metrics.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// WithClock overrides the clock used for the quota window.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func WithFreeLimit(n int) Option { return func(p *Pipeline) { p.freeLimit = n } }

func WithMaxTokens(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

func NewPipeline(store Store, entitlements EntitlementResolver, generator Generator, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		entitlements: entitlements,
		generator:    generator,
		logger:       logger,
		freeLimit:    DefaultFreeLimit,
		maxTokens:    MaxOutputTokens,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs the interactive flow. Free-plan callers are capped per calendar
// month; any other plan skips the count, whatever its subscription status.
//
// The count and the insert are not atomic: two concurrent submissions at the
// limit can both pass. That overrun is tolerated.
func (p *Pipeline) Submit(ctx context.Context, userID string, req Request) (*Submission, error) {
	if userID == "" {
		p.metrics.Reject("unauthenticated")
		return nil, apperr.Unauthenticated("You must be logged in to review code")
	}
	if err := utils.ValidateStruct(req); err != nil {
		p.metrics.Reject("validation")
		return nil, err
	}

	ent, err := p.entitlements.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve entitlement: %w", err)
	}
	if ent.Plan == models.PlanFree {
		if err := p.checkQuota(ctx, userID); err != nil {
			return nil, err
		}
	}

	return p.run(ctx, userID, req, EntrypointWeb)
}

// Execute runs generation for a caller the API gateway already authorized.
// There is no quota on this path.
func (p *Pipeline) Execute(ctx context.Context, userID string, req Request) (*Submission, error) {
	if req.Code == "" {
		p.metrics.Reject("validation")
		return nil, apperr.FieldError("code", "Code is required")
	}
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	return p.run(ctx, userID, req, EntrypointAPI)
}

func (p *Pipeline) checkQuota(ctx context.Context, userID string) error {
	used, err := p.store.CountSince(ctx, userID, MonthStart(p.now()))
	if err != nil {
		return apperr.Persistence(err)
	}
	if used >= int64(p.freeLimit) {
		p.metrics.Reject("quota")
		return apperr.QuotaExceeded(fmt.Sprintf(
			"You've reached your monthly limit of %d free reviews. Please upgrade to continue.", p.freeLimit))
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, userID string, req Request, entrypoint string) (*Submission, error) {
	start := time.Now()
	raw, err := p.generator.Generate(ctx, BuildMessages(req.Code, req.Language), p.maxTokens)
	p.metrics.ObserveLLM(p.generator.Name(), upstreamStatus(err), time.Since(start))
	if err != nil {
		p.logger.Error("generation call failed", "provider", p.generator.Name(), "error", err)
		if !apperr.Is(err, apperr.KindTransport) {
			err = apperr.Transport(0, err)
		}
		return nil, err
	}

	salvaged := Salvage(raw)
	if salvaged.Degraded {
		p.logger.Warn("could not parse model output, using fallback review",
			"error", salvaged.Err, "raw", raw, "user_id", userID)
	}

	row := models.NewCodeReview(userID, req.Code, req.Language, salvaged.Result)
	row.CreatedAt = p.now()
	if err := p.store.Create(ctx, row); err != nil {
		p.logger.Error("saving review failed", "user_id", userID, "error", err)
		return nil, apperr.Persistence(err)
	}
	p.metrics.ObserveReview(entrypoint, salvaged.Degraded)

	return &Submission{ID: row.Id, ReviewResult: salvaged.Result, Degraded: salvaged.Degraded}, nil
}

func upstreamStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if e, ok := apperr.As(err); ok {
		return e.StatusCode
	}
	return 0
}

// Usage reports the caller's reviews in the current window against the free-plan limit.
func (p *Pipeline) Usage(ctx context.Context, userID string) (Usage, error) {
	used, err := p.store.CountSince(ctx, userID, MonthStart(p.now()))
	if err != nil {
		return Usage{}, apperr.Persistence(err)
	}
	return Usage{Used: used, Limit: p.freeLimit}, nil
}

// Recent returns the caller's newest reviews.
func (p *Pipeline) Recent(ctx context.Context, userID string, limit int) ([]models.CodeReview, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("You must be logged in")
	}
	if limit <= 0 {
		limit = 5
	}
	return p.store.ListRecent(ctx, userID, limit)
}

// Get returns one review owned by the caller. Reviews of other users are reported as not found.
func (p *Pipeline) Get(ctx context.Context, userID, id string) (*models.CodeReview, error) {
	if userID == "" {
		return nil, apperr.Unauthenticated("You must be logged in")
	}
	return p.store.FindForUser(ctx, id, userID)
}
