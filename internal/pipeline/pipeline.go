package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/events"
	"github.com/knowledge-gate/backend/internal/ingest"
	"github.com/knowledge-gate/backend/internal/knowledge"
	"github.com/knowledge-gate/backend/internal/metrics"
	"github.com/knowledge-gate/backend/internal/pending"
	"github.com/knowledge-gate/backend/internal/quality"
	"github.com/knowledge-gate/backend/internal/storage/models"
	"github.com/knowledge-gate/backend/pkg/config"
	"github.com/knowledge-gate/backend/pkg/logger"
)

// ErrStorageFailure marks an external store hand-off that failed. The
// submission is neither dropped nor retried here; the caller decides
// whether to resubmit or re-confirm.
var ErrStorageFailure = errors.New("knowledge store hand-off failed")

const (
	StatusRejected = "rejected"
	StatusPending  = "pending"
	StatusStored   = "stored"
)

// Outcome is the terminal result of processing or confirming a
// submission.
type Outcome struct {
	Status     string                `json:"status"`
	Reason     string                `json:"reason,omitempty"`
	StoredID   string                `json:"stored_id,omitempty"`
	PendingID  string                `json:"pending_id,omitempty"`
	Report     *quality.Report       `json:"report,omitempty"`
	Duplicates []knowledge.Duplicate `json:"duplicates,omitempty"`
}

// KnowledgeBase is what the pipeline needs from the knowledge layer.
type KnowledgeBase interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Store(ctx context.Context, sub knowledge.Submission, embedding []float32) (string, error)
	FindDuplicates(ctx context.Context, embedding []float32) ([]knowledge.Duplicate, error)
}

// AuditLog records decisions; a nil AuditLog disables auditing.
type AuditLog interface {
	InsertDecision(d *models.Decision) error
}

// Pipeline routes each submission through validate -> score ->
// duplicate check -> three-tier decision, and drives the pending
// confirmation flow. Rejected and pending submissions never touch the
// external store; approval writes exactly once.
type Pipeline struct {
	cfg       *config.QualityConfig
	validator *quality.Validator
	scorer    *quality.Scorer
	kb        KnowledgeBase
	pending   *pending.Store
	audit     AuditLog
	bus       *events.Bus
	now       func() time.Time
}

func New(cfg *config.QualityConfig, kb KnowledgeBase, pendingStore *pending.Store, audit AuditLog, bus *events.Bus) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		validator: quality.NewValidator(cfg),
		scorer:    quality.NewScorer(cfg),
		kb:        kb,
		pending:   pendingStore,
		audit:     audit,
		bus:       bus,
		now:       time.Now,
	}
}

// Process runs the full decision for one submission.
func (p *Pipeline) Process(ctx context.Context, sub knowledge.Submission) (*Outcome, error) {
	sub.Content = ingest.Normalize(sub.Content)

	if result := p.validator.Validate(sub.Content, sub.Type); !result.OK {
		outcome := &Outcome{Status: StatusRejected, Reason: result.Reason}
		p.finish(sub, nil, outcome)
		return outcome, nil
	}

	report := p.scorer.Score(sub.Content, sub.Type, sub.Source)
	metrics.CompositeScore.Observe(report.Composite)

	// The duplicate check needs the same embedding the store hand-off
	// would use, so both come from one Embed call. A failure here only
	// degrades duplicate visibility; it blocks nothing until the
	// approve path actually needs the vector.
	embedding, err := p.kb.Embed(ctx, sub.Content)
	if err != nil {
		logger.Warn("embedding generation failed", zap.Error(err))
		embedding = nil
	}

	var duplicates []knowledge.Duplicate
	if embedding != nil {
		duplicates, err = p.kb.FindDuplicates(ctx, embedding)
		if err != nil {
			logger.Warn("duplicate detection failed", zap.Error(err))
			duplicates = nil
		}
		if len(duplicates) > 0 {
			metrics.DuplicatesFound.Add(float64(len(duplicates)))
		}
	}

	rejectBelow := p.cfg.RejectThresholdFor(sub.Type)
	approveAbove := p.cfg.ApproveThresholdFor(sub.Type)

	switch {
	case report.Composite < rejectBelow:
		outcome := &Outcome{
			Status:     StatusRejected,
			Reason:     fmt.Sprintf("quality score %.2f below threshold %.2f", report.Composite, rejectBelow),
			Report:     &report,
			Duplicates: duplicates,
		}
		p.finish(sub, &report, outcome)
		return outcome, nil

	case report.Composite >= approveAbove:
		if embedding == nil {
			return nil, fmt.Errorf("%w: no embedding available", ErrStorageFailure)
		}

		start := p.now()
		storedID, err := p.kb.Store(ctx, sub, embedding)
		metrics.StoreDuration.Observe(p.now().Sub(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}

		outcome := &Outcome{
			Status:     StatusStored,
			StoredID:   storedID,
			Report:     &report,
			Duplicates: duplicates,
		}
		p.finish(sub, &report, outcome)
		return outcome, nil

	default:
		entry := p.pending.Add(sub, report, embedding, duplicates)
		metrics.PendingEntries.Set(float64(p.pending.Len()))

		outcome := &Outcome{
			Status:     StatusPending,
			PendingID:  entry.ID,
			Report:     &report,
			Duplicates: duplicates,
		}
		p.finish(sub, &report, outcome)
		return outcome, nil
	}
}

// Confirm resolves a pending entry. Approval hands the wrapped
// submission to the external store; rejection discards it. Either way
// the pending record is gone afterwards, so a second confirm of the
// same id reports NotFound.
func (p *Pipeline) Confirm(ctx context.Context, pendingID string, approved bool) (*Outcome, error) {
	entry, err := p.pending.Claim(pendingID)
	if err != nil {
		if errors.Is(err, pending.ErrExpired) {
			metrics.PendingExpired.Inc()
		}
		return nil, err
	}
	defer metrics.PendingEntries.Set(float64(p.pending.Len()))

	if !approved {
		metrics.Confirmations.WithLabelValues("rejected").Inc()
		outcome := &Outcome{
			Status: StatusRejected,
			Reason: "rejected by confirmation",
			Report: &entry.Report,
		}
		p.finish(entry.Submission, &entry.Report, outcome)
		return outcome, nil
	}

	embedding := entry.Embedding
	if embedding == nil {
		embedding, err = p.kb.Embed(ctx, entry.Submission.Content)
		if err != nil {
			p.pending.Restore(entry)
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
	}

	start := p.now()
	storedID, err := p.kb.Store(ctx, entry.Submission, embedding)
	metrics.StoreDuration.Observe(p.now().Sub(start).Seconds())
	if err != nil {
		// Put the claimed entry back so the caller can retry the
		// confirmation until the TTL runs out.
		p.pending.Restore(entry)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	metrics.Confirmations.WithLabelValues("approved").Inc()
	outcome := &Outcome{
		Status:   StatusStored,
		StoredID: storedID,
		Report:   &entry.Report,
	}
	p.finish(entry.Submission, &entry.Report, outcome)
	return outcome, nil
}

// ListPending returns the current confirmation queue, oldest first.
func (p *Pipeline) ListPending() []*pending.Entry {
	return p.pending.List()
}

// finish applies the shared decision side effects: metrics, audit
// record, event broadcast.
func (p *Pipeline) finish(sub knowledge.Submission, report *quality.Report, outcome *Outcome) {
	metrics.SubmissionsTotal.WithLabelValues(outcome.Status).Inc()

	decision := &models.Decision{
		ID:             uuid.New().String(),
		SubmissionType: sub.Type,
		Source:         sub.Source,
		Status:         outcome.Status,
		Reason:         outcome.Reason,
		StoredID:       outcome.StoredID,
		PendingID:      outcome.PendingID,
		DuplicateCount: len(outcome.Duplicates),
		CreatedAt:      p.now().UTC(),
	}
	if report != nil {
		decision.Relevance = report.Relevance
		decision.Completeness = report.Completeness
		decision.Credibility = report.Credibility
		decision.Composite = report.Composite
	}

	if p.audit != nil {
		if err := p.audit.InsertDecision(decision); err != nil {
			logger.Warn("failed to record decision", zap.Error(err))
		}
	}

	if p.bus != nil {
		p.bus.Publish(events.DecisionEvent{
			Status:         outcome.Status,
			Reason:         outcome.Reason,
			SubmissionType: sub.Type,
			Source:         sub.Source,
			Composite:      decision.Composite,
			StoredID:       outcome.StoredID,
			PendingID:      outcome.PendingID,
			Timestamp:      decision.CreatedAt,
		})
	}

	logger.Info("submission decided",
		zap.String("status", outcome.Status),
		zap.String("type", sub.Type),
		zap.String("source", sub.Source),
		zap.Float64("composite", decision.Composite),
	)
}
