package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/sheetpattern/internal/auth"
	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/recorder"
	"github.com/rpattn/sheetpattern/internal/repository"
	"github.com/rpattn/sheetpattern/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidPattern    = errors.New("invalid pattern")
)

// Service threads recorder state through a Store, one session at a time.
type Service struct {
	recorder  *recorder.Recorder
	store     Store
	patterns  repository.PatternRepository
	validator *validator.StepValidator
	logger    *zap.Logger
	locks     *keyedMutex
	clock     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock used to stamp events decoded without a
// timestamp and for snapshot bookkeeping.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService builds a session service. patterns may be nil when sessions are
// never finished into stored patterns.
func NewService(rec *recorder.Recorder, store Store, patterns repository.PatternRepository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		recorder:  rec,
		store:     store,
		patterns:  patterns,
		validator: &validator.StepValidator{AllowNegativeIndices: true},
		logger:    logger,
		locks:     newKeyedMutex(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordResult is what the transport reports back for one event.
type RecordResult struct {
	SessionID     string               `json:"sessionId"`
	Recorded      bool                 `json:"recorded"`
	Merged        bool                 `json:"merged"`
	Type          domain.StepType      `json:"type,omitempty"`
	StepIndex     int                  `json:"stepIndex"`
	Step          *domain.PatternStep  `json:"step,omitempty"`
	SkippedReason string               `json:"skippedReason,omitempty"`
	Steps         []domain.PatternStep `json:"steps"`
}

// Record folds event into the session's snapshot, using event.Timestamp as
// the logical clock. When the store fails the previous snapshot is left as it
// was.
func (s *Service) Record(ctx context.Context, sessionID string, event domain.EditEvent) (RecordResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return RecordResult{}, ErrSessionIDRequired
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	snapshot, _, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return RecordResult{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	outcome := s.recorder.Record(snapshot.Steps, snapshot.State, event)
	result := RecordResult{
		SessionID:     sessionID,
		Recorded:      outcome.Recorded,
		Merged:        outcome.Merged,
		Type:          outcome.Type,
		StepIndex:     outcome.StepIndex,
		SkippedReason: outcome.SkippedReason,
		Steps:         outcome.Steps,
	}
	if result.Steps == nil {
		result.Steps = []domain.PatternStep{}
	}
	step, ok := outcome.Step()
	if !outcome.Recorded || !ok {
		s.logger.Debug("edit event skipped",
			zap.String("session", sessionID),
			zap.String("kind", string(event.Kind)),
			zap.String("reason", outcome.SkippedReason))
		return result, nil
	}
	result.Step = &step

	next := Snapshot{Steps: outcome.Steps, State: outcome.State, UpdatedAt: s.clock()}
	if err := s.store.Save(ctx, sessionID, next); err != nil {
		return RecordResult{}, fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}

	s.logger.Debug("edit event recorded",
		zap.String("session", sessionID),
		zap.String("type", string(outcome.Type)),
		zap.Bool("merged", outcome.Merged),
		zap.Int("steps", len(outcome.Steps)))
	return result, nil
}

// Snapshot returns the session's current progress.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Snapshot{}, ErrSessionIDRequired
	}

	snapshot, ok, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if snapshot.Steps == nil {
		snapshot.Steps = []domain.PatternStep{}
	}
	return snapshot, nil
}

// Discard drops the session. Discarding an unknown session is not an error.
func (s *Service) Discard(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrSessionIDRequired
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to discard session %s: %w", sessionID, err)
	}
	return nil
}

// FinishRequest names the pattern a finished session is stored as.
type FinishRequest struct {
	SessionID   string
	WorkspaceID uuid.UUID
	Name        string
	Description string
}

// Finish stores the session's steps as a pattern and discards the session.
func (s *Service) Finish(ctx context.Context, req FinishRequest) (domain.Pattern, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return domain.Pattern{}, ErrSessionIDRequired
	}
	if s.patterns == nil {
		return domain.Pattern{}, fmt.Errorf("pattern repository not configured")
	}

	workspaceID := req.WorkspaceID
	if workspaceID == uuid.Nil {
		workspaceID, _ = auth.WorkspaceIDFromContext(ctx)
	}
	if err := auth.EnforceWorkspaceScope(ctx, workspaceID); err != nil {
		return domain.Pattern{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Pattern{}, fmt.Errorf("%w: name is required", ErrInvalidPattern)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	snapshot, ok, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return domain.Pattern{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if !ok {
		return domain.Pattern{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if len(snapshot.Steps) == 0 {
		return domain.Pattern{}, fmt.Errorf("%w: session %s has no steps", ErrInvalidPattern, sessionID)
	}
	if err := s.validator.Validate(snapshot.Steps).Err(); err != nil {
		return domain.Pattern{}, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	pattern := domain.NewPattern(workspaceID, name, strings.TrimSpace(req.Description), s.recorder.HeaderRowIndex(), snapshot.Steps)
	created, err := s.patterns.Create(ctx, pattern)
	if err != nil {
		return domain.Pattern{}, fmt.Errorf("failed to store pattern: %w", err)
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to discard finished session", zap.String("session", sessionID), zap.Error(err))
	}

	s.logger.Info("session finished",
		zap.String("session", sessionID),
		zap.String("pattern", created.ID.String()),
		zap.Int("steps", len(created.Steps)),
		zap.Int("structural", created.StructuralStepCount()))
	return created, nil
}
