package transcript

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
	"github.com/CADX03/AI-Voice-Assistant/internal/resilience"
)

// FallbackStore writes to a primary [Store] and diverts messages to a
// secondary store while the primary fails. A circuit breaker stops the
// primary from being called on every message once it is known to be down.
type FallbackStore struct {
	primary   Store
	secondary Store
	breaker   *resilience.Breaker
	log       *slog.Logger
}

var _ Store = (*FallbackStore)(nil)

// NewFallbackStore returns a [FallbackStore]. cfg tunes the breaker guarding
// primary; its Logger is also used for fallback warnings.
func NewFallbackStore(primary, secondary Store, cfg resilience.Config) *FallbackStore {
	if cfg.Name == "" {
		cfg.Name = "transcript"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		breaker:   resilience.New(cfg),
		log:       cfg.Logger,
	}
}

// Append implements [Store]. It fails only when both stores fail.
func (s *FallbackStore) Append(ctx context.Context, sessionID string, m protocol.Message) error {
	err := s.breaker.Do(func() error { return s.primary.Append(ctx, sessionID, m) })
	if err == nil {
		return nil
	}
	if !errors.Is(err, resilience.ErrOpen) {
		s.log.Warn("transcript: primary store failed, using fallback", "session_id", sessionID, "err", err)
	}
	if ferr := s.secondary.Append(ctx, sessionID, m); ferr != nil {
		return errors.Join(err, ferr)
	}
	return nil
}

// List implements [Store]. Messages held by the secondary store follow the
// ones the primary persisted. An unreachable primary is skipped.
func (s *FallbackStore) List(ctx context.Context, sessionID string) ([]protocol.Message, error) {
	var out []protocol.Message
	err := s.breaker.Do(func() error {
		msgs, err := s.primary.List(ctx, sessionID)
		out = msgs
		return err
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		s.log.Warn("transcript: primary list failed", "session_id", sessionID, "err", err)
	}

	rest, ferr := s.secondary.List(ctx, sessionID)
	if ferr != nil {
		if err != nil {
			return nil, errors.Join(err, ferr)
		}
		return out, nil
	}
	out = append(out, rest...)
	if out == nil {
		out = []protocol.Message{}
	}
	return out, nil
}

// State reports the state of the breaker guarding the primary store.
func (s *FallbackStore) State() resilience.State {
	return s.breaker.State()
}
