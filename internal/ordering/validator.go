package ordering

import (
	"context"
	"time"

	"replog/internal/model"
	"replog/internal/rerrors"
)

// Config holds the gap-wait tunables.
type Config struct {
	OrderDiffMultiplier      float64
	OrderCorrectionTimeLimit time.Duration
	RequestTimeout           time.Duration // the gap-wait ceiling is this minus 10s.
}

// DefaultConfig returns limit 60s, multiplier 0.2, request timeout 120s.
func DefaultConfig() Config {
	return Config{
		OrderDiffMultiplier:      0.2,
		OrderCorrectionTimeLimit: 60 * time.Second,
		RequestTimeout:           120 * time.Second,
	}
}

// Classify decides, given an incoming replica and the current state,
// whether it is Correct, Disordered, Belated, or Invalid.
func Classify(s *State, replica model.Replica) Verdict {
	if s.Duplicate(replica.ID) {
		return Invalid
	}
	c := s.CurrentOrdering()
	switch {
	case replica.Order <= c && s.HasLostMessages():
		return Belated
	case replica.Order <= c:
		return Invalid
	case replica.Order == c+1:
		return Correct
	default:
		return Disordered
	}
}

// gapWaitBudget computes the wait time budget for a Disordered replica:
// ORDER_CORRECTION_TIME_LIMIT_MS + ORDER_DIFF_MULTIPLIER*(diff-2)*ORDER_CORRECTION_TIME_LIMIT_MS,
// capped at REQ_TIMEOUT_MS - 10s.
func gapWaitBudget(cfg Config, diff uint32) time.Duration {
	limit := cfg.OrderCorrectionTimeLimit
	budget := limit + time.Duration(cfg.OrderDiffMultiplier*float64(int64(diff)-2)*float64(limit))
	ceiling := cfg.RequestTimeout - 10*time.Second
	if budget > ceiling {
		budget = ceiling
	}
	if budget < 0 {
		budget = 0
	}
	return budget
}

// GapWait polls every second for current_ordering to reach order-1, up to
// the computed budget. On timeout, it adds diff-1 to messages_lost and
// returns rerrors.OrderingTimeout. The caller must still append the
// replica: a gap-wait timeout is not a rejection, it is an acceptance with
// a recorded gap.
func GapWait(ctx context.Context, cfg Config, s *State, order uint32) error {
	c := s.CurrentOrdering()
	diff := order - c
	budget := gapWaitBudget(cfg, diff)

	deadline := time.Now().Add(budget)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if s.CurrentOrdering() == order-1 {
			return nil
		}
		if time.Now().After(deadline) {
			s.ModifyLostMessageCount(int32(diff) - 1)
			return rerrors.OrderingTimeout("gap_wait", nil)
		}
		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Apply performs the per-verdict state-mutation effects for a classified
// replica. It appends to appendFn when the replica is accepted (Correct, Belated, or
// Disordered after a successful or timed-out gap wait) and returns an error
// only for Invalid (no state change) or context cancellation. A Disordered
// replica whose gap wait is cut short by ctx cancellation is still appended
// and still advances current_ordering; the ctx error is then returned.
func Apply(ctx context.Context, cfg Config, s *State, replica model.Replica, verdict Verdict, appendFn func(content string)) error {
	switch verdict {
	case Invalid:
		return rerrors.ValidationInvalid("apply", nil)

	case Correct:
		s.RegisterID(replica.ID)
		appendFn(replica.Content)
		s.SetCurrentOrdering(replica.Order)
		return nil

	case Belated:
		s.RegisterID(replica.ID)
		s.ModifyLostMessageCount(-1)
		appendFn(replica.Content)
		return nil

	case Disordered:
		s.RegisterID(replica.ID)
		err := GapWait(ctx, cfg, s, replica.Order)
		appendFn(replica.Content)
		s.SetCurrentOrdering(replica.Order)
		if err != nil && rerrors.IsKind(err, rerrors.KindOrderingTimeout) {
			return nil // timed out, but still accepted
		}
		return err

	default:
		return rerrors.ValidationInvalid("apply", nil)
	}
}
