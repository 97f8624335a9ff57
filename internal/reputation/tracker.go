// Package reputation implements bounded trust scoring for trading
// participants. Scores live in [MinScore, MaxScore]; a participant with no
// record reads as the neutral default, so new sellers are matchable before
// their first trade settles.
package reputation

import (
	"context"
	"errors"

	"github.com/gridwatt/exchange/internal/model"
	"github.com/gridwatt/exchange/internal/store"
)

const (
	// DefaultScore is the neutral score for accounts with no record.
	DefaultScore = 500

	// MinScore and MaxScore bound every update.
	MinScore = 0
	MaxScore = 1000

	// SuccessReward is added to the score for a settled trade.
	SuccessReward = 10

	// FailurePenalty is subtracted for a failed outcome. No caller reports
	// failures yet (there is no dispute path), but the branch is part of
	// the tracker's contract.
	FailurePenalty = 20
)

// Tracker owns per-account reputation records. Records are materialized
// lazily on first update and never deleted; the only mutator is
// RecordOutcome, invoked by trade settlement.
type Tracker struct {
	store store.Store
}

// NewTracker creates a tracker over the given store.
func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st}
}

// Get returns the account's reputation, or the default triple (0, 0, 500)
// when no record exists. Pure read.
func (t *Tracker) Get(ctx context.Context, account string) (*model.Reputation, error) {
	r, err := t.store.GetReputation(ctx, account)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return &model.Reputation{Account: account, Score: DefaultScore}, nil
		}
		return nil, err
	}
	return r, nil
}

// RecordOutcome registers one trade outcome for the account: the total
// counter always increments, the successful counter and score move per the
// outcome, and the score is clamped to [MinScore, MaxScore].
//
// The store argument is the transaction scope settlement runs in; pass
// t.store-backed Store when no transaction is open.
func (t *Tracker) RecordOutcome(ctx context.Context, s store.Store, account string, successful bool) error {
	r, err := s.GetReputation(ctx, account)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		r = &model.Reputation{Account: account, Score: DefaultScore}
	}

	r.TotalTrades++
	if successful {
		r.SuccessfulTrades++
		if r.Score+SuccessReward > MaxScore {
			r.Score = MaxScore
		} else {
			r.Score += SuccessReward
		}
	} else {
		if r.Score < FailurePenalty {
			r.Score = MinScore
		} else {
			r.Score -= FailurePenalty
		}
	}

	return s.PutReputation(ctx, r)
}
