package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/repository"
)

const defaultVoteAttempts = 3

// VoteDecision is the ledger write and counter deltas for one vote request.
type VoteDecision struct {
	Action        repository.VoteAction
	Value         int
	LikesDelta    int
	DislikesDelta int
}

// Result is the caller's vote after the decision is applied, nil when the
// vote was toggled off.
func (d VoteDecision) Result() *int {
	if d.Action == repository.VoteDelete {
		return nil
	}
	v := d.Value
	return &v
}

func validVote(value int) bool {
	return value == models.VoteLike || value == models.VoteDislike
}

// DecideVote resolves a request against the existing vote (nil when absent).
// Resubmitting the same value removes the vote; a counter is only ever
// decremented for the vote that incremented it.
func DecideVote(existing *int, requested int) VoteDecision {
	delta := func(v, sign int) (int, int) {
		if v == models.VoteLike {
			return sign, 0
		}
		return 0, sign
	}

	if existing == nil {
		l, d := delta(requested, 1)
		return VoteDecision{Action: repository.VoteCreate, Value: requested, LikesDelta: l, DislikesDelta: d}
	}
	if *existing == requested {
		l, d := delta(requested, -1)
		return VoteDecision{Action: repository.VoteDelete, Value: requested, LikesDelta: l, DislikesDelta: d}
	}
	ol, od := delta(*existing, -1)
	nl, nd := delta(requested, 1)
	return VoteDecision{Action: repository.VoteUpdate, Value: requested, LikesDelta: ol + nl, DislikesDelta: od + nd}
}

// VoteLedger applies toggle votes on posts and comments. Each decision is
// committed together with its counter delta; a lost race against another
// request for the same (user, target) re-reads and decides again.
type VoteLedger struct {
	votes       repository.VoteRepository
	maxAttempts int
	log         *zap.Logger
}

func NewVoteLedger(votes repository.VoteRepository, log *zap.Logger) *VoteLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &VoteLedger{votes: votes, maxAttempts: defaultVoteAttempts, log: log}
}

func (l *VoteLedger) Apply(ctx context.Context, kind repository.TargetKind, targetID, userID string, value int) (VoteDecision, error) {
	if !validVote(value) {
		return VoteDecision{}, newError(KindInvalidArgument, "vote value must be 1 or -1")
	}
	notFoundMsg := kind.String() + " not found"

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		current, found, err := l.votes.Find(ctx, kind, targetID, userID)
		if err != nil {
			return VoteDecision{}, storeError("load vote", err, notFoundMsg)
		}
		var existing *int
		if found {
			existing = &current
		}

		decision := DecideVote(existing, value)
		err = l.votes.Commit(ctx, repository.VoteMutation{
			Kind:          kind,
			TargetID:      targetID,
			UserID:        userID,
			Action:        decision.Action,
			Value:         decision.Value,
			Expected:      current,
			LikesDelta:    decision.LikesDelta,
			DislikesDelta: decision.DislikesDelta,
		})
		if err == nil {
			return decision, nil
		}
		if !errors.Is(err, repository.ErrVoteConflict) {
			return VoteDecision{}, storeError("commit vote", err, notFoundMsg)
		}
		l.log.Debug("vote conflict, retrying",
			zap.String("target", kind.String()),
			zap.String("target_id", targetID),
			zap.String("user_id", userID),
			zap.Int("attempt", attempt))
	}
	return VoteDecision{}, newError(KindUnavailable, "vote on %s %s kept conflicting", kind, targetID)
}

// ValuesFor returns the user's votes on the given targets.
func (l *VoteLedger) ValuesFor(ctx context.Context, kind repository.TargetKind, userID string, targetIDs []string) (map[string]int, error) {
	values, err := l.votes.ValuesFor(ctx, kind, userID, targetIDs)
	if err != nil {
		return nil, storeError("load votes", err, "")
	}
	return values, nil
}

// ValueOf returns the user's vote on a single target, nil when none.
func (l *VoteLedger) ValueOf(ctx context.Context, kind repository.TargetKind, targetID, userID string) (*int, error) {
	v, found, err := l.votes.Find(ctx, kind, targetID, userID)
	if err != nil {
		return nil, storeError("load vote", err, "")
	}
	if !found {
		return nil, nil
	}
	return &v, nil
}
