package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/repository"
)

func intp(v int) *int { return &v }

func TestDecideVote(t *testing.T) {
	tests := []struct {
		name      string
		existing  *int
		requested int
		action    repository.VoteAction
		likes     int
		dislikes  int
	}{
		{"new like", nil, 1, repository.VoteCreate, 1, 0},
		{"new dislike", nil, -1, repository.VoteCreate, 0, 1},
		{"like toggled off", intp(1), 1, repository.VoteDelete, -1, 0},
		{"dislike toggled off", intp(-1), -1, repository.VoteDelete, 0, -1},
		{"like to dislike", intp(1), -1, repository.VoteUpdate, -1, 1},
		{"dislike to like", intp(-1), 1, repository.VoteUpdate, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DecideVote(tt.existing, tt.requested)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.likes, d.LikesDelta)
			assert.Equal(t, tt.dislikes, d.DislikesDelta)
		})
	}
}

func newLedgerFixture() (*memDB, *VoteLedger) {
	db := newMemDB()
	db.addPost("p1", "post", "u1")
	db.comments["c1"] = mkCommentPtr("c1")
	return db, NewVoteLedger(fakeVotes{db}, zap.NewNop())
}

func mkCommentPtr(id string) *models.Comment {
	c := mkComment(id, "", 0)
	return &c
}

func TestVoteLedger_ToggleIdempotence(t *testing.T) {
	db, ledger := newLedgerFixture()
	ctx := context.Background()

	for _, v := range []int{1, -1} {
		before := db.comment("c1")
		_, err := ledger.Apply(ctx, repository.TargetComment, "c1", "u2", v)
		require.NoError(t, err)
		d, err := ledger.Apply(ctx, repository.TargetComment, "c1", "u2", v)
		require.NoError(t, err)
		assert.Nil(t, d.Result())

		after := db.comment("c1")
		assert.Equal(t, before.LikesCount, after.LikesCount)
		assert.Equal(t, before.DislikesCount, after.DislikesCount)
		_, found, _ := fakeVotes{db}.Find(ctx, repository.TargetComment, "c1", "u2")
		assert.False(t, found)
	}
}

func TestVoteLedger_CounterConsistency(t *testing.T) {
	db, ledger := newLedgerFixture()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	users := []string{"u1", "u2", "u3", "u4", "u5"}

	for i := 0; i < 500; i++ {
		value := 1
		if rng.Intn(2) == 0 {
			value = -1
		}
		kind, target := repository.TargetComment, "c1"
		if rng.Intn(3) == 0 {
			kind, target = repository.TargetPost, "p1"
		}
		_, err := ledger.Apply(ctx, kind, target, users[rng.Intn(len(users))], value)
		require.NoError(t, err)
	}

	c := db.comment("c1")
	assert.Equal(t, db.countVotes(repository.TargetComment, "c1", 1), c.LikesCount)
	assert.Equal(t, db.countVotes(repository.TargetComment, "c1", -1), c.DislikesCount)
	p := db.post("p1")
	assert.Equal(t, db.countVotes(repository.TargetPost, "p1", 1), p.LikesCount)
	assert.Equal(t, db.countVotes(repository.TargetPost, "p1", -1), p.DislikesCount)
}

func TestVoteLedger_ConcurrentToggles(t *testing.T) {
	db, ledger := newLedgerFixture()
	ledger.maxAttempts = 50
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			user := []string{"u1", "u2"}[w%2]
			for i := 0; i < 50; i++ {
				value := 1
				if (w+i)%3 == 0 {
					value = -1
				}
				_, err := ledger.Apply(ctx, repository.TargetComment, "c1", user, value)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	c := db.comment("c1")
	assert.Equal(t, db.countVotes(repository.TargetComment, "c1", 1), c.LikesCount)
	assert.Equal(t, db.countVotes(repository.TargetComment, "c1", -1), c.DislikesCount)
	assert.GreaterOrEqual(t, c.LikesCount, 0)
	assert.GreaterOrEqual(t, c.DislikesCount, 0)
}

func TestVoteLedger_RetriesLostRace(t *testing.T) {
	db, ledger := newLedgerFixture()
	ctx := context.Background()

	raced := false
	db.beforeCommit = func(m repository.VoteMutation) {
		if raced {
			return
		}
		raced = true
		// a parallel request for the same key lands first
		db.mu.Lock()
		db.votes[voteKey{repository.TargetComment, "c1", "u2"}] = 1
		db.comments["c1"].LikesCount++
		db.mu.Unlock()
	}

	d, err := ledger.Apply(ctx, repository.TargetComment, "c1", "u2", 1)
	require.NoError(t, err)
	assert.Equal(t, repository.VoteDelete, d.Action)
	c := db.comment("c1")
	assert.Equal(t, 0, c.LikesCount)
}

func TestVoteLedger_GivesUpAfterRepeatedConflicts(t *testing.T) {
	db, ledger := newLedgerFixture()
	attempts := 0
	db.beforeCommit = func(m repository.VoteMutation) {
		attempts++
		db.mu.Lock()
		key := voteKey{repository.TargetComment, "c1", "u2"}
		if _, ok := db.votes[key]; ok {
			delete(db.votes, key)
		} else {
			db.votes[key] = -1
		}
		db.mu.Unlock()
	}

	_, err := ledger.Apply(context.Background(), repository.TargetComment, "c1", "u2", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, defaultVoteAttempts, attempts)
}

func TestVoteLedger_Failures(t *testing.T) {
	_, ledger := newLedgerFixture()
	ctx := context.Background()

	_, err := ledger.Apply(ctx, repository.TargetComment, "c1", "u2", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ledger.Apply(ctx, repository.TargetComment, "gone", "u2", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "comment not found")

	_, err = ledger.Apply(ctx, repository.TargetPost, "gone", "u2", -1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "post not found")
}
