package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
)

// TargetKind selects which ledger and counter columns a vote touches.
type TargetKind int

const (
	TargetPost TargetKind = iota + 1
	TargetComment
)

func (k TargetKind) String() string {
	switch k {
	case TargetPost:
		return "post"
	case TargetComment:
		return "comment"
	default:
		return "unknown"
	}
}

// VoteAction is the write applied to the ledger row.
type VoteAction int

const (
	VoteCreate VoteAction = iota + 1
	VoteUpdate
	VoteDelete
)

// VoteMutation is one ledger write plus the counter deltas it implies.
// Expected is the value read before deciding; update and delete only apply
// while the stored row still holds it.
type VoteMutation struct {
	Kind          TargetKind
	TargetID      string
	UserID        string
	Action        VoteAction
	Value         int
	Expected      int
	LikesDelta    int
	DislikesDelta int
}

type VoteRepository interface {
	Find(ctx context.Context, kind TargetKind, targetID, userID string) (int, bool, error)
	Commit(ctx context.Context, m VoteMutation) error
	ValuesFor(ctx context.Context, kind TargetKind, userID string, targetIDs []string) (map[string]int, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

type ledgerRow struct {
	UserID   string
	TargetID string
	Value    int
}

func ledgerModel(kind TargetKind) (interface{}, string) {
	if kind == TargetPost {
		return &models.PostLike{}, "post_id"
	}
	return &models.CommentLike{}, "comment_id"
}

func targetModel(kind TargetKind) interface{} {
	if kind == TargetPost {
		return &models.Post{}
	}
	return &models.Comment{}
}

// Find returns the user's current vote on the target, if any.
func (r *voteRepository) Find(ctx context.Context, kind TargetKind, targetID, userID string) (int, bool, error) {
	model, fk := ledgerModel(kind)
	var values []int
	err := r.db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND "+fk+" = ?", userID, targetID).
		Limit(1).
		Pluck("value", &values).Error
	if err != nil {
		return 0, false, err
	}
	if len(values) == 0 {
		return 0, false, nil
	}
	return values[0], true, nil
}

// Commit applies the ledger write and the counter deltas in one transaction.
func (r *voteRepository) Commit(ctx context.Context, m VoteMutation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyLedger(tx, m); err != nil {
			return err
		}
		return applyCounters(tx, m)
	})
}

func applyLedger(tx *gorm.DB, m VoteMutation) error {
	model, fk := ledgerModel(m.Kind)
	switch m.Action {
	case VoteCreate:
		var row interface{}
		if m.Kind == TargetPost {
			row = &models.PostLike{UserID: m.UserID, PostID: m.TargetID, Value: m.Value}
		} else {
			row = &models.CommentLike{UserID: m.UserID, CommentID: m.TargetID, Value: m.Value}
		}
		err := tx.Create(row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrVoteConflict
		}
		return err
	case VoteUpdate:
		res := tx.Model(model).
			Where("user_id = ? AND "+fk+" = ? AND value = ?", m.UserID, m.TargetID, m.Expected).
			Update("value", m.Value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVoteConflict
		}
		return nil
	case VoteDelete:
		res := tx.Where("user_id = ? AND "+fk+" = ? AND value = ?", m.UserID, m.TargetID, m.Expected).
			Delete(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVoteConflict
		}
		return nil
	default:
		return errors.New("unknown vote action")
	}
}

func applyCounters(tx *gorm.DB, m VoteMutation) error {
	updates := map[string]interface{}{}
	if m.LikesDelta != 0 {
		updates["likes_count"] = gorm.Expr("likes_count + ?", m.LikesDelta)
	}
	if m.DislikesDelta != 0 {
		updates["dislikes_count"] = gorm.Expr("dislikes_count + ?", m.DislikesDelta)
	}
	if len(updates) == 0 {
		return nil
	}
	res := tx.Model(targetModel(m.Kind)).Where("id = ?", m.TargetID).UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ValuesFor returns the user's votes on the given targets keyed by target id.
// Targets without a vote are absent from the map.
func (r *voteRepository) ValuesFor(ctx context.Context, kind TargetKind, userID string, targetIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(targetIDs))
	if userID == "" || len(targetIDs) == 0 {
		return out, nil
	}
	model, fk := ledgerModel(kind)
	var rows []ledgerRow
	err := r.db.WithContext(ctx).
		Model(model).
		Select("user_id, "+fk+" AS target_id, value").
		Where("user_id = ? AND "+fk+" IN ?", userID, targetIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TargetID] = row.Value
	}
	return out, nil
}
