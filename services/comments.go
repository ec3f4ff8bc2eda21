package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/repository"
	"github.com/cppla/threadbbs/utils"
)

// CommentPage is one page of root comments with their full subtrees.
type CommentPage struct {
	Data []*CommentNode `json:"data"`
	Meta PageMeta       `json:"meta"`
}

type CreateCommentInput struct {
	Content  string
	ParentID *string
}

// CommentService owns the comment lifecycle: creation, edits, soft deletion,
// votes and the threaded read path.
type CommentService struct {
	posts       repository.PostRepository
	comments    repository.CommentRepository
	ledger      *VoteLedger
	limiter     *RateLimiter
	cache       Cache
	invalidator *CacheInvalidator
	notifier    Notifier
	settings    Settings
	log         *zap.Logger
}

func NewCommentService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	votes repository.VoteRepository,
	kv KeyValue,
	notifier Notifier,
	settings Settings,
	log *zap.Logger,
) *CommentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{
		posts:       posts,
		comments:    comments,
		ledger:      NewVoteLedger(votes, log),
		limiter:     NewRateLimiter(kv, settings.RateLimitScope, settings.RateLimitMax, settings.RateLimitWindow, log),
		cache:       kv,
		invalidator: NewCacheInvalidator(kv, log),
		notifier:    notifier,
		settings:    settings,
		log:         log,
	}
}

func (s *CommentService) findPost(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, storeError("load post", err, "post not found")
	}
	return post, nil
}

func (s *CommentService) findComment(ctx context.Context, id string) (*models.Comment, error) {
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("load comment", err, "comment not found")
	}
	return c, nil
}

// Create adds a root comment or a reply to a post.
func (s *CommentService) Create(ctx context.Context, postSlug, authorID string, in CreateCommentInput) (*CommentView, error) {
	content := utils.Sanitize(in.Content)
	if content == "" {
		return nil, newError(KindInvalidArgument, "content is required")
	}

	post, err := s.findPost(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.CheckAndConsume(ctx, authorID); err != nil {
		return nil, err
	}

	var parent *models.Comment
	depth := 0
	if in.ParentID != nil && *in.ParentID != "" {
		parent, err = s.comments.FindByID(ctx, *in.ParentID)
		if err != nil {
			return nil, storeError("load parent comment", err, "parent comment not found")
		}
		if parent.PostID != post.ID {
			return nil, newError(KindInvalidArgument, "parent comment does not belong to this post")
		}
		depth = parent.Depth + 1
		if depth > s.settings.MaxDepth {
			return nil, newError(KindDepthExceeded, "maximum nesting depth of %d reached", s.settings.MaxDepth)
		}
	}

	comment := &models.Comment{
		Content:  content,
		PostID:   post.ID,
		AuthorID: authorID,
		Depth:    depth,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	if err := s.comments.CreateWithCounter(ctx, comment); err != nil {
		return nil, storeError("create comment", err, "post not found")
	}

	view := s.reload(ctx, comment)

	if parent != nil && parent.AuthorID != authorID {
		s.notifyReply(ctx, parent, view)
	}

	s.invalidator.Invalidate(ctx, Mutation{Kind: CommentCreated, PostID: post.ID, PostSlug: post.Slug})
	return view, nil
}

// reload re-reads a just-written comment to join its author. The write has
// already committed, so a failed read falls back to the local copy.
func (s *CommentService) reload(ctx context.Context, c *models.Comment) *CommentView {
	fresh, err := s.comments.FindByID(ctx, c.ID)
	if err != nil {
		s.log.Warn("reload comment failed", zap.String("comment_id", c.ID), zap.Error(err))
		view := newCommentView(*c)
		return &view
	}
	view := newCommentView(*fresh)
	return &view
}

func (s *CommentService) notifyReply(ctx context.Context, parent *models.Comment, reply *CommentView) {
	name := reply.Author.Username
	if name == "" {
		name = "Someone"
	}
	commentID := reply.ID
	err := s.notifier.Notify(ctx, NotificationInput{
		RecipientID: parent.AuthorID,
		Type:        models.NotificationTypeReply,
		Title:       "New Reply",
		Message:     fmt.Sprintf("%s replied to your comment", name),
		CommentID:   &commentID,
	})
	if err != nil {
		s.log.Warn("reply notification failed",
			zap.String("recipient", parent.AuthorID),
			zap.String("comment_id", reply.ID),
			zap.Error(err))
	}
}

// Update replaces the content of a comment owned by authorID.
func (s *CommentService) Update(ctx context.Context, commentID, authorID, content string) (*CommentView, error) {
	comment, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != authorID {
		return nil, newError(KindForbidden, "you can only edit your own comments")
	}
	content = utils.Sanitize(content)
	if content == "" {
		return nil, newError(KindInvalidArgument, "content is required")
	}

	if err := s.comments.UpdateContent(ctx, comment.ID, content); err != nil {
		return nil, storeError("update comment", err, "comment not found")
	}
	s.invalidator.Invalidate(ctx, Mutation{Kind: CommentUpdated, PostID: comment.PostID})

	comment.Content = content
	return s.reload(ctx, comment), nil
}

// Remove soft-deletes a comment owned by authorID. Replies stay in place.
func (s *CommentService) Remove(ctx context.Context, commentID, authorID string) error {
	comment, err := s.findComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != authorID {
		return newError(KindForbidden, "you can only delete your own comments")
	}
	if err := s.comments.SoftDelete(ctx, comment); err != nil {
		return storeError("delete comment", err, "comment not found")
	}

	m := Mutation{Kind: CommentRemoved, PostID: comment.PostID}
	if post, err := s.posts.FindByID(ctx, comment.PostID); err == nil {
		m.PostSlug = post.Slug
	} else {
		s.log.Warn("post lookup for invalidation failed", zap.String("post_id", comment.PostID), zap.Error(err))
	}
	s.invalidator.Invalidate(ctx, m)
	return nil
}

// LikeComment toggles userID's vote on a comment and returns the comment with
// refreshed counters.
func (s *CommentService) LikeComment(ctx context.Context, commentID, userID string, value int) (*CommentView, error) {
	if !validVote(value) {
		return nil, newError(KindInvalidArgument, "vote value must be 1 or -1")
	}
	comment, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	decision, err := s.ledger.Apply(ctx, repository.TargetComment, comment.ID, userID, value)
	if err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, Mutation{Kind: CommentVoted, PostID: comment.PostID})

	fresh, err := s.findComment(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	view := newCommentView(*fresh)
	view.UserLike = decision.Result()
	return &view, nil
}

// FindByPost returns one page of root comments of a post with their complete
// reply chains. Pagination counts roots only. Anonymous reads are served
// through the listing cache; callerID decorates each node with the caller's
// vote and bypasses it.
func (s *CommentService) FindByPost(ctx context.Context, postSlug string, page, limit int, callerID string) (*CommentPage, error) {
	page, limit = s.settings.normalizePage(page, limit)

	post, err := s.findPost(ctx, postSlug)
	if err != nil {
		return nil, err
	}

	cacheKey := CommentListKey(post.ID, page, limit)
	if callerID == "" {
		if cached, ok := s.cachedPage(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	comments, err := s.comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, storeError("list comments", err, "post not found")
	}

	var votes map[string]int
	if callerID != "" && len(comments) > 0 {
		ids := make([]string, len(comments))
		for i := range comments {
			ids[i] = comments[i].ID
		}
		votes, err = s.ledger.ValuesFor(ctx, repository.TargetComment, callerID, ids)
		if err != nil {
			return nil, err
		}
	}

	roots := BuildForest(comments, votes, OrphanPromote)
	data, meta := PaginateRoots(roots, page, limit)
	result := &CommentPage{Data: data, Meta: meta}

	if callerID == "" {
		s.storePage(ctx, cacheKey, result)
	}
	return result, nil
}

func (s *CommentService) cachedPage(ctx context.Context, key string) (*CommentPage, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("comment cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var page CommentPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		s.log.Warn("comment cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &page, true
}

func (s *CommentService) storePage(ctx context.Context, key string, page *CommentPage) {
	raw, err := json.Marshal(page)
	if err != nil {
		s.log.Warn("comment cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.settings.CacheTTL); err != nil {
		s.log.Warn("comment cache write failed", zap.String("key", key), zap.Error(err))
	}
}
