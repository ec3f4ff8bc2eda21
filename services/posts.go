package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/repository"
	"github.com/cppla/threadbbs/utils"
)

const slugAttempts = 3

// PostView is a post joined with its author and the caller's vote.
type PostView struct {
	models.Post
	Author   models.Author `json:"author"`
	UserLike *int          `json:"user_like"`
}

func newPostView(p models.Post) PostView {
	author := models.AuthorOf(p.Author)
	if author.ID == "" {
		author.ID = p.AuthorID
	}
	return PostView{Post: p, Author: author}
}

type PostPage struct {
	Data []PostView `json:"data"`
	Meta PageMeta   `json:"meta"`
}

type CreatePostInput struct {
	Title     string
	Content   string
	Tags      []string
	Published bool
}

// UpdatePostInput carries the fields to change; nil leaves a field as is.
type UpdatePostInput struct {
	Title     *string
	Content   *string
	Tags      []string
	Published *bool
}

// PostFilter narrows the post list by free text, tag and publication state.
type PostFilter = repository.PostFilter

// PostService covers the post as the root of a comment tree: creation,
// edits, soft deletion, cached reads and votes.
type PostService struct {
	posts       repository.PostRepository
	ledger      *VoteLedger
	cache       Cache
	invalidator *CacheInvalidator
	settings    Settings
	log         *zap.Logger
}

func NewPostService(posts repository.PostRepository, votes repository.VoteRepository, cache Cache, settings Settings, log *zap.Logger) *PostService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostService{
		posts:       posts,
		ledger:      NewVoteLedger(votes, log),
		cache:       cache,
		invalidator: NewCacheInvalidator(cache, log),
		settings:    settings,
		log:         log,
	}
}

func makeSlug(title string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	base := slug.Make(title)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func cleanTags(tags []string) string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

func normalizeTag(tag string) string {
	return strings.ReplaceAll(strings.ToLower(utils.StripTags(tag)), ",", "")
}

func (s *PostService) Create(ctx context.Context, authorID string, in CreatePostInput) (*PostView, error) {
	title := utils.StripTags(in.Title)
	content := utils.Sanitize(in.Content)
	if title == "" || content == "" {
		return nil, newError(KindInvalidArgument, "title and content are required")
	}

	post := &models.Post{
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		Tags:      cleanTags(in.Tags),
		Published: in.Published,
	}

	var err error
	for i := 0; i < slugAttempts; i++ {
		post.ID = ""
		post.Slug = makeSlug(title)
		err = s.posts.Create(ctx, post)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, storeError("create post", err, "")
	}

	s.invalidator.Invalidate(ctx, Mutation{Kind: PostCreated, PostID: post.ID, PostSlug: post.Slug})

	if fresh, ferr := s.posts.FindByID(ctx, post.ID); ferr == nil {
		post = fresh
	} else {
		s.log.Warn("reload post failed", zap.String("post_id", post.ID), zap.Error(ferr))
	}
	view := newPostView(*post)
	return &view, nil
}

// Get reads a post through the single-post cache and decorates it with the
// caller's vote.
func (s *PostService) Get(ctx context.Context, postSlug, callerID string) (*PostView, error) {
	key := PostKey(postSlug)
	var view PostView

	if !s.readCache(ctx, key, &view) {
		post, err := s.posts.FindBySlug(ctx, postSlug)
		if err != nil {
			return nil, storeError("load post", err, "post not found")
		}
		view = newPostView(*post)
		s.writeCache(ctx, key, view)
	}

	if callerID != "" {
		v, err := s.ledger.ValueOf(ctx, repository.TargetPost, view.ID, callerID)
		if err != nil {
			return nil, err
		}
		view.UserLike = v
	}
	return &view, nil
}

// Update edits a post owned by authorID. A new title gets a new slug.
func (s *PostService) Update(ctx context.Context, postSlug, authorID string, in UpdatePostInput) (*PostView, error) {
	post, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, storeError("load post", err, "post not found")
	}
	if post.AuthorID != authorID {
		return nil, newError(KindForbidden, "you can only edit your own posts")
	}

	changes := map[string]interface{}{}
	title := post.Title
	if in.Title != nil {
		title = utils.StripTags(*in.Title)
		if title == "" {
			return nil, newError(KindInvalidArgument, "title is required")
		}
		if title != post.Title {
			changes["title"] = title
			changes["slug"] = makeSlug(title)
		}
	}
	if in.Content != nil {
		content := utils.Sanitize(*in.Content)
		if content == "" {
			return nil, newError(KindInvalidArgument, "content is required")
		}
		changes["content"] = content
	}
	if in.Tags != nil {
		changes["tags"] = cleanTags(in.Tags)
	}
	if in.Published != nil {
		changes["published"] = *in.Published
	}
	if len(changes) == 0 {
		return s.Get(ctx, post.Slug, authorID)
	}

	_, renamed := changes["slug"]
	for i := 0; i < slugAttempts; i++ {
		err = s.posts.Update(ctx, post.ID, changes)
		if !renamed || !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		changes["slug"] = makeSlug(title)
	}
	if err != nil {
		return nil, storeError("update post", err, "post not found")
	}

	newSlug := post.Slug
	if renamed {
		newSlug = changes["slug"].(string)
	}
	s.invalidator.Invalidate(ctx, Mutation{Kind: PostUpdated, PostID: post.ID, PostSlug: newSlug, PrevSlug: post.Slug})
	return s.Get(ctx, newSlug, authorID)
}

// Remove soft-deletes a post owned by authorID. Its comments stay stored, but
// creating or listing comments on the post answers NotFound from then on.
func (s *PostService) Remove(ctx context.Context, postSlug, authorID string) error {
	post, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return storeError("load post", err, "post not found")
	}
	if post.AuthorID != authorID {
		return newError(KindForbidden, "you can only delete your own posts")
	}
	if err := s.posts.SoftDelete(ctx, post.ID); err != nil {
		return storeError("delete post", err, "post not found")
	}
	s.invalidator.Invalidate(ctx, Mutation{Kind: PostRemoved, PostID: post.ID, PostSlug: post.Slug})
	return nil
}

// List returns matching posts newest first through the list cache.
func (s *PostService) List(ctx context.Context, filter PostFilter, page, limit int) (*PostPage, error) {
	page, limit = s.settings.normalizePage(page, limit)
	filter.Search = utils.StripTags(filter.Search)
	filter.Tag = normalizeTag(filter.Tag)
	key := PostListKey(filter, page, limit)

	var cached PostPage
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	posts, total, err := s.posts.List(ctx, filter, page, limit)
	if err != nil {
		return nil, storeError("list posts", err, "")
	}
	result := &PostPage{Data: make([]PostView, 0, len(posts)), Meta: newPageMeta(total, page, limit)}
	for _, p := range posts {
		result.Data = append(result.Data, newPostView(p))
	}
	s.writeCache(ctx, key, result)
	return result, nil
}

// LikePost toggles userID's vote on a post.
func (s *PostService) LikePost(ctx context.Context, postSlug, userID string, value int) (*PostView, error) {
	if !validVote(value) {
		return nil, newError(KindInvalidArgument, "vote value must be 1 or -1")
	}
	post, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, storeError("load post", err, "post not found")
	}
	if _, err := s.ledger.Apply(ctx, repository.TargetPost, post.ID, userID, value); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, Mutation{Kind: PostVoted, PostID: post.ID, PostSlug: post.Slug})
	return s.Get(ctx, postSlug, userID)
}

func (s *PostService) readCache(ctx context.Context, key string, out interface{}) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("post cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warn("post cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *PostService) writeCache(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("post cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.settings.CacheTTL); err != nil {
		s.log.Warn("post cache write failed", zap.String("key", key), zap.Error(err))
	}
}
