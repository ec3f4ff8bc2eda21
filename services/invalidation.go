package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Cache is the key-value side of the cache server.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelPattern(ctx context.Context, pattern string) error
}

// KeyValue is a cache that also offers atomic counters.
type KeyValue interface {
	Cache
	Counter
}

const (
	commentListPrefix = "comments:post:"
	postKeyPrefix     = "post:"
	postListPrefix    = "posts:list:"
)

func CommentListKey(postID string, page, limit int) string {
	return fmt.Sprintf("%s%s:page=%d:limit=%d", commentListPrefix, postID, page, limit)
}

func CommentListPattern(postID string) string {
	return commentListPrefix + postID + ":*"
}

func PostKey(slug string) string {
	return postKeyPrefix + slug
}

// PostListKey covers the whole query. Free-text parts are escaped so they
// cannot inject separators or glob characters.
func PostListKey(f PostFilter, page, limit int) string {
	published := "all"
	if f.Published != nil {
		published = fmt.Sprint(*f.Published)
	}
	return fmt.Sprintf("%spublished=%s:tag=%s:search=%s:page=%d:limit=%d",
		postListPrefix, published, url.QueryEscape(f.Tag), url.QueryEscape(f.Search), page, limit)
}

func PostListPattern() string {
	return postListPrefix + "*"
}

// MutationKind names a committed write that may leave cached reads stale.
type MutationKind int

const (
	CommentCreated MutationKind = iota + 1
	CommentUpdated
	CommentRemoved
	CommentVoted
	PostCreated
	PostVoted
	PostUpdated
	PostRemoved
)

func (k MutationKind) String() string {
	switch k {
	case CommentCreated:
		return "comment_created"
	case CommentUpdated:
		return "comment_updated"
	case CommentRemoved:
		return "comment_removed"
	case CommentVoted:
		return "comment_voted"
	case PostCreated:
		return "post_created"
	case PostVoted:
		return "post_voted"
	case PostUpdated:
		return "post_updated"
	case PostRemoved:
		return "post_removed"
	default:
		return "unknown"
	}
}

// Mutation identifies the post a committed write belongs to. PrevSlug is
// set when the write renamed the post.
type Mutation struct {
	Kind     MutationKind
	PostID   string
	PostSlug string
	PrevSlug string
}

// Invalidation lists exact keys and glob patterns to purge.
type Invalidation struct {
	Keys     []string
	Patterns []string
}

// Plan maps a mutation to the cache entries it makes stale.
func Plan(m Mutation) Invalidation {
	var inv Invalidation
	switch m.Kind {
	case CommentCreated, CommentRemoved:
		// comments_count moved, so the post and the post lists are stale too
		inv.Patterns = append(inv.Patterns, CommentListPattern(m.PostID), PostListPattern())
		if m.PostSlug != "" {
			inv.Keys = append(inv.Keys, PostKey(m.PostSlug))
		}
	case CommentUpdated, CommentVoted:
		inv.Patterns = append(inv.Patterns, CommentListPattern(m.PostID))
	case PostCreated:
		inv.Patterns = append(inv.Patterns, PostListPattern())
	case PostVoted:
		inv.Patterns = append(inv.Patterns, PostListPattern())
		if m.PostSlug != "" {
			inv.Keys = append(inv.Keys, PostKey(m.PostSlug))
		}
	case PostUpdated:
		inv.Patterns = append(inv.Patterns, PostListPattern())
		if m.PrevSlug != "" && m.PrevSlug != m.PostSlug {
			inv.Keys = append(inv.Keys, PostKey(m.PrevSlug))
		}
		if m.PostSlug != "" {
			inv.Keys = append(inv.Keys, PostKey(m.PostSlug))
		}
	case PostRemoved:
		inv.Patterns = append(inv.Patterns, CommentListPattern(m.PostID), PostListPattern())
		if m.PostSlug != "" {
			inv.Keys = append(inv.Keys, PostKey(m.PostSlug))
		}
	}
	return inv
}

// CacheInvalidator purges cache entries after a write has committed. Cache
// failures never fail the write; they are logged and the entry is left to
// expire on its TTL.
type CacheInvalidator struct {
	cache Cache
	log   *zap.Logger
}

func NewCacheInvalidator(cache Cache, log *zap.Logger) *CacheInvalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheInvalidator{cache: cache, log: log}
}

// Invalidate must only be called once the mutation is committed. The purge
// outlives a cancelled request since the write it follows cannot be undone.
func (c *CacheInvalidator) Invalidate(ctx context.Context, m Mutation) {
	ctx = context.WithoutCancel(ctx)
	inv := Plan(m)
	for _, p := range inv.Patterns {
		if err := c.cache.DelPattern(ctx, p); err != nil {
			c.log.Warn("cache pattern invalidation failed",
				zap.String("mutation", m.Kind.String()), zap.String("pattern", p), zap.Error(err))
		}
	}
	if len(inv.Keys) > 0 {
		if err := c.cache.Del(ctx, inv.Keys...); err != nil {
			c.log.Warn("cache key invalidation failed",
				zap.String("mutation", m.Kind.String()), zap.Strings("keys", inv.Keys), zap.Error(err))
		}
	}
}
