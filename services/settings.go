package services

import (
	"time"

	"github.com/cppla/threadbbs/config"
)

// Settings are the comment engine tunables. The value is copied into each
// service at construction and never mutated afterwards.
type Settings struct {
	MaxDepth        int
	RateLimitScope  string
	RateLimitMax    int
	RateLimitWindow time.Duration
	CacheTTL        time.Duration
	DefaultPage     int
	DefaultLimit    int
	MaxLimit        int
}

func DefaultSettings() Settings {
	return Settings{
		MaxDepth:        7,
		RateLimitScope:  "comment",
		RateLimitMax:    5,
		RateLimitWindow: 60 * time.Second,
		CacheTTL:        300 * time.Second,
		DefaultPage:     1,
		DefaultLimit:    20,
		MaxLimit:        100,
	}
}

// SettingsFromConfig overlays the configured values on the defaults.
func SettingsFromConfig(c config.AppConfig) Settings {
	s := DefaultSettings()
	if c.CommentMaxDepth > 0 {
		s.MaxDepth = c.CommentMaxDepth
	}
	if c.CommentRateLimitMax > 0 {
		s.RateLimitMax = c.CommentRateLimitMax
	}
	if c.CommentRateLimitWindowSec > 0 {
		s.RateLimitWindow = time.Duration(c.CommentRateLimitWindowSec) * time.Second
	}
	if c.CacheTTLSec > 0 {
		s.CacheTTL = time.Duration(c.CacheTTLSec) * time.Second
	}
	return s
}

// normalizePage clamps page/limit into the accepted range.
func (s Settings) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = s.DefaultPage
	}
	if limit < 1 {
		limit = s.DefaultLimit
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return page, limit
}
