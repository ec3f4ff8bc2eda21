package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/repository"
)

// journal records the order of store commits and cache purges.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type voteKey struct {
	kind   repository.TargetKind
	target string
	user   string
}

// memDB is an in-memory relational store guarded by one mutex, so every
// method behaves like a single atomic commit.
type memDB struct {
	mu       sync.Mutex
	now      time.Time
	users    map[string]string
	posts    map[string]*models.Post
	comments map[string]*models.Comment
	votes    map[voteKey]int
	journal  *journal

	listCalls    int
	beforeCommit func(m repository.VoteMutation)
}

func newMemDB() *memDB {
	return &memDB{
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[string]string{},
		posts:    map[string]*models.Post{},
		comments: map[string]*models.Comment{},
		votes:    map[voteKey]int{},
		journal:  &journal{},
	}
}

func (db *memDB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

func (db *memDB) addUser(id, name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[id] = name
}

func (db *memDB) addPost(id, slug, authorID string) *models.Post {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := &models.Post{ID: id, Slug: slug, AuthorID: authorID, Title: slug, Content: "body", CreatedAt: db.tick()}
	db.posts[id] = p
	return p
}

func (db *memDB) post(id string) models.Post {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.posts[id]
}

func (db *memDB) comment(id string) models.Comment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.comments[id]
}

func (db *memDB) liveComments(postID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, c := range db.comments {
		if c.PostID == postID && !c.DeletedAt.Valid {
			n++
		}
	}
	return n
}

func (db *memDB) countVotes(kind repository.TargetKind, target string, value int) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for k, v := range db.votes {
		if k.kind == kind && k.target == target && v == value {
			n++
		}
	}
	return n
}

func (db *memDB) withAuthor(c models.Comment) *models.Comment {
	c.Author = models.User{ID: c.AuthorID, Username: db.users[c.AuthorID]}
	return &c
}

type fakePosts struct{ db *memDB }

func (f fakePosts) find(match func(*models.Post) bool) (*models.Post, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, p := range f.db.posts {
		if match(p) && !p.DeletedAt.Valid {
			cp := *p
			cp.Author = models.User{ID: p.AuthorID, Username: f.db.users[p.AuthorID]}
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakePosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	return f.find(func(p *models.Post) bool { return p.Slug == slug })
}

func (f fakePosts) FindByID(_ context.Context, id string) (*models.Post, error) {
	return f.find(func(p *models.Post) bool { return p.ID == id })
}

func (f fakePosts) Create(_ context.Context, post *models.Post) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, p := range f.db.posts {
		if p.Slug == post.Slug {
			return repository.ErrDuplicate
		}
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = f.db.tick()
	cp := *post
	f.db.posts[post.ID] = &cp
	f.db.journal.add("commit:create_post")
	return nil
}

func (f fakePosts) Update(_ context.Context, id string, changes map[string]interface{}) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.posts[id]
	if !ok || p.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	if slug, ok := changes["slug"].(string); ok {
		for _, other := range f.db.posts {
			if other.ID != id && other.Slug == slug {
				return repository.ErrDuplicate
			}
		}
		p.Slug = slug
	}
	if v, ok := changes["title"].(string); ok {
		p.Title = v
	}
	if v, ok := changes["content"].(string); ok {
		p.Content = v
	}
	if v, ok := changes["tags"].(string); ok {
		p.Tags = v
	}
	if v, ok := changes["published"].(bool); ok {
		p.Published = v
	}
	p.UpdatedAt = f.db.tick()
	f.db.journal.add("commit:update_post")
	return nil
}

func (f fakePosts) SoftDelete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.posts[id]
	if !ok || p.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	p.DeletedAt = gorm.DeletedAt{Time: f.db.tick(), Valid: true}
	f.db.journal.add("commit:delete_post")
	return nil
}

func (f fakePosts) List(_ context.Context, filter repository.PostFilter, page, limit int) ([]models.Post, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.listCalls++
	var all []models.Post
	for _, p := range f.db.posts {
		if p.DeletedAt.Valid {
			continue
		}
		if filter.Published != nil && p.Published != *filter.Published {
			continue
		}
		if filter.Tag != "" && !strings.Contains(","+p.Tags+",", ","+filter.Tag+",") {
			continue
		}
		if filter.Search != "" && !strings.Contains(p.Title, filter.Search) && !strings.Contains(p.Content, filter.Search) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Post{}, int64(len(all)), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

type fakeComments struct{ db *memDB }

func (f fakeComments) FindByID(_ context.Context, id string) (*models.Comment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.comments[id]
	if !ok || c.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return f.db.withAuthor(*c), nil
}

func (f fakeComments) ListByPost(_ context.Context, postID string) ([]models.Comment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.listCalls++
	var out []models.Comment
	for _, c := range f.db.comments {
		if c.PostID == postID && !c.DeletedAt.Valid {
			out = append(out, *f.db.withAuthor(*c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f fakeComments) CreateWithCounter(_ context.Context, c *models.Comment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	post, ok := f.db.posts[c.PostID]
	if !ok || post.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = f.db.tick()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.db.comments[c.ID] = &cp
	post.CommentsCount++
	f.db.journal.add("commit:create_comment")
	return nil
}

func (f fakeComments) UpdateContent(_ context.Context, id, content string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.comments[id]
	if !ok || c.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = f.db.tick()
	f.db.journal.add("commit:update_comment")
	return nil
}

func (f fakeComments) SoftDelete(_ context.Context, comment *models.Comment) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.comments[comment.ID]
	if !ok || c.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	c.DeletedAt = gorm.DeletedAt{Time: f.db.tick(), Valid: true}
	if post, ok := f.db.posts[c.PostID]; ok {
		post.CommentsCount--
	}
	f.db.journal.add("commit:delete_comment")
	return nil
}

type fakeVotes struct{ db *memDB }

func (f fakeVotes) Find(_ context.Context, kind repository.TargetKind, targetID, userID string) (int, bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	v, ok := f.db.votes[voteKey{kind, targetID, userID}]
	return v, ok, nil
}

func (f fakeVotes) Commit(_ context.Context, m repository.VoteMutation) error {
	if hook := f.db.beforeCommit; hook != nil {
		hook(m)
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	var likes, dislikes *int
	switch m.Kind {
	case repository.TargetPost:
		p, ok := f.db.posts[m.TargetID]
		if !ok || p.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		likes, dislikes = &p.LikesCount, &p.DislikesCount
	case repository.TargetComment:
		c, ok := f.db.comments[m.TargetID]
		if !ok || c.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		likes, dislikes = &c.LikesCount, &c.DislikesCount
	}

	key := voteKey{m.Kind, m.TargetID, m.UserID}
	stored, exists := f.db.votes[key]
	switch m.Action {
	case repository.VoteCreate:
		if exists {
			return repository.ErrVoteConflict
		}
		f.db.votes[key] = m.Value
	case repository.VoteUpdate:
		if !exists || stored != m.Expected {
			return repository.ErrVoteConflict
		}
		f.db.votes[key] = m.Value
	case repository.VoteDelete:
		if !exists || stored != m.Expected {
			return repository.ErrVoteConflict
		}
		delete(f.db.votes, key)
	}
	*likes += m.LikesDelta
	*dislikes += m.DislikesDelta
	f.db.journal.add("commit:vote")
	return nil
}

func (f fakeVotes) ValuesFor(_ context.Context, kind repository.TargetKind, userID string, ids []string) (map[string]int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := map[string]int{}
	for _, id := range ids {
		if v, ok := f.db.votes[voteKey{kind, id, userID}]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type kvEntry struct {
	value   string
	n       int64
	expires time.Time
}

// fakeKV is an in-memory cache with a controllable clock.
type fakeKV struct {
	mu      sync.Mutex
	now     time.Time
	data    map[string]*kvEntry
	journal *journal

	expireCalls int
	honorCtx    bool
	failDel     error
	failIncr    error
	failExpire  error
}

func newFakeKV(j *journal) *fakeKV {
	return &fakeKV{now: time.Unix(1_700_000_000, 0), data: map[string]*kvEntry{}, journal: j}
}

func (k *fakeKV) advance(d time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.now = k.now.Add(d)
}

func (k *fakeKV) live(key string) (*kvEntry, bool) {
	e, ok := k.data[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !k.now.Before(e.expires) {
		delete(k.data, key)
		return nil, false
	}
	return e, true
}

func (k *fakeKV) has(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.live(key)
	return ok
}

func (k *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (k *fakeKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := &kvEntry{value: value}
	if ttl > 0 {
		e.expires = k.now.Add(ttl)
	}
	k.data[key] = e
	return nil
}

func (k *fakeKV) Del(ctx context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failDel != nil {
		return k.failDel
	}
	if k.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	for _, key := range keys {
		delete(k.data, key)
		if k.journal != nil {
			k.journal.add("del:" + key)
		}
	}
	return nil
}

func (k *fakeKV) DelPattern(ctx context.Context, pattern string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failDel != nil {
		return k.failDel
	}
	if k.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range k.data {
		if strings.HasPrefix(key, prefix) {
			delete(k.data, key)
		}
	}
	if k.journal != nil {
		k.journal.add("delpattern:" + pattern)
	}
	return nil
}

func (k *fakeKV) Incr(_ context.Context, key string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failIncr != nil {
		return 0, k.failIncr
	}
	e, ok := k.live(key)
	if !ok {
		e = &kvEntry{}
		k.data[key] = e
	}
	e.n++
	return e.n, nil
}

func (k *fakeKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.expireCalls++
	if k.failExpire != nil {
		return k.failExpire
	}
	if e, ok := k.data[key]; ok {
		e.expires = k.now.Add(ttl)
	}
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, in NotificationInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

var errBoom = errors.New("boom")
