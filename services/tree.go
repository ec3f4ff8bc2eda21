package services

import (
	"time"

	"github.com/cppla/threadbbs/models"
)

// CommentView is a comment joined with its author's identity and the
// caller's own vote, when known.
type CommentView struct {
	ID            string        `json:"id"`
	Content       string        `json:"content"`
	PostID        string        `json:"post_id"`
	ParentID      *string       `json:"parent_id"`
	Depth         int           `json:"depth"`
	LikesCount    int           `json:"likes_count"`
	DislikesCount int           `json:"dislikes_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Author        models.Author `json:"author"`
	UserLike      *int          `json:"user_like"`
}

func newCommentView(c models.Comment) CommentView {
	author := models.AuthorOf(c.Author)
	if author.ID == "" {
		author.ID = c.AuthorID
	}
	return CommentView{
		ID:            c.ID,
		Content:       c.Content,
		PostID:        c.PostID,
		ParentID:      c.ParentID,
		Depth:         c.Depth,
		LikesCount:    c.LikesCount,
		DislikesCount: c.DislikesCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		Author:        author,
	}
}

// CommentNode is one vertex of an assembled comment forest.
type CommentNode struct {
	CommentView
	Children []*CommentNode `json:"children"`
}

// OrphanPolicy decides what happens to a comment whose parent is not in the
// input set.
type OrphanPolicy int

const (
	// OrphanDrop silently discards the comment and its subtree.
	OrphanDrop OrphanPolicy = iota
	// OrphanPromote lists the comment as a root. Children of soft-deleted
	// comments surface this way on the read path.
	OrphanPromote
)

// BuildForest links a flat comment list into an ordered forest. Input must be
// sorted ascending by creation time; roots and every sibling group keep that
// order. votes maps comment id to the caller's vote and may be nil.
//
// Nodes live in one arena slice that is never grown after the index pass, so
// the child pointers handed out stay valid. Runs in O(n).
func BuildForest(comments []models.Comment, votes map[string]int, policy OrphanPolicy) []*CommentNode {
	arena := make([]CommentNode, len(comments))
	index := make(map[string]int, len(comments))

	for i := range comments {
		arena[i] = CommentNode{
			CommentView: newCommentView(comments[i]),
			Children:    []*CommentNode{},
		}
		if v, ok := votes[comments[i].ID]; ok {
			v := v
			arena[i].UserLike = &v
		}
		index[comments[i].ID] = i
	}

	roots := make([]*CommentNode, 0)
	for i := range comments {
		node := &arena[i]
		parentID := comments[i].ParentID
		if parentID == nil {
			roots = append(roots, node)
			continue
		}
		if p, ok := index[*parentID]; ok && p != i {
			arena[p].Children = append(arena[p].Children, node)
			continue
		}
		if policy == OrphanPromote {
			roots = append(roots, node)
		}
	}
	return roots
}

// PageMeta describes a page of root-level items.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func newPageMeta(total int64, page, limit int) PageMeta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PageMeta{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// PaginateRoots cuts one page out of the root sequence. Descendants of the
// returned roots are left intact, so a page may hold any number of nodes.
func PaginateRoots(roots []*CommentNode, page, limit int) ([]*CommentNode, PageMeta) {
	meta := newPageMeta(int64(len(roots)), page, limit)
	start := (page - 1) * limit
	if start < 0 || start >= len(roots) {
		return []*CommentNode{}, meta
	}
	end := start + limit
	if end > len(roots) {
		end = len(roots)
	}
	return roots[start:end], meta
}

// CountNodes returns the number of nodes in the given forest.
func CountNodes(roots []*CommentNode) int {
	n := 0
	for _, r := range roots {
		n += 1 + CountNodes(r.Children)
	}
	return n
}
