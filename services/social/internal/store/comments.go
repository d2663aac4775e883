// Package store persists comments, the reaction ledger and per-comment
// reaction counters, in Postgres or in memory.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/gallery-platform/services/social/internal/reaction"
)

// ErrNotFound is returned when a referenced comment does not exist.
var ErrNotFound = errors.New("comment not found")

// ErrInvalidParent is returned when a reply targets a comment that does not
// exist or belongs to another gallery.
var ErrInvalidParent = errors.New("parent comment not in gallery")

func errCounterRowMissing(commentID int64) error {
	return fmt.Errorf("counter row missing for comment %d", commentID)
}

// Author is the public profile attached to a comment.
type Author struct {
	ID       int64   `json:"id"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Avatar   *string `json:"avatar"`
}

// Comment is a single comment row. Author and Replies are only populated by
// the thread read path; Replies stays nil on the deepest fetched level.
type Comment struct {
	ID        int64     `json:"id"`
	GalleryID int64     `json:"gallery_id"`
	UserID    int64     `json:"user_id"`
	ParentID  *int64    `json:"parent_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author,omitempty"`
	Replies   []Comment `json:"replies"`
}

type NewComment struct {
	GalleryID int64
	UserID    int64
	ParentID  *int64
	Text      string
}

// ReactionKey identifies one ledger row.
type ReactionKey struct {
	CommentID int64
	UserID    int64
	Type      reaction.Type
}

// FeedFilter is the conjunction of predicates a feed listing applies.
// Nil fields do not restrict. IDIn is the exception to "empty means
// unrestricted": a non-nil empty slice matches no comment at all.
type FeedFilter struct {
	GalleryOwnerID *int64
	AuthorID       *int64
	TextContains   []string
	IDIn           []int64
}

type GalleryRef struct {
	ID           int64
	Title        string
	ThumbnailKey *string
}

// FeedRow is a comment joined with its author and gallery.
type FeedRow struct {
	ID        int64
	Text      string
	CreatedAt time.Time
	Author    Author
	Gallery   GalleryRef
}

// CommentStore defines the contract for comment and reaction persistence.
type CommentStore interface {
	Create(ctx context.Context, c NewComment) (Comment, error)
	// EnsureCounters creates the all-zero counter row for a comment if absent.
	EnsureCounters(ctx context.Context, commentID int64) error
	// GetThread returns a gallery's root comments, newest first, with two
	// levels of replies. The second reply level carries no author.
	GetThread(ctx context.Context, galleryID int64) ([]Comment, error)
	Counters(ctx context.Context, commentIDs []int64) (map[int64]reaction.Counters, error)
	Selections(ctx context.Context, userID int64, commentIDs []int64) (map[int64][]reaction.Type, error)
	// Username returns nil when the user has none or does not exist.
	Username(ctx context.Context, userID int64) (*string, error)
	// ListFeed counts and fetches with the same filter, newest first.
	ListFeed(ctx context.Context, f FeedFilter, offset, limit int) ([]FeedRow, int64, error)
	// WithTx runs fn in one transaction; any error rolls everything back.
	WithTx(ctx context.Context, fn func(tx ReactionTx) error) error
}

// ReactionTx is the unit of work used by reaction toggles.
type ReactionTx interface {
	CommentExists(ctx context.Context, commentID int64) (bool, error)
	EnsureCounters(ctx context.Context, commentID int64) error
	HasReaction(ctx context.Context, k ReactionKey) (bool, error)
	// AddReaction reports whether a row was inserted.
	AddReaction(ctx context.Context, k ReactionKey) (bool, error)
	// RemoveReaction reports whether a row was deleted.
	RemoveReaction(ctx context.Context, k ReactionKey) (bool, error)
	AddToCounter(ctx context.Context, commentID int64, t reaction.Type, delta int64) error
	Counters(ctx context.Context, commentID int64) (reaction.Counters, error)
	Selected(ctx context.Context, commentID, userID int64) ([]reaction.Type, error)
}
