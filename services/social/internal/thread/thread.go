// Package thread decorates a fetched comment tree with reaction counts and the
// caller's own reactions. It performs no I/O.
package thread

import (
	"time"

	"github.com/example/gallery-platform/services/social/internal/reaction"
	"github.com/example/gallery-platform/services/social/internal/store"
)

// Comment is a store.Comment plus its reaction decoration.
type Comment struct {
	ID              int64             `json:"id"`
	GalleryID       int64             `json:"gallery_id"`
	UserID          int64             `json:"user_id"`
	ParentID        *int64            `json:"parent_id"`
	Text            string            `json:"text"`
	CreatedAt       time.Time         `json:"created_at"`
	Author          *store.Author     `json:"author,omitempty"`
	Actions         reaction.Counters `json:"actions"`
	SelectedActions []reaction.Type   `json:"selectedActions"`
	Replies         []Comment         `json:"replies"`
}

// CollectIDs returns the id of every comment in the tree, depth first.
func CollectIDs(tree []store.Comment) []int64 {
	var ids []int64
	var walk func([]store.Comment)
	walk = func(cs []store.Comment) {
		for _, c := range cs {
			ids = append(ids, c.ID)
			walk(c.Replies)
		}
	}
	walk(tree)
	return ids
}

// Attach rebuilds tree with Actions and SelectedActions on every node.
// Missing counters yield all-zero actions and missing selections an empty list.
// A nil Replies slice stays nil.
func Attach(tree []store.Comment, counters map[int64]reaction.Counters, selected map[int64][]reaction.Type) []Comment {
	if tree == nil {
		return nil
	}
	out := make([]Comment, len(tree))
	for i, c := range tree {
		sel := selected[c.ID]
		if sel == nil {
			sel = []reaction.Type{}
		}
		out[i] = Comment{
			ID:              c.ID,
			GalleryID:       c.GalleryID,
			UserID:          c.UserID,
			ParentID:        c.ParentID,
			Text:            c.Text,
			CreatedAt:       c.CreatedAt,
			Author:          c.Author,
			Actions:         counters[c.ID],
			SelectedActions: sel,
			Replies:         Attach(c.Replies, counters, selected),
		}
	}
	return out
}
