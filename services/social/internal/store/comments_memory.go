package store

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/gallery-platform/services/social/internal/reaction"
)

// Gallery is the subset of gallery data the in-memory store needs.
type Gallery struct {
	ID           int64
	OwnerID      int64
	Title        string
	ThumbnailKey *string
}

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu        sync.RWMutex
	nextID    int64
	comments  map[int64]Comment // id -> comment, Author/Replies unset
	users     map[int64]Author
	galleries map[int64]Gallery
	reactions map[ReactionKey]struct{}
	counters  map[int64]reaction.Counters

	// now is swappable so tests can control ordering.
	now func() time.Time
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments:  make(map[int64]Comment),
		users:     make(map[int64]Author),
		galleries: make(map[int64]Gallery),
		reactions: make(map[ReactionKey]struct{}),
		counters:  make(map[int64]reaction.Counters),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PutUser seeds or replaces a user profile.
func (s *InMemoryCommentStore) PutUser(a Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[a.ID] = a
}

// PutGallery seeds or replaces a gallery.
func (s *InMemoryCommentStore) PutGallery(g Gallery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.galleries[g.ID] = g
}

// ReactionRows counts ledger rows for a comment and type.
func (s *InMemoryCommentStore) ReactionRows(commentID int64, t reaction.Type) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for k := range s.reactions {
		if k.CommentID == commentID && k.Type == t {
			n++
		}
	}
	return n
}

func (s *InMemoryCommentStore) Create(_ context.Context, c NewComment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok || parent.GalleryID != c.GalleryID {
			return Comment{}, ErrInvalidParent
		}
	}
	s.nextID++
	out := Comment{
		ID:        s.nextID,
		GalleryID: c.GalleryID,
		UserID:    c.UserID,
		ParentID:  c.ParentID,
		Text:      c.Text,
		CreatedAt: s.now(),
	}
	s.comments[out.ID] = out
	return out, nil
}

func (s *InMemoryCommentStore) EnsureCounters(_ context.Context, commentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counters[commentID]; !ok {
		s.counters[commentID] = reaction.Counters{}
	}
	return nil
}

func (s *InMemoryCommentStore) GetThread(_ context.Context, galleryID int64) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byParent := make(map[int64][]Comment)
	var roots []Comment
	for _, c := range s.comments {
		if c.GalleryID != galleryID {
			continue
		}
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
		}
	}
	if len(roots) == 0 {
		return []Comment{}, nil
	}

	sortNewestFirst(roots)
	for i := range roots {
		roots[i].Author = s.author(roots[i].UserID)
		replies := append([]Comment{}, byParent[roots[i].ID]...)
		sortOldestFirst(replies)
		for j := range replies {
			replies[j].Author = s.author(replies[j].UserID)
			nested := append([]Comment{}, byParent[replies[j].ID]...)
			sortOldestFirst(nested)
			replies[j].Replies = nested
		}
		roots[i].Replies = replies
	}
	return roots, nil
}

func (s *InMemoryCommentStore) author(userID int64) *Author {
	a, ok := s.users[userID]
	if !ok {
		a = Author{ID: userID}
	}
	return &a
}

func sortNewestFirst(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID > cs[j].ID
	})
}

func sortOldestFirst(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

func (s *InMemoryCommentStore) Counters(_ context.Context, ids []int64) (map[int64]reaction.Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]reaction.Counters, len(ids))
	for _, id := range ids {
		if c, ok := s.counters[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *InMemoryCommentStore) Selections(_ context.Context, userID int64, ids []int64) (map[int64][]reaction.Type, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[int64][]reaction.Type)
	for k := range s.reactions {
		if k.UserID == userID && want[k.CommentID] {
			out[k.CommentID] = append(out[k.CommentID], k.Type)
		}
	}
	for id := range out {
		sortTypes(out[id])
	}
	return out, nil
}

func (s *InMemoryCommentStore) Username(_ context.Context, userID int64) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return u.Username, nil
}

func (s *InMemoryCommentStore) ListFeed(_ context.Context, f FeedFilter, offset, limit int) ([]FeedRow, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Comment
	for _, c := range s.comments {
		if s.matches(f, c) {
			matched = append(matched, c)
		}
	}
	sortNewestFirst(matched)

	total := int64(len(matched))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []FeedRow{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]FeedRow, 0, len(matched))
	for _, c := range matched {
		g := s.galleries[c.GalleryID]
		out = append(out, FeedRow{
			ID:        c.ID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			Author:    *s.author(c.UserID),
			Gallery:   GalleryRef{ID: g.ID, Title: g.Title, ThumbnailKey: g.ThumbnailKey},
		})
	}
	return out, total, nil
}

func (s *InMemoryCommentStore) matches(f FeedFilter, c Comment) bool {
	if f.IDIn != nil {
		found := false
		for _, id := range f.IDIn {
			if id == c.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.GalleryOwnerID != nil {
		g, ok := s.galleries[c.GalleryID]
		if !ok || g.OwnerID != *f.GalleryOwnerID {
			return false
		}
	}
	if f.AuthorID != nil && c.UserID != *f.AuthorID {
		return false
	}
	text := strings.ToLower(c.Text)
	for _, sub := range f.TextContains {
		if !strings.Contains(text, strings.ToLower(sub)) {
			return false
		}
	}
	return true
}

// WithTx runs fn against copies of the reaction tables and publishes them only
// when fn succeeds. Transactions are serialized by the store mutex.
func (s *InMemoryCommentStore) WithTx(ctx context.Context, fn func(tx ReactionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memReactionTx{
		comments:  s.comments,
		reactions: maps.Clone(s.reactions),
		counters:  maps.Clone(s.counters),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.reactions = tx.reactions
	s.counters = tx.counters
	return nil
}

type memReactionTx struct {
	comments  map[int64]Comment
	reactions map[ReactionKey]struct{}
	counters  map[int64]reaction.Counters
}

func (t *memReactionTx) CommentExists(_ context.Context, commentID int64) (bool, error) {
	_, ok := t.comments[commentID]
	return ok, nil
}

func (t *memReactionTx) EnsureCounters(_ context.Context, commentID int64) error {
	if _, ok := t.counters[commentID]; !ok {
		t.counters[commentID] = reaction.Counters{}
	}
	return nil
}

func (t *memReactionTx) HasReaction(_ context.Context, k ReactionKey) (bool, error) {
	_, ok := t.reactions[k]
	return ok, nil
}

func (t *memReactionTx) AddReaction(_ context.Context, k ReactionKey) (bool, error) {
	if _, ok := t.reactions[k]; ok {
		return false, nil
	}
	t.reactions[k] = struct{}{}
	return true, nil
}

func (t *memReactionTx) RemoveReaction(_ context.Context, k ReactionKey) (bool, error) {
	if _, ok := t.reactions[k]; !ok {
		return false, nil
	}
	delete(t.reactions, k)
	return true, nil
}

func (t *memReactionTx) AddToCounter(_ context.Context, commentID int64, rt reaction.Type, delta int64) error {
	c, ok := t.counters[commentID]
	if !ok {
		return errCounterRowMissing(commentID)
	}
	c.Add(rt, delta)
	t.counters[commentID] = c
	return nil
}

func (t *memReactionTx) Counters(_ context.Context, commentID int64) (reaction.Counters, error) {
	return t.counters[commentID], nil
}

func (t *memReactionTx) Selected(_ context.Context, commentID, userID int64) ([]reaction.Type, error) {
	out := []reaction.Type{}
	for k := range t.reactions {
		if k.CommentID == commentID && k.UserID == userID {
			out = append(out, k.Type)
		}
	}
	sortTypes(out)
	return out, nil
}
