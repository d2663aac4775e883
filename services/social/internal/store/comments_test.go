package store

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/example/gallery-platform/services/social/internal/reaction"
)

func strPtr(s string) *string { return &s }
func i64(v int64) *int64      { return &v }

// newSeededStore returns a store whose clock advances one second per comment.
func newSeededStore() *InMemoryCommentStore {
	s := NewInMemoryCommentStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	s.PutUser(Author{ID: 1, Username: strPtr("ana")})
	s.PutUser(Author{ID: 2, Username: strPtr("bo"), FullName: strPtr("Bo Lindqvist")})
	s.PutGallery(Gallery{ID: 100, OwnerID: 1, Title: "Coast"})
	s.PutGallery(Gallery{ID: 200, OwnerID: 2, Title: "City"})
	return s
}

func TestInMemoryCommentStore_Create(t *testing.T) {
	s := newSeededStore()
	c, err := s.Create(context.Background(), NewComment{GalleryID: 100, UserID: 2, Text: "hello"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if c.Text != "hello" || c.ParentID != nil {
		t.Fatalf("unexpected comment %+v", c)
	}
}

func TestInMemoryCommentStore_GetThreadDepth(t *testing.T) {
	s := newSeededStore()
	ctx := context.Background()

	root, _ := s.Create(ctx, NewComment{GalleryID: 100, UserID: 1, Text: "root"})
	reply, _ := s.Create(ctx, NewComment{GalleryID: 100, UserID: 2, ParentID: i64(root.ID), Text: "reply"})
	_, _ = s.Create(ctx, NewComment{GalleryID: 100, UserID: 1, ParentID: i64(reply.ID), Text: "nested"})
	newer, _ := s.Create(ctx, NewComment{GalleryID: 100, UserID: 2, Text: "newer root"})
	_, _ = s.Create(ctx, NewComment{GalleryID: 200, UserID: 2, Text: "other gallery"})

	roots, err := s.GetThread(ctx, 100)
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].ID != newer.ID {
		t.Fatalf("expected newest root first, got %d", roots[0].ID)
	}
	if roots[0].Replies == nil || len(roots[0].Replies) != 0 {
		t.Fatalf("expected empty non-nil replies on root without replies, got %#v", roots[0].Replies)
	}

	r := roots[1]
	if r.Author == nil || r.Author.Username == nil || *r.Author.Username != "ana" {
		t.Fatalf("expected root author ana, got %+v", r.Author)
	}
	if len(r.Replies) != 1 || r.Replies[0].Author == nil {
		t.Fatalf("expected one reply with author, got %+v", r.Replies)
	}
	deep := r.Replies[0].Replies
	if len(deep) != 1 {
		t.Fatalf("expected one nested reply, got %d", len(deep))
	}
	if deep[0].Author != nil {
		t.Fatal("nested reply must not carry an author")
	}
	if deep[0].Replies != nil {
		t.Fatal("nested reply must leave replies unset")
	}
}

func TestInMemoryCommentStore_GetThreadEmpty(t *testing.T) {
	s := newSeededStore()
	roots, err := s.GetThread(context.Background(), 100)
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if roots == nil || len(roots) != 0 {
		t.Fatalf("expected empty slice, got %#v", roots)
	}
}

func TestInMemoryCommentStore_TxRollback(t *testing.T) {
	s := newSeededStore()
	ctx := context.Background()
	c, _ := s.Create(ctx, NewComment{GalleryID: 100, UserID: 1, Text: "x"})

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx ReactionTx) error {
		if err := tx.EnsureCounters(ctx, c.ID); err != nil {
			return err
		}
		k := ReactionKey{CommentID: c.ID, UserID: 2, Type: reaction.Heart}
		if _, err := tx.AddReaction(ctx, k); err != nil {
			return err
		}
		if err := tx.AddToCounter(ctx, c.ID, reaction.Heart, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := s.ReactionRows(c.ID, reaction.Heart); n != 0 {
		t.Fatalf("expected rolled back ledger, got %d rows", n)
	}
	counters, _ := s.Counters(ctx, []int64{c.ID})
	if _, ok := counters[c.ID]; ok {
		t.Fatal("expected counter row creation to be rolled back")
	}
}

func TestInMemoryCommentStore_AddToCounterRequiresRow(t *testing.T) {
	s := newSeededStore()
	ctx := context.Background()
	c, _ := s.Create(ctx, NewComment{GalleryID: 100, UserID: 1, Text: "x"})

	err := s.WithTx(ctx, func(tx ReactionTx) error {
		return tx.AddToCounter(ctx, c.ID, reaction.Eye, 1)
	})
	if err == nil {
		t.Fatal("expected error when counter row is missing")
	}
}

func TestInMemoryCommentStore_ListFeed(t *testing.T) {
	s := newSeededStore()
	ctx := context.Background()

	a, _ := s.Create(ctx, NewComment{GalleryID: 100, UserID: 2, Text: "Sunset over the bay"})
	_, _ = s.Create(ctx, NewComment{GalleryID: 100, UserID: 2, Text: "nice framing"})
	_, _ = s.Create(ctx, NewComment{GalleryID: 200, UserID: 1, Text: "sunny @BO"})

	rows, total, err := s.ListFeed(ctx, FeedFilter{GalleryOwnerID: i64(1), TextContains: []string{"SUN"}}, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != a.ID {
		t.Fatalf("expected only %d, got total=%d rows=%+v", a.ID, total, rows)
	}
	if rows[0].Gallery.Title != "Coast" || rows[0].Author.ID != 2 {
		t.Fatalf("unexpected joined row %+v", rows[0])
	}

	rows, total, err = s.ListFeed(ctx, FeedFilter{IDIn: []int64{}}, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Fatalf("empty id filter must match nothing, got %d", total)
	}

	rows, total, _ = s.ListFeed(ctx, FeedFilter{}, 1, 1)
	if total != 3 || len(rows) != 1 {
		t.Fatalf("expected page of 1 out of 3, got %d of %d", len(rows), total)
	}

	rows, total, err = s.ListFeed(ctx, FeedFilter{}, -48, 24)
	if err != nil || total != 3 || len(rows) != 3 {
		t.Fatalf("negative offset must read from the start, got %d of %d (%v)", len(rows), total, err)
	}
}

func TestBuildFeedQuery_SearchNarrowsScope(t *testing.T) {
	fq := buildFeedQuery(FeedFilter{GalleryOwnerID: i64(42), TextContains: []string{"sun"}}, 24, 24)

	if got := strings.TrimSpace(fq.where); got != "WHERE g.owner_id = $1 AND c.text ILIKE $2" {
		t.Fatalf("unexpected where %q", got)
	}
	if !reflect.DeepEqual(fq.countArgs, []any{int64(42), "%sun%"}) {
		t.Fatalf("unexpected count args %v", fq.countArgs)
	}
	if !reflect.DeepEqual(fq.listArgs, []any{int64(42), "%sun%", 24, 24}) {
		t.Fatalf("unexpected list args %v", fq.listArgs)
	}
	if !strings.Contains(fq.countSQL, fq.where) || !strings.Contains(fq.listSQL, fq.where) {
		t.Fatal("count and list must share the same where clause")
	}
	if !strings.Contains(fq.listSQL, "LIMIT $3 OFFSET $4") {
		t.Fatalf("unexpected paging clause in %q", fq.listSQL)
	}
	if !strings.Contains(fq.listSQL, "ORDER BY c.created_at DESC") {
		t.Fatal("expected newest first ordering")
	}
}

func TestBuildFeedQuery_NoFilter(t *testing.T) {
	fq := buildFeedQuery(FeedFilter{}, 0, 10)
	if fq.where != "" || len(fq.countArgs) != 0 {
		t.Fatalf("expected no where clause, got %q %v", fq.where, fq.countArgs)
	}
	if !strings.Contains(fq.listSQL, "LIMIT $1 OFFSET $2") {
		t.Fatalf("unexpected paging clause in %q", fq.listSQL)
	}
}

func TestFeedWhere_EmptyIDFilter(t *testing.T) {
	where, args := feedWhere(FeedFilter{IDIn: []int64{}, TextContains: []string{"a"}})
	if strings.TrimSpace(where) != "WHERE c.id = ANY($1) AND c.text ILIKE $2" {
		t.Fatalf("unexpected where %q", where)
	}
	if ids, ok := args[0].([]int64); !ok || ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty id array arg, got %#v", args[0])
	}
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	if got := containsPattern(`50%_off\`); got != `%50\%\_off\\%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestCommentStoreInterface(t *testing.T) {
	var _ CommentStore = (*InMemoryCommentStore)(nil)
	var _ CommentStore = (*PostgresCommentStore)(nil)
	var _ ReactionTx = (*memReactionTx)(nil)
	var _ ReactionTx = (*pgReactionTx)(nil)
}

func TestInMemoryCommentStore_CreateRejectsForeignParent(t *testing.T) {
	s := newSeededStore()
	ctx := context.Background()
	root, _ := s.Create(ctx, NewComment{GalleryID: 100, UserID: 1, Text: "root"})

	_, err := s.Create(ctx, NewComment{GalleryID: 200, UserID: 2, ParentID: i64(root.ID), Text: "wrong gallery"})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
	_, err = s.Create(ctx, NewComment{GalleryID: 100, UserID: 2, ParentID: i64(999), Text: "dangling"})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}
