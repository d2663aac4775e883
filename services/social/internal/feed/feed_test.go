package feed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/example/gallery-platform/services/social/internal/store"
)

type fakeUsers map[int64]*string

func (f fakeUsers) Username(_ context.Context, id int64) (*string, error) {
	return f[id], nil
}

type failingUsers struct{}

func (failingUsers) Username(context.Context, int64) (*string, error) {
	return nil, errors.New("db down")
}

type prefixURLs struct{}

func (prefixURLs) Resolve(key *string) *string {
	if key == nil {
		return nil
	}
	s := "https://cdn.test/" + *key
	return &s
}

func sp(s string) *string { return &s }

func TestBounds(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 24},
		{0, 200, 1, 100},
		{-3, -1, 1, 1},
		{2, 24, 2, 24},
		{5, 100, 5, 100},
		{math.MaxInt, 24, MaxPage, 24},
	}
	for _, c := range cases {
		p, s := Bounds(c.page, c.size)
		if p != c.wantPage || s != c.wantSize {
			t.Fatalf("Bounds(%d,%d) = %d,%d; want %d,%d", c.page, c.size, p, s, c.wantPage, c.wantSize)
		}
	}
	if Offset(2, 24) != 24 || Offset(1, 24) != 0 {
		t.Fatal("unexpected offset")
	}
	for _, size := range []int{1, DefaultPageSize, MaxPageSize} {
		p, s := Bounds(math.MaxInt, size)
		if off := Offset(p, s); off < 0 {
			t.Fatalf("offset overflowed for pageSize %d: %d", size, off)
		}
	}
}

func TestParseScope(t *testing.T) {
	if s, err := ParseScope(""); err != nil || s != ScopeOnMyGalleries {
		t.Fatalf("expected default scope, got %q %v", s, err)
	}
	if s, err := ParseScope("mentions"); err != nil || s != ScopeMentions {
		t.Fatalf("expected mentions, got %q %v", s, err)
	}
	if _, err := ParseScope("everyone"); !errors.Is(err, ErrUnknownScope) {
		t.Fatalf("expected ErrUnknownScope, got %v", err)
	}
}

func TestFilter_OnMyGalleriesWithSearch(t *testing.T) {
	f, err := Filter(context.Background(), fakeUsers{}, 42, ScopeOnMyGalleries, " sun ")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if f.GalleryOwnerID == nil || *f.GalleryOwnerID != 42 {
		t.Fatalf("expected owner 42, got %+v", f)
	}
	if f.AuthorID != nil || f.IDIn != nil {
		t.Fatalf("unexpected extra predicates %+v", f)
	}
	if len(f.TextContains) != 1 || f.TextContains[0] != "sun" {
		t.Fatalf("expected search to narrow, got %v", f.TextContains)
	}
}

func TestFilter_Authored(t *testing.T) {
	f, _ := Filter(context.Background(), fakeUsers{}, 7, ScopeAuthored, "")
	if f.AuthorID == nil || *f.AuthorID != 7 || f.GalleryOwnerID != nil {
		t.Fatalf("unexpected filter %+v", f)
	}
}

func TestFilter_MentionsWithUsername(t *testing.T) {
	f, err := Filter(context.Background(), fakeUsers{3: sp("mira")}, 3, ScopeMentions, "beach")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(f.TextContains) != 2 || f.TextContains[0] != "@mira" || f.TextContains[1] != "beach" {
		t.Fatalf("unexpected text predicates %v", f.TextContains)
	}
	if f.IDIn != nil {
		t.Fatal("did not expect an id restriction")
	}
}

func TestFilter_MentionsWithoutUsernameMatchesNothing(t *testing.T) {
	f, err := Filter(context.Background(), fakeUsers{5: nil}, 5, ScopeMentions, "")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if f.IDIn == nil || len(f.IDIn) != 0 {
		t.Fatalf("expected unsatisfiable id filter, got %#v", f.IDIn)
	}
}

func TestFilter_LookupErrorPropagates(t *testing.T) {
	_, err := Filter(context.Background(), failingUsers{}, 5, ScopeMentions, "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestProject(t *testing.T) {
	rows := []store.FeedRow{
		{
			ID: 1, Text: "hi",
			Author:  store.Author{ID: 2, Username: sp("bo"), FullName: sp("Bo L")},
			Gallery: store.GalleryRef{ID: 9, Title: "Coast", ThumbnailKey: sp("t/9.jpg")},
		},
		{
			ID: 2, Text: "yo",
			Author:  store.Author{ID: 3, Username: sp("cy"), FullName: sp("")},
			Gallery: store.GalleryRef{ID: 10, Title: "City"},
		},
	}
	items := Project(rows, prefixURLs{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Body != "hi" || items[0].Author.Name == nil || *items[0].Author.Name != "Bo L" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[0].Gallery.Thumbnail == nil || *items[0].Gallery.Thumbnail != "https://cdn.test/t/9.jpg" {
		t.Fatalf("unexpected thumbnail %v", items[0].Gallery.Thumbnail)
	}
	if items[1].Author.Name == nil || *items[1].Author.Name != "cy" {
		t.Fatalf("expected username fallback, got %v", items[1].Author.Name)
	}
	if items[1].Gallery.Thumbnail != nil {
		t.Fatal("expected nil thumbnail for missing key")
	}
}
