// Package feed builds cross-gallery comment listings: scope predicates,
// pagination bounds and the feed item projection.
package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/gallery-platform/services/social/internal/store"
)

type Scope string

const (
	ScopeOnMyGalleries Scope = "onMyGalleries"
	ScopeAuthored      Scope = "authored"
	ScopeMentions      Scope = "mentions"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*pageSize within int for any allowed pageSize.
	MaxPage = math.MaxInt / MaxPageSize
)

var ErrUnknownScope = errors.New("unknown feed scope")

// ParseScope maps a query value to a Scope; empty means onMyGalleries.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.TrimSpace(s)) {
	case "", ScopeOnMyGalleries:
		return ScopeOnMyGalleries, nil
	case ScopeAuthored:
		return ScopeAuthored, nil
	case ScopeMentions:
		return ScopeMentions, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
}

// Query is a feed request. Zero Page and PageSize select the defaults.
type Query struct {
	Scope    Scope
	Search   string
	Page     int
	PageSize int
}

// Bounds clamps the requested paging: page in [1, MaxPage], pageSize in
// [1, MaxPageSize]. A zero pageSize selects DefaultPageSize.
func Bounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset is the number of rows skipped before the given page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// UsernameLookup resolves a user's handle; nil means the user has none.
type UsernameLookup interface {
	Username(ctx context.Context, userID int64) (*string, error)
}

// Filter builds the store predicate for userID's scope, narrowed by search.
// A mentions scope for a user without a username yields a filter that matches
// nothing rather than an error.
func Filter(ctx context.Context, users UsernameLookup, userID int64, scope Scope, search string) (store.FeedFilter, error) {
	var f store.FeedFilter
	switch scope {
	case ScopeAuthored:
		f.AuthorID = &userID
	case ScopeMentions:
		name, err := users.Username(ctx, userID)
		if err != nil {
			return store.FeedFilter{}, fmt.Errorf("lookup username: %w", err)
		}
		if name == nil || strings.TrimSpace(*name) == "" {
			f.IDIn = []int64{}
		} else {
			f.TextContains = append(f.TextContains, MentionHandle(*name))
		}
	case ScopeOnMyGalleries, "":
		f.GalleryOwnerID = &userID
	default:
		return store.FeedFilter{}, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}

	if s := strings.TrimSpace(search); s != "" {
		f.TextContains = append(f.TextContains, s)
	}
	return f, nil
}

// MentionHandle is the substring that marks a mention of username.
func MentionHandle(username string) string {
	return "@" + strings.TrimSpace(username)
}

type Author struct {
	ID     int64   `json:"id"`
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type Gallery struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Thumbnail *string `json:"thumbnail"`
}

type Item struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
	Gallery   Gallery   `json:"gallery"`
}

type Page struct {
	Items    []Item `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// URLResolver turns a stored asset key into a public URL.
type URLResolver interface {
	Resolve(key *string) *string
}

// Project reshapes joined rows into feed items.
func Project(rows []store.FeedRow, urls URLResolver) []Item {
	out := make([]Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, Item{
			ID:        r.ID,
			Body:      r.Text,
			CreatedAt: r.CreatedAt,
			Author: Author{
				ID:     r.Author.ID,
				Name:   displayName(r.Author),
				Avatar: r.Author.Avatar,
			},
			Gallery: Gallery{
				ID:        r.Gallery.ID,
				Title:     r.Gallery.Title,
				Thumbnail: urls.Resolve(r.Gallery.ThumbnailKey),
			},
		})
	}
	return out
}

func displayName(a store.Author) *string {
	if a.FullName != nil && strings.TrimSpace(*a.FullName) != "" {
		return a.FullName
	}
	return a.Username
}
