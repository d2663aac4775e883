// Package service implements the social operations exposed over HTTP:
// comment creation, decorated thread reads, reaction toggles and the
// cross-gallery comment feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/gallery-platform/internal/platform/analytics"
	"github.com/example/gallery-platform/services/social/internal/feed"
	"github.com/example/gallery-platform/services/social/internal/reaction"
	"github.com/example/gallery-platform/services/social/internal/store"
	"github.com/example/gallery-platform/services/social/internal/thread"
)

var ErrEmptyText = errors.New("comment text is empty")

// ThreadCache stores undecorated comment trees per gallery. Get reports the
// gallery's version even on a miss; Set must ignore a tree whose version was
// superseded by Invalidate.
type ThreadCache interface {
	Get(ctx context.Context, galleryID int64) (tree []store.Comment, version int64, ok bool, err error)
	Set(ctx context.Context, galleryID, version int64, tree []store.Comment) error
	Invalidate(ctx context.Context, galleryID int64) error
}

type Service struct {
	store     store.CommentStore
	cache     ThreadCache
	urls      feed.URLResolver
	analytics *analytics.Publisher
	log       *zap.Logger
}

type Option func(*Service)

func WithThreadCache(c ThreadCache) Option { return func(s *Service) { s.cache = c } }

func WithAnalytics(p *analytics.Publisher) Option { return func(s *Service) { s.analytics = p } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// New wires a Service. urls may be nil, in which case asset keys pass through.
func New(st store.CommentStore, urls feed.URLResolver, opts ...Option) *Service {
	s := &Service{store: st, urls: urls, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if s.urls == nil {
		s.urls = passthrough{}
	}
	return s
}

type passthrough struct{}

func (passthrough) Resolve(key *string) *string { return key }

// ToggleResult is the post-toggle state of one comment.
type ToggleResult struct {
	Active          bool              `json:"active"`
	Actions         reaction.Counters `json:"actions"`
	SelectedActions []reaction.Type   `json:"selectedActions"`
}

// ToggleReaction adds the caller's reaction of type t or removes it when
// present. Ledger and counter change in the same transaction; the counter
// moves only when a ledger row was actually written or deleted.
func (s *Service) ToggleReaction(ctx context.Context, userID, commentID int64, t reaction.Type) (ToggleResult, error) {
	if !t.Valid() {
		return ToggleResult{}, reaction.ErrUnknownType
	}
	key := store.ReactionKey{CommentID: commentID, UserID: userID, Type: t}

	var res ToggleResult
	err := s.store.WithTx(ctx, func(tx store.ReactionTx) error {
		ok, err := tx.CommentExists(ctx, commentID)
		if err != nil {
			return fmt.Errorf("check comment: %w", err)
		}
		if !ok {
			return store.ErrNotFound
		}
		if err := tx.EnsureCounters(ctx, commentID); err != nil {
			return fmt.Errorf("ensure counters: %w", err)
		}

		present, err := tx.HasReaction(ctx, key)
		if err != nil {
			return fmt.Errorf("lookup reaction: %w", err)
		}
		if present {
			deleted, err := tx.RemoveReaction(ctx, key)
			if err != nil {
				return fmt.Errorf("remove reaction: %w", err)
			}
			if deleted {
				if err := tx.AddToCounter(ctx, commentID, t, -1); err != nil {
					return fmt.Errorf("decrement counter: %w", err)
				}
			}
			res.Active = false
		} else {
			inserted, err := tx.AddReaction(ctx, key)
			if err != nil {
				return fmt.Errorf("add reaction: %w", err)
			}
			if inserted {
				if err := tx.AddToCounter(ctx, commentID, t, 1); err != nil {
					return fmt.Errorf("increment counter: %w", err)
				}
			}
			// A concurrent toggle may have inserted first; either way the
			// reaction is now present.
			res.Active = true
		}

		if res.Actions, err = tx.Counters(ctx, commentID); err != nil {
			return fmt.Errorf("read counters: %w", err)
		}
		if res.SelectedActions, err = tx.Selected(ctx, commentID, userID); err != nil {
			return fmt.Errorf("read selection: %w", err)
		}
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}
	if res.SelectedActions == nil {
		res.SelectedActions = []reaction.Type{}
	}

	s.analytics.Publish(analytics.SubjectReactionToggled, "reaction_toggled", strconv.FormatInt(userID, 10), map[string]any{
		"comment_id": commentID,
		"type":       t.String(),
		"active":     res.Active,
	})
	return res, nil
}

// GetComments returns a gallery's decorated thread. userID is optional; when
// nil every node carries an empty selection.
func (s *Service) GetComments(ctx context.Context, galleryID int64, userID *int64) ([]thread.Comment, error) {
	tree, err := s.tree(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	if len(tree) == 0 {
		return []thread.Comment{}, nil
	}

	ids := thread.CollectIDs(tree)
	counters, err := s.store.Counters(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	var selected map[int64][]reaction.Type
	if userID != nil {
		if selected, err = s.store.Selections(ctx, *userID, ids); err != nil {
			return nil, fmt.Errorf("load selections: %w", err)
		}
	}
	return thread.Attach(tree, counters, selected), nil
}

func (s *Service) tree(ctx context.Context, galleryID int64) ([]store.Comment, error) {
	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		tree, v, ok, err := s.cache.Get(ctx, galleryID)
		switch {
		case err != nil:
			s.log.Warn("thread cache get failed", zap.Int64("gallery_id", galleryID), zap.Error(err))
		case ok:
			return tree, nil
		default:
			version, cacheable = v, true
		}
	}

	tree, err := s.store.GetThread(ctx, galleryID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if cacheable {
		if err := s.cache.Set(ctx, galleryID, version, tree); err != nil {
			s.log.Warn("thread cache set failed", zap.Int64("gallery_id", galleryID), zap.Error(err))
		}
	}
	return tree, nil
}

// CreateComment stores a comment and best-effort creates its counter row.
func (s *Service) CreateComment(ctx context.Context, in store.NewComment) (store.Comment, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return store.Comment{}, ErrEmptyText
	}
	c, err := s.store.Create(ctx, in)
	if err != nil {
		return store.Comment{}, err
	}

	// A missing counter row is recreated by the first toggle.
	if err := s.store.EnsureCounters(ctx, c.ID); err != nil {
		s.log.Warn("create counter row failed", zap.Int64("comment_id", c.ID), zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, c.GalleryID); err != nil {
			s.log.Warn("thread cache invalidate failed", zap.Int64("gallery_id", c.GalleryID), zap.Error(err))
		}
	}

	s.analytics.Publish(analytics.SubjectCommentCreated, "comment_created", strconv.FormatInt(c.UserID, 10), map[string]any{
		"comment_id": c.ID,
		"gallery_id": c.GalleryID,
		"is_reply":   c.ParentID != nil,
	})
	return c, nil
}

// List returns one page of comments visible to userID under q's scope.
func (s *Service) List(ctx context.Context, userID int64, q feed.Query) (feed.Page, error) {
	page, pageSize := feed.Bounds(q.Page, q.PageSize)
	out := feed.Page{Items: []feed.Item{}, Page: page, PageSize: pageSize}

	f, err := feed.Filter(ctx, s.store, userID, q.Scope, q.Search)
	if err != nil {
		return feed.Page{}, err
	}
	if f.IDIn != nil && len(f.IDIn) == 0 {
		return out, nil
	}

	rows, total, err := s.store.ListFeed(ctx, f, feed.Offset(page, pageSize), pageSize)
	if err != nil {
		return feed.Page{}, fmt.Errorf("list feed: %w", err)
	}
	out.Items = feed.Project(rows, s.urls)
	out.Total = total

	if strings.TrimSpace(q.Search) != "" {
		s.analytics.Publish(analytics.SubjectCommentsSearched, "comments_searched", strconv.FormatInt(userID, 10), map[string]any{
			"scope":   string(q.Scope),
			"results": total,
		})
	}
	return out, nil
}
