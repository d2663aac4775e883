package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/gallery-platform/internal/platform/api"
	"github.com/example/gallery-platform/internal/platform/auth"
	"github.com/example/gallery-platform/internal/platform/httpserver"
	"github.com/example/gallery-platform/services/social/internal/feed"
	"github.com/example/gallery-platform/services/social/internal/reaction"
	"github.com/example/gallery-platform/services/social/internal/service"
	"github.com/example/gallery-platform/services/social/internal/store"
	"github.com/example/gallery-platform/services/social/internal/thread"
)

type createCommentRequest struct {
	Text     string `json:"text"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type toggleReactionRequest struct {
	Type string `json:"type"`
}

type threadResponse struct {
	Comments []thread.Comment `json:"comments"`
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	return id, err == nil && id > 0
}

// GetComments handles GET /v1/galleries/{gallery_id}/comments
func GetComments(svc *service.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		galleryID, ok := pathID(r, "gallery_id")
		if !ok {
			api.BadRequest(w, api.CodeInvalidID, "gallery_id must be a positive integer", rid, nil)
			return
		}

		var caller *int64
		if uid, ok := auth.UserIDFromContext(r.Context()); ok {
			caller = &uid
		}

		tree, err := svc.GetComments(r.Context(), galleryID, caller)
		if err != nil {
			httpserver.Logger(r.Context(), log).Error("get comments", zap.Int64("gallery_id", galleryID), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, threadResponse{Comments: tree})
	}
}

// CreateComment handles POST /v1/galleries/{gallery_id}/comments
func CreateComment(svc *service.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, rid)
			return
		}
		galleryID, ok := pathID(r, "gallery_id")
		if !ok {
			api.BadRequest(w, api.CodeInvalidID, "gallery_id must be a positive integer", rid, nil)
			return
		}

		var req createCommentRequest
		if err := api.DecodeJSON(w, r, &req); err != nil {
			api.BadRequest(w, api.CodeInvalidJSON, "invalid JSON", rid, nil)
			return
		}

		created, err := svc.CreateComment(r.Context(), store.NewComment{
			GalleryID: galleryID,
			UserID:    userID,
			ParentID:  req.ParentID,
			Text:      req.Text,
		})
		switch {
		case errors.Is(err, service.ErrEmptyText):
			api.BadRequest(w, api.CodeEmptyText, "text must not be empty", rid, nil)
			return
		case errors.Is(err, store.ErrInvalidParent):
			api.BadRequest(w, api.CodeInvalidParent, "parent comment does not belong to this gallery", rid, nil)
			return
		case err != nil:
			httpserver.Logger(r.Context(), log).Error("create comment", zap.Int64("gallery_id", galleryID), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// ToggleReaction handles POST /v1/comments/{comment_id}/reactions
func ToggleReaction(svc *service.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, rid)
			return
		}
		commentID, ok := pathID(r, "comment_id")
		if !ok {
			api.BadRequest(w, api.CodeInvalidID, "comment_id must be a positive integer", rid, nil)
			return
		}

		var req toggleReactionRequest
		if err := api.DecodeJSON(w, r, &req); err != nil {
			api.BadRequest(w, api.CodeInvalidJSON, "invalid JSON", rid, nil)
			return
		}
		typ, err := reaction.Parse(req.Type)
		if err != nil {
			api.BadRequest(w, api.CodeInvalidReaction, "unknown reaction type", rid, map[string]any{"type": req.Type})
			return
		}

		res, err := svc.ToggleReaction(r.Context(), userID, commentID, typ)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "comment not found", rid)
				return
			}
			httpserver.Logger(r.Context(), log).Error("toggle reaction", zap.Int64("comment_id", commentID), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

// ListComments handles GET /v1/comments
func ListComments(svc *service.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, rid)
			return
		}

		qs := r.URL.Query()
		scope, err := feed.ParseScope(qs.Get("scope"))
		if err != nil {
			api.BadRequest(w, api.CodeInvalidScope, "scope must be onMyGalleries, authored or mentions", rid, nil)
			return
		}
		q := feed.Query{
			Scope:    scope,
			Search:   qs.Get("search"),
			Page:     queryInt(qs.Get("page")),
			PageSize: queryPageSize(qs.Get("page_size")),
		}

		page, err := svc.List(r.Context(), userID, q)
		if err != nil {
			httpserver.Logger(r.Context(), log).Error("list comments", zap.String("scope", string(scope)), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// queryInt returns 0 for missing or malformed values so the defaults apply.
func queryInt(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// queryPageSize keeps 0 for "not given" only; an explicit page_size below 1
// clamps to 1.
func queryPageSize(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	if n < 1 {
		return 1
	}
	return n
}
