package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/gallery-platform/internal/platform/db"
	"github.com/example/gallery-platform/services/social/internal/reaction"
)

// PostgresCommentStore persists comments and reactions in Postgres.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

var counterColumns = strings.Join(reaction.Columns(), ", ")

const commentColumns = `c.id, c.gallery_id, c.user_id, c.parent_id, c.text, c.created_at`

// Thread reads: roots newest first, both reply levels oldest first.
const (
	threadRootsSQL = `SELECT ` + commentColumns + `, u.id, u.username, u.full_name, u.avatar
		 FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.gallery_id = $1 AND c.parent_id IS NULL
		 ORDER BY c.created_at DESC, c.id DESC`
	threadRepliesSQL = `SELECT ` + commentColumns + `, u.id, u.username, u.full_name, u.avatar
		 FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.parent_id = ANY($1)
		 ORDER BY c.created_at ASC, c.id ASC`
	threadNestedSQL = `SELECT ` + commentColumns + `
		 FROM comments c
		 WHERE c.parent_id = ANY($1)
		 ORDER BY c.created_at ASC, c.id ASC`
)

const (
	ensureCountersSQL = `INSERT INTO comment_reaction_counts (comment_id) VALUES ($1) ON CONFLICT (comment_id) DO NOTHING`
	hasReactionSQL    = `SELECT EXISTS(SELECT 1 FROM comment_reactions WHERE comment_id = $1 AND user_id = $2 AND type = $3)`
	addReactionSQL    = `INSERT INTO comment_reactions (comment_id, user_id, type) VALUES ($1, $2, $3)
		 ON CONFLICT (comment_id, user_id, type) DO NOTHING`
	removeReactionSQL = `DELETE FROM comment_reactions WHERE comment_id = $1 AND user_id = $2 AND type = $3`
)

// counterUpdateSQL moves the counter column of rt by $2 for comment $1.
func counterUpdateSQL(rt reaction.Type) string {
	col := rt.Column()
	return `UPDATE comment_reaction_counts SET ` + col + ` = ` + col + ` + $2 WHERE comment_id = $1`
}

func (s *PostgresCommentStore) Create(ctx context.Context, c NewComment) (Comment, error) {
	const q = `INSERT INTO comments (gallery_id, user_id, parent_id, text)
	           SELECT $1::bigint, $2::bigint, $3::bigint, $4::text
	           WHERE $3::bigint IS NULL
	              OR EXISTS (SELECT 1 FROM comments WHERE id = $3 AND gallery_id = $1)
	           RETURNING id, gallery_id, user_id, parent_id, text, created_at`
	var out Comment
	err := s.pool.QueryRow(ctx, q, c.GalleryID, c.UserID, c.ParentID, c.Text).
		Scan(&out.ID, &out.GalleryID, &out.UserID, &out.ParentID, &out.Text, &out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrInvalidParent
	}
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) EnsureCounters(ctx context.Context, commentID int64) error {
	return ensureCounters(ctx, s.pool, commentID)
}

func ensureCounters(ctx context.Context, q db.DBTX, commentID int64) error {
	_, err := q.Exec(ctx, ensureCountersSQL, commentID)
	return err
}

func (s *PostgresCommentStore) GetThread(ctx context.Context, galleryID int64) ([]Comment, error) {
	roots, err := s.scanComments(ctx, true, threadRootsSQL, galleryID)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return []Comment{}, nil
	}

	replies, err := s.scanComments(ctx, true, threadRepliesSQL, commentIDs(roots))
	if err != nil {
		return nil, err
	}

	var nested []Comment
	if len(replies) > 0 {
		nested, err = s.scanComments(ctx, false, threadNestedSQL, commentIDs(replies))
		if err != nil {
			return nil, err
		}
	}

	nestedByParent := groupByParent(nested)
	for i := range replies {
		replies[i].Replies = nestedByParent[replies[i].ID]
		if replies[i].Replies == nil {
			replies[i].Replies = []Comment{}
		}
	}
	repliesByParent := groupByParent(replies)
	for i := range roots {
		roots[i].Replies = repliesByParent[roots[i].ID]
		if roots[i].Replies == nil {
			roots[i].Replies = []Comment{}
		}
	}
	return roots, nil
}

func (s *PostgresCommentStore) scanComments(ctx context.Context, withAuthor bool, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		dest := []any{&c.ID, &c.GalleryID, &c.UserID, &c.ParentID, &c.Text, &c.CreatedAt}
		var a Author
		if withAuthor {
			dest = append(dest, &a.ID, &a.Username, &a.FullName, &a.Avatar)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if withAuthor {
			c.Author = &a
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func commentIDs(cs []Comment) []int64 {
	ids := make([]int64, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

func groupByParent(cs []Comment) map[int64][]Comment {
	out := make(map[int64][]Comment)
	for _, c := range cs {
		if c.ParentID != nil {
			out[*c.ParentID] = append(out[*c.ParentID], c)
		}
	}
	return out
}

func (s *PostgresCommentStore) Counters(ctx context.Context, ids []int64) (map[int64]reaction.Counters, error) {
	out := make(map[int64]reaction.Counters, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT comment_id, `+counterColumns+` FROM comment_reaction_counts WHERE comment_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var c reaction.Counters
		if err := rows.Scan(append([]any{&id}, c.Fields()...)...); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}

func (s *PostgresCommentStore) Selections(ctx context.Context, userID int64, ids []int64) (map[int64][]reaction.Type, error) {
	out := make(map[int64][]reaction.Type)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT comment_id, type FROM comment_reactions WHERE user_id = $1 AND comment_id = ANY($2)`,
		userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		t, err := reaction.Parse(name)
		if err != nil {
			return nil, err
		}
		out[id] = append(out[id], t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for id := range out {
		sortTypes(out[id])
	}
	return out, nil
}

func (s *PostgresCommentStore) Username(ctx context.Context, userID int64) (*string, error) {
	var name *string
	err := s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return name, nil
}

func (s *PostgresCommentStore) ListFeed(ctx context.Context, f FeedFilter, offset, limit int) ([]FeedRow, int64, error) {
	fq := buildFeedQuery(f, offset, limit)

	var total int64
	if err := s.pool.QueryRow(ctx, fq.countSQL, fq.countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feed: %w", err)
	}

	rows, err := s.pool.Query(ctx, fq.listSQL, fq.listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	out := make([]FeedRow, 0, limit)
	for rows.Next() {
		var r FeedRow
		if err := rows.Scan(&r.ID, &r.Text, &r.CreatedAt,
			&r.Author.ID, &r.Author.Username, &r.Author.FullName, &r.Author.Avatar,
			&r.Gallery.ID, &r.Gallery.Title, &r.Gallery.ThumbnailKey); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) WithTx(ctx context.Context, fn func(tx ReactionTx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgReactionTx{tx: tx})
	})
}

type pgReactionTx struct {
	tx pgx.Tx
}

func (t *pgReactionTx) CommentExists(ctx context.Context, commentID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, commentID).Scan(&exists)
	return exists, err
}

func (t *pgReactionTx) EnsureCounters(ctx context.Context, commentID int64) error {
	return ensureCounters(ctx, t.tx, commentID)
}

func (t *pgReactionTx) HasReaction(ctx context.Context, k ReactionKey) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, hasReactionSQL, k.CommentID, k.UserID, k.Type.String()).Scan(&exists)
	return exists, err
}

func (t *pgReactionTx) AddReaction(ctx context.Context, k ReactionKey) (bool, error) {
	tag, err := t.tx.Exec(ctx, addReactionSQL, k.CommentID, k.UserID, k.Type.String())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgReactionTx) RemoveReaction(ctx context.Context, k ReactionKey) (bool, error) {
	tag, err := t.tx.Exec(ctx, removeReactionSQL, k.CommentID, k.UserID, k.Type.String())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgReactionTx) AddToCounter(ctx context.Context, commentID int64, rt reaction.Type, delta int64) error {
	tag, err := t.tx.Exec(ctx, counterUpdateSQL(rt), commentID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errCounterRowMissing(commentID)
	}
	return nil
}

func (t *pgReactionTx) Counters(ctx context.Context, commentID int64) (reaction.Counters, error) {
	var c reaction.Counters
	err := t.tx.QueryRow(ctx,
		`SELECT `+counterColumns+` FROM comment_reaction_counts WHERE comment_id = $1`, commentID).
		Scan(c.Fields()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return reaction.Counters{}, nil
	}
	return c, err
}

func (t *pgReactionTx) Selected(ctx context.Context, commentID, userID int64) ([]reaction.Type, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT type FROM comment_reactions WHERE comment_id = $1 AND user_id = $2`, commentID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []reaction.Type{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		rt, err := reaction.Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortTypes(out)
	return out, nil
}

func sortTypes(ts []reaction.Type) {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
}
