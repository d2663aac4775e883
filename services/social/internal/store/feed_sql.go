package store

import (
	"strconv"
	"strings"
)

const feedFrom = `FROM comments c
	JOIN users u ON u.id = c.user_id
	JOIN galleries g ON g.id = c.gallery_id`

type feedQuery struct {
	where     string
	countSQL  string
	countArgs []any
	listSQL   string
	listArgs  []any
}

// buildFeedQuery renders the filter once and reuses the same WHERE clause and
// arguments for both the count and the page fetch.
func buildFeedQuery(f FeedFilter, offset, limit int) feedQuery {
	where, args := feedWhere(f)

	listArgs := make([]any, 0, len(args)+2)
	listArgs = append(listArgs, args...)
	listArgs = append(listArgs, limit, offset)
	n := len(args)

	return feedQuery{
		where:     where,
		countSQL:  `SELECT count(*) ` + feedFrom + where,
		countArgs: args,
		listSQL: `SELECT c.id, c.text, c.created_at,
	u.id, u.username, u.full_name, u.avatar,
	g.id, g.title, g.thumbnail_key ` + feedFrom + where + `
	ORDER BY c.created_at DESC, c.id DESC
	LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2),
		listArgs: listArgs,
	}
}

func feedWhere(f FeedFilter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.IDIn != nil {
		conds = append(conds, "c.id = ANY("+arg(f.IDIn)+")")
	}
	if f.GalleryOwnerID != nil {
		conds = append(conds, "g.owner_id = "+arg(*f.GalleryOwnerID))
	}
	if f.AuthorID != nil {
		conds = append(conds, "c.user_id = "+arg(*f.AuthorID))
	}
	for _, s := range f.TextContains {
		conds = append(conds, `c.text ILIKE `+arg(containsPattern(s)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n\tWHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
