// Package reaction defines the nine reaction kinds a user can attach to a
// comment and the per-comment counter shape that mirrors the reaction ledger.
package reaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type is a reaction kind. The zero value is not a valid type.
type Type uint8

const (
	Upvote Type = iota + 1
	ThumbUp
	ThumbDown
	Laugh
	Hooray
	Confused
	Heart
	Rocket
	Eye

	maxType = Eye
)

// Count is the number of reaction kinds.
const Count = int(maxType)

var ErrUnknownType = errors.New("unknown reaction type")

type spec struct {
	name   string
	column string
}

// specs is indexed by Type. Every type must have a name and a counter column;
// init panics otherwise so a new type cannot ship without its counter.
var specs = [Count + 1]spec{
	Upvote:    {name: "UPVOTE", column: "upvote"},
	ThumbUp:   {name: "THUMB_UP", column: "thumb_up"},
	ThumbDown: {name: "THUMB_DOWN", column: "thumb_down"},
	Laugh:     {name: "LAUGH", column: "laugh"},
	Hooray:    {name: "HOORAY", column: "hooray"},
	Confused:  {name: "CONFUSED", column: "confused"},
	Heart:     {name: "HEART", column: "heart"},
	Rocket:    {name: "ROCKET", column: "rocket"},
	Eye:       {name: "EYE", column: "eye"},
}

var byName map[string]Type

func init() {
	byName = make(map[string]Type, Count)
	for _, t := range All() {
		s := specs[t]
		if s.name == "" || s.column == "" {
			panic(fmt.Sprintf("reaction: type %d has no name or counter column", t))
		}
		if _, dup := byName[s.name]; dup {
			panic(fmt.Sprintf("reaction: duplicate name %q", s.name))
		}
		byName[s.name] = t
	}
}

// All returns every reaction type in declaration order.
func All() []Type {
	out := make([]Type, 0, Count)
	for t := Type(1); t <= maxType; t++ {
		out = append(out, t)
	}
	return out
}

// Parse accepts the wire name of a type, case-insensitively.
func Parse(s string) (Type, error) {
	t, ok := byName[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

func (t Type) Valid() bool { return t >= 1 && t <= maxType }

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return specs[t].name
}

// Column is the aggregate counter column that tracks t.
func (t Type) Column() string {
	if !t.Valid() {
		panic(fmt.Sprintf("reaction: no counter column for %v", t))
	}
	return specs[t].column
}

func (t Type) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return json.Marshal(specs[t].name)
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Columns lists the counter columns in type order.
func Columns() []string {
	out := make([]string, 0, Count)
	for _, t := range All() {
		out = append(out, t.Column())
	}
	return out
}
