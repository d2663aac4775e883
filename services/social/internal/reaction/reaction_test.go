package reaction

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEveryTypeHasColumn(t *testing.T) {
	seen := make(map[string]bool)
	for _, rt := range All() {
		col := rt.Column()
		if col == "" {
			t.Fatalf("%v has empty column", rt)
		}
		if seen[col] {
			t.Fatalf("column %q mapped twice", col)
		}
		seen[col] = true
	}
	if len(seen) != 9 {
		t.Fatalf("expected 9 columns, got %d", len(seen))
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(" thumb_up ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != ThumbUp {
		t.Fatalf("expected ThumbUp, got %v", got)
	}

	_, err = Parse("SHRUG")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestColumnPanicsOnInvalidType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero type")
		}
	}()
	_ = Type(0).Column()
}

func TestCountersJSONAlwaysComplete(t *testing.T) {
	var c Counters
	c.Add(Upvote, 1)

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 9 {
		t.Fatalf("expected 9 keys, got %d: %v", len(m), m)
	}
	if m["UPVOTE"] != 1 || m["EYE"] != 0 {
		t.Fatalf("unexpected counts: %v", m)
	}

	var back Counters
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal counters: %v", err)
	}
	if back != c {
		t.Fatalf("expected %v, got %v", c, back)
	}
}

func TestTypeJSON(t *testing.T) {
	b, err := json.Marshal([]Type{Heart, Rocket})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `["HEART","ROCKET"]` {
		t.Fatalf("unexpected json %s", b)
	}
	var back []Type
	if err := json.Unmarshal([]byte(`["eye"]`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 1 || back[0] != Eye {
		t.Fatalf("unexpected types %v", back)
	}
}
