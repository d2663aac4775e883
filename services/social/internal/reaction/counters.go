package reaction

import (
	"encoding/json"
	"fmt"
)

// Counters holds one aggregate count per reaction type. The zero value is a
// complete all-zero snapshot, so a missing counter row never yields missing keys.
type Counters [Count]int64

func (c Counters) Get(t Type) int64 {
	if !t.Valid() {
		return 0
	}
	return c[t-1]
}

func (c *Counters) Set(t Type, n int64) {
	if !t.Valid() {
		panic(fmt.Sprintf("reaction: set on %v", t))
	}
	c[t-1] = n
}

func (c *Counters) Add(t Type, delta int64) {
	c.Set(t, c.Get(t)+delta)
}

// Map returns the nine-key name -> count view.
func (c Counters) Map() map[string]int64 {
	out := make(map[string]int64, Count)
	for _, t := range All() {
		out[t.String()] = c.Get(t)
	}
	return out
}

func (c Counters) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

func (c *Counters) UnmarshalJSON(b []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Counters
	for k, v := range m {
		t, err := Parse(k)
		if err != nil {
			return err
		}
		out.Set(t, v)
	}
	*c = out
	return nil
}

// Fields returns scan targets for the counter columns, in Columns() order.
func (c *Counters) Fields() []any {
	out := make([]any, Count)
	for i := range c {
		out[i] = &c[i]
	}
	return out
}
