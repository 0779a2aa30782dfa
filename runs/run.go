package runs

import (
	"fmt"
	"sort"
	"strings"
)

// Attributes 保存一段区间上的属性。值对 flattener 来说是不透明的，只做合并。
type Attributes map[string]any

// Clone returns a shallow copy. The result is never nil.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge overlays src onto a; keys present in src win.
func (a Attributes) Merge(src Attributes) {
	for k, v := range src {
		a[k] = v
	}
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a Attributes) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range a.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, a[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Run 是一段带属性的偏移区间 [Start, End)。Start == End 时表示零宽标记。
type Run struct {
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Attributes Attributes `json:"attributes"`
}

// IsEmpty reports whether r is a zero-width marker.
func (r Run) IsEmpty() bool { return r.Start == r.End }

func (r Run) Len() int { return r.End - r.Start }

// Valid reports whether the bounds satisfy Start <= End.
func (r Run) Valid() bool { return r.Start <= r.End }

func (r Run) String() string {
	return fmt.Sprintf("[%d,%d) %s", r.Start, r.End, r.Attributes)
}
