package runs

import (
	"cmp"
	"slices"
)

// Flatten 将任意重叠、嵌套或重合的区间规整为互不重叠、按 (start, end) 升序的序列。
//
// Regular runs (Start < End) are resolved with a sweep over their boundaries:
// where ranges overlap, the most recently started one wins attribute
// conflicts. Zero-width runs are merged per offset, later input wins. The
// input slice and its runs are never modified, and every returned run owns
// a fresh attribute map.
//
// A run with Start > End makes Flatten fail with a *ValidationError.
func Flatten(in []Run) ([]Run, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var regular, empty []indexed
	for i, r := range in {
		if r.IsEmpty() {
			empty = append(empty, indexed{index: i, run: r})
		} else {
			regular = append(regular, indexed{index: i, run: r})
		}
	}

	out := make([]Run, 0, 2*len(regular)+len(empty))
	out = append(out, flattenRegular(regular)...)
	out = append(out, flattenEmpty(empty)...)
	slices.SortFunc(out, func(a, b Run) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
	return out, nil
}

// indexed 记录 run 在调用方输入中的位置，作为结束事件的关联标识。
type indexed struct {
	index int
	run   Run
}

type eventKind int

const (
	eventStart eventKind = iota
	eventEnd
)

type event struct {
	kind   eventKind
	offset int
	index  int
	attrs  Attributes
}

func flattenRegular(in []indexed) []Run {
	if len(in) == 0 {
		return nil
	}

	events := make([]event, 0, 2*len(in))
	for _, r := range in {
		events = append(events,
			event{kind: eventStart, offset: r.run.Start, index: r.index, attrs: r.run.Attributes},
			event{kind: eventEnd, offset: r.run.End, index: r.index, attrs: r.run.Attributes},
		)
	}
	// Ties on offset are broken by input position only, not by event kind.
	slices.SortFunc(events, func(a, b event) int {
		if c := cmp.Compare(a.offset, b.offset); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	var (
		res     []Run
		stack   []event
		merged  = Attributes{}
		prev    int
		started bool
	)
	for _, ev := range events {
		if started && prev < ev.offset && len(stack) > 0 {
			res = append(res, Run{Start: prev, End: ev.offset, Attributes: merged.Clone()})
		}

		switch ev.kind {
		case eventStart:
			stack = append(stack, ev)
			merged.Merge(ev.attrs)
		case eventEnd:
			if i := slices.IndexFunc(stack, func(s event) bool { return s.index == ev.index }); i >= 0 {
				stack = slices.Delete(stack, i, i+1)
			}
			merged = Attributes{}
			for _, s := range stack {
				merged.Merge(s.attrs)
			}
		}

		prev = ev.offset
		started = true
	}
	return res
}

func flattenEmpty(in []indexed) []Run {
	if len(in) == 0 {
		return nil
	}

	var points []int
	byPoint := make(map[int]Attributes)
	for _, r := range in {
		attrs, ok := byPoint[r.run.Start]
		if !ok {
			attrs = Attributes{}
			byPoint[r.run.Start] = attrs
			points = append(points, r.run.Start)
		}
		attrs.Merge(r.run.Attributes)
	}

	res := make([]Run, 0, len(points))
	for _, p := range points {
		res = append(res, Run{Start: p, End: p, Attributes: byPoint[p]})
	}
	return res
}
