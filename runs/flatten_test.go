package runs

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestFlattenNested(t *testing.T) {
	out, err := Flatten([]Run{
		{Start: 0, End: 10, Attributes: Attributes{"color": "red"}},
		{Start: 3, End: 6, Attributes: Attributes{"color": "blue", "bold": true}},
	})
	require.NoError(t, err)
	require.Equal(t, []Run{
		{Start: 0, End: 3, Attributes: Attributes{"color": "red"}},
		{Start: 3, End: 6, Attributes: Attributes{"color": "blue", "bold": true}},
		{Start: 6, End: 10, Attributes: Attributes{"color": "red"}},
	}, out)
}

func TestFlattenDisjointKeysMerge(t *testing.T) {
	out, err := Flatten([]Run{
		{Start: 0, End: 5, Attributes: Attributes{"a": 1}},
		{Start: 3, End: 8, Attributes: Attributes{"b": 2}},
	})
	require.NoError(t, err)
	require.Equal(t, []Run{
		{Start: 0, End: 3, Attributes: Attributes{"a": 1}},
		{Start: 3, End: 5, Attributes: Attributes{"a": 1, "b": 2}},
		{Start: 5, End: 8, Attributes: Attributes{"b": 2}},
	}, out)
}

func TestFlattenEmpty(t *testing.T) {
	for _, in := range [][]Run{nil, {}} {
		out, err := Flatten(in)
		require.NoError(t, err)
		require.NotNil(t, out)
		require.Empty(t, out)
	}
}

func TestFlattenZeroWidth(t *testing.T) {
	out, err := Flatten([]Run{
		{Start: 4, End: 4, Attributes: Attributes{"id": "x"}},
		{Start: 1, End: 1, Attributes: Attributes{"id": "z"}},
		{Start: 4, End: 4, Attributes: Attributes{"id": "y", "note": true}},
	})
	require.NoError(t, err)
	require.Equal(t, []Run{
		{Start: 1, End: 1, Attributes: Attributes{"id": "z"}},
		{Start: 4, End: 4, Attributes: Attributes{"id": "y", "note": true}},
	}, out)
}

func TestFlattenSharedBoundary(t *testing.T) {
	a := Run{Start: 0, End: 3, Attributes: Attributes{"a": 1}}
	b := Run{Start: 3, End: 6, Attributes: Attributes{"b": 1}}
	want := []Run{
		{Start: 0, End: 3, Attributes: Attributes{"a": 1}},
		{Start: 3, End: 6, Attributes: Attributes{"b": 1}},
	}

	for _, in := range [][]Run{{a, b}, {b, a}} {
		out, err := Flatten(in)
		require.NoError(t, err)
		require.Equal(t, want, out)
	}
}

// 同一个属性 map 被多个区间共享时，结束事件仍按输入位置出栈。
func TestFlattenSharedAttributeMap(t *testing.T) {
	shared := Attributes{"k": 1}
	out, err := Flatten([]Run{
		{Start: 0, End: 10, Attributes: shared},
		{Start: 2, End: 4, Attributes: Attributes{"k": 2}},
		{Start: 6, End: 8, Attributes: shared},
	})
	require.NoError(t, err)
	require.Equal(t, []Run{
		{Start: 0, End: 2, Attributes: Attributes{"k": 1}},
		{Start: 2, End: 4, Attributes: Attributes{"k": 2}},
		{Start: 4, End: 6, Attributes: Attributes{"k": 1}},
		{Start: 6, End: 8, Attributes: Attributes{"k": 1}},
		{Start: 8, End: 10, Attributes: Attributes{"k": 1}},
	}, out)
}

func TestFlattenDoesNotMutateInput(t *testing.T) {
	in := []Run{
		{Start: 5, End: 5, Attributes: Attributes{"m": 1}},
		{Start: 0, End: 10, Attributes: Attributes{"a": 1}},
		{Start: 2, End: 4, Attributes: Attributes{"b": 1}},
		{Start: 5, End: 5, Attributes: Attributes{"n": 1}},
	}
	snapshot := cloneRuns(in)

	out, err := Flatten(in)
	require.NoError(t, err)
	require.Equal(t, snapshot, in)

	// 输出的属性 map 彼此独立，也不与输入共享。
	for i := range out {
		out[i].Attributes["touched"] = i
	}
	require.Equal(t, snapshot, in)
	for i := range out {
		require.Equal(t, i, out[i].Attributes["touched"])
	}
}

func TestFlattenValidation(t *testing.T) {
	in := []Run{
		{Start: 0, End: 4},
		{Start: 5, End: 3},
		{Start: 2, End: 2},
		{Start: 9, End: 1, Attributes: Attributes{"a": 1}},
	}
	out, err := Flatten(in)
	require.Nil(t, out)
	require.True(t, errors.Is(err, ErrInvalidRange))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []InvalidRun{
		{Index: 1, Run: in[1]},
		{Index: 3, Run: in[3]},
	}, verr.Invalid)
	require.EqualError(t, err, "invalid run range: start > end for 2 run(s): #1 [5,3), #3 [9,1)")

	wrapped := errors.Wrap(err, "flatten runs")
	require.True(t, errors.Is(wrapped, ErrInvalidRange))
}

func TestFlattenIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 50; i++ {
		in := randomRuns(rng, 12)
		once, err := Flatten(in)
		require.NoError(t, err)
		twice, err := Flatten(once)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	}
}

// TestFlattenProperties checks random inputs against a per-offset reference:
// the attributes at p are those of every covering run, merged in start order.
func TestFlattenProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		in := randomRuns(rng, 10)
		out, err := Flatten(in)
		require.NoError(t, err)

		require.True(t, slices.IsSortedFunc(out, func(a, b Run) int {
			if c := cmp.Compare(a.Start, b.Start); c != 0 {
				return c
			}
			return cmp.Compare(a.End, b.End)
		}))

		var regular, empty []Run
		for _, r := range out {
			require.True(t, r.Valid())
			if r.IsEmpty() {
				empty = append(empty, r)
			} else {
				regular = append(regular, r)
			}
		}
		for j := 1; j < len(regular); j++ {
			require.LessOrEqual(t, regular[j-1].End, regular[j].Start, "segments overlap: %v", out)
		}

		for p := -5; p < 30; p++ {
			want := attrsAt(in, p)
			var got []Run
			for _, r := range regular {
				if r.Start <= p && p < r.End {
					got = append(got, r)
				}
			}
			if want == nil {
				require.Empty(t, got, "offset %d in %v", p, in)
				continue
			}
			require.Len(t, got, 1, "offset %d in %v", p, in)
			require.Equal(t, want, got[0].Attributes, "offset %d in %v", p, in)
		}

		for j := 1; j < len(empty); j++ {
			require.NotEqual(t, empty[j-1].Start, empty[j].Start)
		}
		for _, r := range empty {
			want := Attributes{}
			for _, src := range in {
				if src.IsEmpty() && src.Start == r.Start {
					want.Merge(src.Attributes)
				}
			}
			require.Equal(t, want, r.Attributes)
		}
	}
}

func TestFlattenConcurrent(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	in := randomRuns(rng, 20)
	want, err := Flatten(in)
	require.NoError(t, err)

	const workers = 8
	results := make([][]Run, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Flatten(in)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestAttributes(t *testing.T) {
	var nilAttrs Attributes
	c := nilAttrs.Clone()
	require.NotNil(t, c)
	require.Empty(t, c)

	a := Attributes{"z": 1, "a": "x", "m": true}
	require.Equal(t, []string{"a", "m", "z"}, a.Keys())
	require.Equal(t, "{a=x m=true z=1}", a.String())

	a.Merge(Attributes{"z": 2})
	require.Equal(t, 2, a["z"])
}

func TestRunString(t *testing.T) {
	r := Run{Start: 2, End: 5, Attributes: Attributes{"bold": true}}
	require.Equal(t, "[2,5) {bold=true}", r.String())
	require.Equal(t, 3, r.Len())
	require.False(t, r.IsEmpty())
	require.True(t, Run{Start: 4, End: 4}.IsEmpty())
	require.False(t, Run{Start: 4, End: 3}.Valid())
}

// attrsAt returns the expected attributes at offset p, or nil when no regular
// run covers it.
func attrsAt(in []Run, p int) Attributes {
	var cover []int
	for i, r := range in {
		if !r.IsEmpty() && r.Start <= p && p < r.End {
			cover = append(cover, i)
		}
	}
	if len(cover) == 0 {
		return nil
	}
	slices.SortStableFunc(cover, func(a, b int) int {
		return cmp.Compare(in[a].Start, in[b].Start)
	})
	out := Attributes{}
	for _, i := range cover {
		out.Merge(in[i].Attributes)
	}
	return out
}

func randomRuns(rng *rand.Rand, n int) []Run {
	keys := []string{"a", "b", "c"}
	count := rng.IntN(n) + 1
	out := make([]Run, 0, count)
	for i := 0; i < count; i++ {
		start := rng.IntN(20) - 2
		end := start
		if rng.IntN(4) > 0 {
			end = start + rng.IntN(8) + 1
		}
		attrs := Attributes{}
		for _, k := range keys {
			if rng.IntN(2) == 0 {
				attrs[k] = i
			}
		}
		out = append(out, Run{Start: start, End: end, Attributes: attrs})
	}
	return out
}

func cloneRuns(in []Run) []Run {
	out := make([]Run, len(in))
	for i, r := range in {
		out[i] = Run{Start: r.Start, End: r.End, Attributes: r.Attributes.Clone()}
	}
	return out
}
