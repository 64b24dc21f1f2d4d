package collector

import "github.com/hupe1980/bitsieve/bitvector"

// Entry holds the values of one field in collection order. Only the slice of
// the entry's Kind is set.
type Entry struct {
	Output  string
	Kind    Kind
	Strings []string
	Ints    []int64
	// Bitset is the zlib compressed encoded bit vector of the external ids.
	Bitset []byte
	Bits   *bitvector.BitVector
	// Skipped counts docs without a value because the accessor failed
	// (or, for row ids, the id was negative).
	Skipped int
}

// Value returns the entry's values as a slice.
func (e Entry) Value() any {
	switch e.Kind {
	case KindString:
		return e.Strings
	case KindInteger:
		return e.Ints
	default:
		return e.Bitset
	}
}

// Result is the output of a Pipeline.
type Result struct {
	Matches int
	Entries []Entry
}

// Get returns the entry for an output name.
func (r *Result) Get(output string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Output == output {
			return e, true
		}
	}
	return Entry{}, false
}

// Fields returns the values keyed by output name.
func (r *Result) Fields() map[string]any {
	out := make(map[string]any, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Output] = e.Value()
	}
	return out
}

// Bitset returns the first row-id entry.
func (r *Result) Bitset() (Entry, bool) {
	for _, e := range r.Entries {
		if e.Kind == KindRowID {
			return e, true
		}
	}
	return Entry{}, false
}

// Skipped returns the per-output counts of skipped docs, omitting zeros.
func (r *Result) Skipped() map[string]int {
	var out map[string]int
	for _, e := range r.Entries {
		if e.Skipped == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[e.Output] = e.Skipped
	}
	return out
}
