package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/bitsieve/model"
)

// Query is a parsed predicate over stored fields.
type Query interface {
	// String returns the canonical query syntax.
	String() string
	// Validate checks fields and literals against the schema.
	Validate(schema model.Schema) error
	// bind resolves the query against one segment's columns.
	bind(ctx context.Context, seg SegmentReader, schema model.Schema) (matcher, error)
}

// matcher reports whether a local doc matches.
type matcher func(local uint32) bool

func matchAll(uint32) bool { return true }

// MatchAll matches every document ("*:*").
type MatchAll struct{}

func (MatchAll) String() string { return "*:*" }

func (MatchAll) Validate(model.Schema) error { return nil }

func (MatchAll) bind(context.Context, SegmentReader, model.Schema) (matcher, error) {
	return matchAll, nil
}

// Term matches documents whose field equals Value ("field:value").
type Term struct {
	Field string
	Value string
}

func (t Term) String() string { return t.Field + ":" + quote(t.Value) }

func (t Term) Validate(schema model.Schema) error {
	ft, err := lookupField(schema, t.Field)
	if err != nil {
		return err
	}
	return checkLiteral(t.Field, ft, t.Value)
}

func (t Term) bind(ctx context.Context, seg SegmentReader, schema model.Schema) (matcher, error) {
	switch schema[t.Field] {
	case model.FieldInteger:
		want, _ := strconv.ParseInt(t.Value, 10, 64)
		vals, err := seg.Ints(ctx, t.Field)
		if err != nil {
			return nil, err
		}
		return func(d uint32) bool { return vals[d] == want }, nil
	case model.FieldFloat:
		want, _ := strconv.ParseFloat(t.Value, 64)
		vals, err := seg.Floats(ctx, t.Field)
		if err != nil {
			return nil, err
		}
		return func(d uint32) bool { return vals[d] == want }, nil
	default:
		vals, err := seg.Strings(ctx, t.Field)
		if err != nil {
			return nil, err
		}
		return func(d uint32) bool { return vals[d] == t.Value }, nil
	}
}

// Range matches documents whose field lies in the inclusive range
// [Lo, Hi] ("field:[lo TO hi]"). An empty bound is open.
type Range struct {
	Field string
	Lo    string
	Hi    string
}

func (r Range) String() string {
	bound := func(s string) string {
		if s == "" {
			return "*"
		}
		return quote(s)
	}
	return fmt.Sprintf("%s:[%s TO %s]", r.Field, bound(r.Lo), bound(r.Hi))
}

func (r Range) Validate(schema model.Schema) error {
	ft, err := lookupField(schema, r.Field)
	if err != nil {
		return err
	}
	for _, b := range []string{r.Lo, r.Hi} {
		if b == "" {
			continue
		}
		if err := checkLiteral(r.Field, ft, b); err != nil {
			return err
		}
	}
	return nil
}

func (r Range) bind(ctx context.Context, seg SegmentReader, schema model.Schema) (matcher, error) {
	switch schema[r.Field] {
	case model.FieldInteger:
		lo, hi := int64Bounds(r.Lo, r.Hi)
		vals, err := seg.Ints(ctx, r.Field)
		if err != nil {
			return nil, err
		}
		return func(d uint32) bool { v := vals[d]; return v >= lo && v <= hi }, nil
	case model.FieldFloat:
		lo, hi := float64Bounds(r.Lo, r.Hi)
		vals, err := seg.Floats(ctx, r.Field)
		if err != nil {
			return nil, err
		}
		return func(d uint32) bool { v := vals[d]; return v >= lo && v <= hi }, nil
	default:
		vals, err := seg.Strings(ctx, r.Field)
		if err != nil {
			return nil, err
		}
		lo, hi := r.Lo, r.Hi
		return func(d uint32) bool {
			v := vals[d]
			return (lo == "" || v >= lo) && (hi == "" || v <= hi)
		}, nil
	}
}

// And matches documents matching every clause.
type And []Query

func (a And) String() string {
	parts := make([]string, len(a))
	for i, q := range a {
		parts[i] = q.String()
	}
	return strings.Join(parts, " AND ")
}

func (a And) Validate(schema model.Schema) error {
	for _, q := range a {
		if err := q.Validate(schema); err != nil {
			return err
		}
	}
	return nil
}

func (a And) bind(ctx context.Context, seg SegmentReader, schema model.Schema) (matcher, error) {
	ms := make([]matcher, 0, len(a))
	for _, q := range a {
		if _, ok := q.(MatchAll); ok {
			continue
		}
		m, err := q.bind(ctx, seg, schema)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	switch len(ms) {
	case 0:
		return matchAll, nil
	case 1:
		return ms[0], nil
	}
	return func(d uint32) bool {
		for _, m := range ms {
			if !m(d) {
				return false
			}
		}
		return true
	}, nil
}

func lookupField(schema model.Schema, field string) (model.FieldType, error) {
	ft, ok := schema.Lookup(field)
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, field)
	}
	return ft, nil
}

func checkLiteral(field string, ft model.FieldType, v string) error {
	switch ft {
	case model.FieldInteger:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("%w: %q is not an integer for field %q", ErrInvalidQuery, v, field)
		}
	case model.FieldFloat:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%w: %q is not a number for field %q", ErrInvalidQuery, v, field)
		}
	}
	return nil
}

func int64Bounds(lo, hi string) (int64, int64) {
	l, h := int64(-1<<63), int64(1<<63-1)
	if lo != "" {
		l, _ = strconv.ParseInt(lo, 10, 64)
	}
	if hi != "" {
		h, _ = strconv.ParseInt(hi, 10, 64)
	}
	return l, h
}

func float64Bounds(lo, hi string) (float64, float64) {
	l, h := -1.7976931348623157e308, 1.7976931348623157e308
	if lo != "" {
		l, _ = strconv.ParseFloat(lo, 64)
	}
	if hi != "" {
		h, _ = strconv.ParseFloat(hi, 64)
	}
	return l, h
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"[]:") {
		return s
	}
	return strconv.Quote(s)
}
