package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/bitsieve/bitvector"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/internal/engine"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIDField sets the integer field the row-id collector reads. Default "id".
func WithIDField(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.idField = name
		}
	}
}

// WithStream sets the compression stream of the row-id bitset.
func WithStream(s *codec.Stream) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.stream = s
		}
	}
}

// WithLogger sets the logger for accessor failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline collects the requested fields of every match.
// A Pipeline serves one execution and is not safe for concurrent use.
type Pipeline struct {
	collectors []fieldCollector
	idField    string
	stream     *codec.Stream
	logger     *slog.Logger

	segment  engine.SegmentReader
	matches  int
	abortErr error
	// failures records (segment, field) pairs already logged.
	failures map[string]struct{}
}

var _ engine.Collector = (*Pipeline)(nil)

// New creates a pipeline with one collector per spec, in spec order.
func New(specs []FieldSpec, optFns ...Option) (*Pipeline, error) {
	p := &Pipeline{
		idField:  engine.DefaultIDField,
		logger:   slog.Default(),
		failures: make(map[string]struct{}),
	}
	for _, fn := range optFns {
		fn(p)
	}
	if p.stream == nil {
		p.stream = codec.NewFastestStream()
	}

	outputs := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		out := s.OutputName()
		if _, dup := outputs[out]; dup {
			return nil, &FieldError{Field: out, Err: ErrDuplicateOutput}
		}
		outputs[out] = struct{}{}

		switch s.Kind {
		case KindString:
			p.collectors = append(p.collectors, &stringCollector{s: s})
		case KindInteger:
			p.collectors = append(p.collectors, &intCollector{s: s})
		case KindRowID:
			p.collectors = append(p.collectors, &rowIDCollector{s: s, idField: p.idField, bits: bitvector.New()})
		default:
			return nil, &FieldError{Field: s.Name, Type: s.Kind.String(), Err: ErrUnsupportedFieldType}
		}
	}
	return p, nil
}

// SetSegment binds every collector to seg.
//
// A collector whose accessor fails is logged once per segment and field and
// skips the docs of seg; the other collectors are unaffected. Only context
// errors are returned.
func (p *Pipeline) SetSegment(ctx context.Context, seg engine.SegmentReader) error {
	p.segment = seg
	for _, c := range p.collectors {
		err := c.bind(ctx, seg)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		p.logFailure(seg, c.spec(), err)
	}
	return nil
}

func (p *Pipeline) logFailure(seg engine.SegmentReader, s FieldSpec, err error) {
	key := fmt.Sprintf("%s/%s", seg.ID(), s.Name)
	if _, seen := p.failures[key]; seen {
		return
	}
	p.failures[key] = struct{}{}
	p.logger.Warn("field accessor failed, skipping segment docs",
		"segment", seg.ID().String(),
		"field", s.Name,
		"error", err)
}

// Collect appends the values of local, a doc of the bound segment.
func (p *Pipeline) Collect(local uint32) error {
	if p.segment == nil {
		return errors.New("collector: Collect before SetSegment")
	}
	p.matches++
	for _, c := range p.collectors {
		c.collect(local)
	}
	return nil
}

// Abort marks the execution as incomplete.
func (p *Pipeline) Abort(err error) {
	if err == nil {
		err = ErrIncomplete
	}
	p.abortErr = err
}

// Matches returns the number of collected docs.
func (p *Pipeline) Matches() int { return p.matches }

// Finish materializes the collected values.
func (p *Pipeline) Finish() (*Result, error) {
	if p.abortErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncomplete, p.abortErr)
	}
	r := &Result{Matches: p.matches, Entries: make([]Entry, 0, len(p.collectors))}
	for _, c := range p.collectors {
		e, err := c.finish(p.stream)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", c.spec().Name, err)
		}
		r.Entries = append(r.Entries, e)
	}
	return r, nil
}
