package collector

import (
	"context"

	"github.com/hupe1980/bitsieve/bitvector"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/internal/engine"
)

// fieldCollector is one typed collector of a pipeline.
type fieldCollector interface {
	spec() FieldSpec
	// bind loads the accessor of seg. After a failed bind the collector
	// skips every doc of seg.
	bind(ctx context.Context, seg engine.SegmentReader) error
	unbind()
	collect(local uint32)
	finish(stream *codec.Stream) (Entry, error)
}

type stringCollector struct {
	s       FieldSpec
	column  []string
	bound   bool
	values  []string
	skipped int
}

func (c *stringCollector) spec() FieldSpec { return c.s }

func (c *stringCollector) bind(ctx context.Context, seg engine.SegmentReader) error {
	col, err := seg.Strings(ctx, c.s.Name)
	if err != nil {
		c.unbind()
		return err
	}
	c.column, c.bound = col, true
	return nil
}

func (c *stringCollector) unbind() { c.column, c.bound = nil, false }

func (c *stringCollector) collect(local uint32) {
	if !c.bound {
		c.skipped++
		return
	}
	c.values = append(c.values, c.column[local])
}

func (c *stringCollector) finish(*codec.Stream) (Entry, error) {
	values := c.values
	if values == nil {
		values = []string{}
	}
	return Entry{Output: c.s.OutputName(), Kind: KindString, Strings: values, Skipped: c.skipped}, nil
}

type intCollector struct {
	s       FieldSpec
	column  []int64
	bound   bool
	values  []int64
	skipped int
}

func (c *intCollector) spec() FieldSpec { return c.s }

func (c *intCollector) bind(ctx context.Context, seg engine.SegmentReader) error {
	col, err := seg.Ints(ctx, c.s.Name)
	if err != nil {
		c.unbind()
		return err
	}
	c.column, c.bound = col, true
	return nil
}

func (c *intCollector) unbind() { c.column, c.bound = nil, false }

func (c *intCollector) collect(local uint32) {
	if !c.bound {
		c.skipped++
		return
	}
	c.values = append(c.values, c.column[local])
}

func (c *intCollector) finish(*codec.Stream) (Entry, error) {
	values := c.values
	if values == nil {
		values = []int64{}
	}
	return Entry{Output: c.s.OutputName(), Kind: KindInteger, Ints: values, Skipped: c.skipped}, nil
}

// rowIDCollector sets the external id of every match in a bit vector.
type rowIDCollector struct {
	s       FieldSpec
	idField string
	column  []int64
	bound   bool
	bits    *bitvector.BitVector
	skipped int
}

func (c *rowIDCollector) spec() FieldSpec { return c.s }

func (c *rowIDCollector) bind(ctx context.Context, seg engine.SegmentReader) error {
	col, err := seg.Ints(ctx, c.idField)
	if err != nil {
		c.unbind()
		return err
	}
	c.column, c.bound = col, true
	return nil
}

func (c *rowIDCollector) unbind() { c.column, c.bound = nil, false }

func (c *rowIDCollector) collect(local uint32) {
	if !c.bound {
		c.skipped++
		return
	}
	id := c.column[local]
	if id < 0 {
		c.skipped++
		return
	}
	c.bits.Set(uint64(id))
}

func (c *rowIDCollector) finish(stream *codec.Stream) (Entry, error) {
	compressed, err := stream.Compress(bitvector.Encode(c.bits))
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Output:  c.s.OutputName(),
		Kind:    KindRowID,
		Bitset:  compressed,
		Bits:    c.bits,
		Skipped: c.skipped,
	}, nil
}
