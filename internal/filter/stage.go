package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bitsieve/bitvector"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/internal/collector"
	"github.com/hupe1980/bitsieve/internal/engine"
	"github.com/hupe1980/bitsieve/internal/idmap"
	"github.com/hupe1980/bitsieve/internal/resource"
	"github.com/hupe1980/bitsieve/model"
)

var (
	// ErrMissingBitset is returned when the request carries no bitset stream.
	ErrMissingBitset = errors.New("filter: missing bitset stream")
	// ErrBadBitset is returned when the bitset stream cannot be decompressed.
	ErrBadBitset = errors.New("filter: malformed bitset stream")
)

// Request is one filtered query.
type Request struct {
	// Bitset is the zlib compressed encoded bit vector of external ids.
	// It is closed by Run.
	Bitset io.ReadCloser
	// Query defaults to MatchAll.
	Query  engine.Query
	Fields []collector.FieldSpec
	// TimeAllowed bounds execution. 0 means unbounded.
	TimeAllowed time.Duration
	Order       engine.Order
}

// Outcome is the result of a completed Stage.
type Outcome struct {
	Generation model.Generation
	Result     *collector.Result
	// Requested is the number of set bits in the input.
	Requested int
	// Misses counts requested ids without a document in the generation.
	Misses int
	// IDMapFailed reports that the generation's IdMap could not be built,
	// so every requested id missed.
	IDMapFailed bool
	// IDMapHit reports that the IdMap was served from the cache.
	IDMapHit bool
	Stats    engine.Stats
}

// Config holds the collaborators shared by all stages.
type Config struct {
	IDMaps *idmap.Cache
	// Stream decompresses requests and compresses row-id bitsets.
	Stream *codec.Stream
	Logger *slog.Logger
	// Resources accounts decoded bitsets. nil is unlimited.
	Resources *resource.Controller
}

// Stage runs one Request. A Stage is single use.
type Stage struct {
	cfg         Config
	state       State
	transitions []State
	err         error
}

// NewStage creates a stage in StateIdle.
func NewStage(cfg Config) *Stage {
	if cfg.Stream == nil {
		cfg.Stream = codec.NewFastestStream()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IDMaps == nil {
		cfg.IDMaps = idmap.NewCache(idmap.Options{Logger: cfg.Logger})
	}
	return &Stage{cfg: cfg, state: StateIdle, transitions: []State{StateIdle}}
}

// State returns the current state.
func (s *Stage) State() State { return s.state }

// Transitions returns every state entered, in order.
func (s *Stage) Transitions() []State { return append([]State(nil), s.transitions...) }

// Err returns the error that moved the stage to StateFailed.
func (s *Stage) Err() error { return s.err }

func (s *Stage) advance(to State) {
	if !s.state.next(to) {
		panic(fmt.Sprintf("filter: invalid transition %s -> %s", s.state, to))
	}
	s.state = to
	s.transitions = append(s.transitions, to)
}

func (s *Stage) fail(err error) error {
	s.err = err
	s.advance(StateFailed)
	return err
}

// Run executes req against snap.
func (s *Stage) Run(ctx context.Context, snap *engine.Snapshot, req Request) (*Outcome, error) {
	if req.Bitset != nil {
		defer req.Bitset.Close()
	}
	if s.state != StateIdle {
		return nil, fmt.Errorf("filter: stage already used (state %s)", s.state)
	}
	if req.Bitset == nil {
		return nil, s.fail(ErrMissingBitset)
	}
	s.advance(StateStreamReceived)

	raw, err := s.cfg.Stream.Decompress(req.Bitset)
	if err != nil {
		return nil, s.fail(fmt.Errorf("%w: %w", ErrBadBitset, err))
	}
	held := int64(len(raw))
	if err := s.cfg.Resources.AcquireMemory(held); err != nil {
		return nil, s.fail(fmt.Errorf("filter: bitset of %d bytes: %w", held, err))
	}
	defer s.cfg.Resources.ReleaseMemory(held)
	bits := bitvector.Decode(raw)
	s.advance(StateDecoded)

	out := &Outcome{Generation: snap.Generation()}
	ids, hit := s.cfg.IDMaps.Fetch(ctx, snap)
	out.IDMapHit = hit
	out.IDMapFailed = ids.Failed()

	rows := roaring.New()
	bits.ForEach(func(p uint64) bool {
		out.Requested++
		if p > math.MaxInt64 {
			out.Misses++
			return true
		}
		row, ok := ids.Translate(int64(p))
		if !ok {
			out.Misses++
			return true
		}
		rows.Add(row)
		return true
	})
	s.advance(StateTranslated)

	pipeline, err := collector.New(req.Fields,
		collector.WithIDField(snap.IDField()),
		collector.WithStream(s.cfg.Stream),
		collector.WithLogger(s.cfg.Logger))
	if err != nil {
		return nil, s.fail(err)
	}
	opts := engine.Options{TimeAllowed: req.TimeAllowed, Order: req.Order}
	s.advance(StateFilterInstalled)

	out.Stats, err = engine.Execute(ctx, snap, req.Query, rows, opts, pipeline)
	if err != nil {
		pipeline.Abort(err)
		return nil, s.fail(err)
	}
	s.advance(StateExecuted)

	out.Result, err = pipeline.Finish()
	if err != nil {
		return nil, s.fail(err)
	}
	s.advance(StateResponseBuilt)

	s.cfg.Logger.Debug("filtered query complete",
		"generation", string(out.Generation),
		"requested", out.Requested,
		"misses", out.Misses,
		"matches", out.Result.Matches,
		"elapsed", out.Stats.Elapsed)
	return out, nil
}
