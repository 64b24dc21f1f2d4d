// Command bitsieve-ingest appends JSON-lines documents to a local index.
//
//	bitsieve-ingest -dir ./data -schema id:integer,title:string < docs.jsonl
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"

	"github.com/hupe1980/bitsieve"
	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/internal/column"
	"github.com/hupe1980/bitsieve/model"
)

type options struct {
	dir         string
	schema      string
	idField     string
	batch       int
	compression string
	replace     bool
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", "./data", "Index directory.")
	flag.StringVar(&opts.schema, "schema", "", "Schema of a new index, e.g. id:integer,title:string.")
	flag.StringVar(&opts.idField, "id-field", "id", "Integer field holding external ids.")
	flag.IntVar(&opts.batch, "batch", 100000, "Documents per segment.")
	flag.StringVar(&opts.compression, "compression", "lz4", "Column compression: none, lz4 or zstd.")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging.")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdin, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "bitsieve-ingest: %v\n", err)
		os.Exit(1)
	}
}

// parseSchema parses a comma separated list of name:type pairs.
func parseSchema(s string) (model.Schema, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	schema := model.Schema{}
	for _, part := range strings.Split(s, ",") {
		name, typ, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("schema entry %q: want name:type", part)
		}
		t := model.FieldType(typ)
		if !t.Valid() {
			return nil, fmt.Errorf("schema entry %q: unknown type %q", part, typ)
		}
		if _, dup := schema[name]; dup {
			return nil, fmt.Errorf("schema entry %q: duplicate field", part)
		}
		schema[name] = t
	}
	return schema, nil
}

func run(ctx context.Context, opts options, stdin io.Reader, files []string) error {
	schema, err := parseSchema(opts.schema)
	if err != nil {
		return err
	}
	if opts.batch <= 0 {
		return errors.New("batch must be positive")
	}
	if _, err := column.ParseCompression(opts.compression); err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := bitsieve.NewTextLogger(level)

	svcOpts := []bitsieve.Option{
		bitsieve.WithLogger(logger),
		bitsieve.WithIDField(opts.idField),
		bitsieve.WithCompression(opts.compression),
	}
	if schema != nil {
		svcOpts = append(svcOpts, bitsieve.WithSchema(schema))
	}

	svc, err := bitsieve.Open(ctx, blobstore.NewLocalStore(opts.dir), svcOpts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	inputs := []io.Reader{stdin}
	if len(files) > 0 {
		inputs = inputs[:0]
		for _, name := range files {
			f, err := os.Open(name)
			if err != nil {
				return err
			}
			defer f.Close()
			inputs = append(inputs, f)
		}
	}

	l := &loader{svc: svc, batch: opts.batch, logger: logger}
	for _, r := range inputs {
		if err := l.load(ctx, r); err != nil {
			return err
		}
	}
	if err := l.flush(ctx); err != nil {
		return err
	}

	logger.Info("ingest complete",
		"documents", humanize.Comma(int64(l.total)),
		"generation", string(svc.Generation()),
		"docs_in_index", svc.NumDocs(),
	)
	return nil
}

type loader struct {
	svc     *bitsieve.Service
	batch   int
	logger  *bitsieve.Logger
	pending []model.Document
	total   int
	line    int
}

// load decodes one document per line and appends full batches.
func (l *loader) load(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	for sc.Scan() {
		l.line++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var doc model.Document
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("line %d: %w", l.line, err)
		}
		l.pending = append(l.pending, doc)

		if len(l.pending) >= l.batch {
			if err := l.flush(ctx); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

func (l *loader) flush(ctx context.Context) error {
	if len(l.pending) == 0 {
		return nil
	}
	gen, err := l.svc.Append(ctx, l.pending)
	if err != nil {
		return fmt.Errorf("append batch ending at line %d: %w", l.line, err)
	}
	l.total += len(l.pending)
	l.logger.Debug("batch appended", "docs", len(l.pending), "generation", string(gen))
	l.pending = nil
	return nil
}
