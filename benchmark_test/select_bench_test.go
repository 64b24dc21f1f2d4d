package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/bitsieve"
	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/testutil"
)

// BenchmarkSelectSelectivity measures filtered selects at several request
// sizes. Default: 100K docs in 10 segments (fast CI benchmark)
func BenchmarkSelectSelectivity(b *testing.B) {
	runSelectBenchmark(b, 100_000, 10)
}

// BenchmarkSelect_1M runs the same workload at 1M docs.
// Skipped in short mode - run with: go test -bench=Select_1M -benchtime=1x
func BenchmarkSelect_1M(b *testing.B) {
	if testing.Short() {
		b.Skip("skipping large benchmark in short mode")
	}
	runSelectBenchmark(b, 1_000_000, 20)
}

func openBenchService(b *testing.B, numDocs, segments int, opts ...bitsieve.Option) (*bitsieve.Service, []int64) {
	b.Helper()
	ctx := context.Background()

	opts = append([]bitsieve.Option{
		bitsieve.WithLogger(bitsieve.NoopLogger()),
		bitsieve.WithSchema(testutil.Schema),
	}, opts...)
	svc, err := bitsieve.Open(ctx, blobstore.NewLocalStore(b.TempDir()), opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = svc.Close() })

	ids := testutil.NewRNG(42).SparseIDs(numDocs, int64(numDocs)*8)
	per := (numDocs + segments - 1) / segments
	for start := 0; start < numDocs; start += per {
		end := min(start+per, numDocs)
		if _, err := svc.Append(ctx, testutil.DocumentsFor(ids[start:end])); err != nil {
			b.Fatal(err)
		}
	}
	return svc, ids
}

func runSelectBenchmark(b *testing.B, numDocs, segments int) {
	svc, ids := openBenchService(b, numDocs, segments)
	rng := testutil.NewRNG(7)

	for _, pct := range []int{1, 10, 50} {
		requested := rng.Sample(ids, numDocs*pct/100)
		payload := testutil.EncodeBitset(requested...)

		for _, fl := range [][]string{{"title"}, {"title", "year", bitsieve.RowIDField}} {
			b.Run(fmt.Sprintf("sel=%d%%/fields=%d", pct, len(fl)), func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(payload)))
				for b.Loop() {
					resp, err := svc.Select(context.Background(), bitsieve.SelectRequest{
						Bitset: testutil.BitsetReader(requested...),
						Fields: fl,
					})
					if err != nil {
						b.Fatal(err)
					}
					if resp.Matches != len(requested) {
						b.Fatalf("matches = %d, want %d", resp.Matches, len(requested))
					}
				}
				b.ReportMetric(float64(len(requested)), "ids/op")
			})
		}
	}
}

// BenchmarkSelectWithQuery combines the id filter with a range query.
func BenchmarkSelectWithQuery(b *testing.B) {
	svc, ids := openBenchService(b, 100_000, 10)
	requested := testutil.NewRNG(3).Sample(ids, 10_000)

	b.ReportAllocs()
	for b.Loop() {
		_, err := svc.Select(context.Background(), bitsieve.SelectRequest{
			Bitset: testutil.BitsetReader(requested...),
			Query:  "year:[1980 TO 1999]",
			Fields: []string{"title"},
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
