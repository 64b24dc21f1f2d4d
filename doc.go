// Package bitsieve intersects externally supplied id bitmaps with live
// queries and streams back selected field values.
//
// A client sends a zlib compressed bit vector whose set positions are
// external document ids. The Service translates the ids to internal rows of
// the current index generation, runs the query restricted to those rows and
// returns the requested fields of every match, optionally including the
// matched ids as a compressed bit vector.
//
// # Quick Start
//
//	ctx := context.Background()
//	svc, _ := bitsieve.Open(ctx, blobstore.NewLocalStore("./index"))
//	defer svc.Close()
//
//	resp, _ := svc.Select(ctx, bitsieve.SelectRequest{
//	    Bitset: body,                      // zlib(bitvector.Encode(ids))
//	    Query:  "year:[2000 TO *]",
//	    Fields: []string{"title", "bitset"},
//	})
//	fmt.Println(resp.Matches, resp.Misses, resp.Fields["title"])
//
// # Generations
//
// An index is a sequence of manifests. Each committed manifest is a new
// generation with its own token; Refresh publishes the newest one. The id
// mapping of a generation is built on first use and cached, so the first
// request after a refresh pays for one scan of the id column.
//
// # Field types
//
// Only string and integer fields can be selected. Requesting a field of any
// other declared type fails with ErrUnsupportedFieldType before the query
// runs. The pseudo-field "bitset" selects the external ids of the matches.
package bitsieve
