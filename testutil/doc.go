// Package testutil provides testing utilities for bitsieve.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating sparse id sets and documents and for
// building and reading the compressed bitset wire format.
//
// # Random Documents
//
//	rng := testutil.NewRNG(seed)
//	docs := rng.Documents(1000, 1<<24) // ids sparse in [0, 1<<24)
//
// # Bitsets
//
//	body := testutil.BitsetReader(10, 30)    // request part
//	ids := testutil.DecodeBitset(t, payload) // response bitset
package testutil
