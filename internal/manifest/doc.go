// Package manifest implements atomic manifest persistence for bitsieve indexes.
//
// A manifest describes one generation: the schema, the id field and the
// ordered list of segments. Manifests are immutable once written.
//
// # Atomic Protocol
//
// Save follows a two-phase commit protocol:
//
//  1. Write the manifest blob to MANIFEST-NNNNNN.json (N is the manifest ID)
//  2. Update the CURRENT pointer blob to reference the new manifest
//
// On local filesystems step 2 is an atomic rename. With the DynamoDB commit
// store, step 2 is a conditional write, so concurrent writers cannot both win.
//
// Load reads CURRENT to find the active manifest, then loads that blob.
//
// # Generations
//
// Generation returns the token used to key per-generation caches. It combines
// the manifest ID with an xxhash digest of the segment list, so a manifest
// rewritten with identical segments under a new ID is still a new generation.
package manifest
