// Package shard splits large binary objects into size-bounded, content-addressed
// chunks and reassembles them with full integrity verification.
//
// # Sharding
//
// [Shard] reads an input file in fixed-size windows, writes each window to its
// own chunk object in a bucket, and records a SHA-256 digest per chunk. Chunks
// are processed by a bounded worker pool; each worker owns one chunk end-to-end
// (read, hash, write) and deposits its descriptor into a slot indexed by chunk
// number, so workers never contend on shared state. Once every chunk has
// completed, the composite content identifier is derived and the manifest is
// written.
//
// # Content identifier
//
// The identifier is an IPFS-compatible CIDv1 (raw codec, sha2-256 multihash)
// over the original filename, the big-endian total size, and the ordered chunk
// digests. Identical inputs always produce identical identifiers; changing any
// chunk byte, reordering chunks, or renaming the file changes the identifier.
//
// # Storage layout
//
//	{bucket}/chunk_000.part
//	{bucket}/chunk_001.part
//	{bucket}/{stem}_metadata.json
//
// # Manifest format
//
//	{
//	  "original_file": "photo.raw",
//	  "total_size": 1073741824,
//	  "chunk_size": 268435456,
//	  "chunk_count": 4,
//	  "chunks": [
//	    {"filename": "chunk_000.part", "size": 268435456, "sha256": "..."},
//	    ...
//	  ],
//	  "cid": "bafkrei..."
//	}
//
// # Reassembly
//
// [Reassemble] verifies every chunk's size and digest against the manifest and
// streams the bytes to a temporary file in strict index order. The output only
// becomes visible at its final path, via rename, after every chunk has passed
// verification and the total length matches the manifest. A failing chunk
// aborts the run; no partial output is left at the destination.
//
// The package performs no network I/O of its own. Buckets are gocloud.dev/blob
// handles, so chunk sets can live on the local filesystem (fileblob), in memory
// for tests (memblob), or in object storage (s3blob, gcsblob) without the core
// knowing the difference.
package shard
