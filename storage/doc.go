// Package storage is the output store of dagflow runs: a path-keyed object
// store that node outputs are streamed into and read back from.
//
// # Backends
//
//   - storage/local: local filesystem
//   - storage/memory: in-process map, for tests and in-memory invocation
//   - storage/s3: Amazon S3 and S3-compatible services
//
// Backends register themselves with RegisterFactory; import the ones you need
// and build a store from configuration with New.
//
//	storage:
//	  provider: "s3"
//	  bucket: "dag-runs"
//	  region: "eu-west-1"
package storage
