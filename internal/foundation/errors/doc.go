// Package errors provides the classified error primitives used across docdraft.
//
// Every failure of a publish run is terminal. The category decides the exit
// code and whether a pull-request comment is posted:
//   - CategoryValidation: malformed input, aborts before any remote call
//   - CategoryBuild: site generator failed, reported in a failure comment
//   - CategoryStorage, CategoryCDN: transfer or invalidation failed, no comment
//   - CategoryForge: the comment itself could not be posted
//
// Example usage:
//
//	err := errors.StorageError("upload failed").
//		WithContext("key", key).
//		WithCause(originalErr).
//		Build()
package errors
