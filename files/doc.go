// Package files manages the metadata rows of blobs kept in an external object
// store. Expired files are removed lazily on read and in bulk by
// SweepExpired; every blob removal goes through a BlobDeleter so the bucket
// and the table stay in step.
package files
