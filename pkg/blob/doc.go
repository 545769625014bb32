// Package blob abstracts the binary artifact store used by the lifecycle
// subsystem: story audio and photos, uploaded export artifacts, and temp
// files all live behind the Store interface.
//
// # Backends
//
//   - S3: production backend over aws-sdk-go
//   - Filesystem: single-node deployments and local CLI use
//   - Memory: testing
//
// Keys are opaque slash-separated paths ("projects/<id>/stories/<id>/audio").
// Put returns the public download URL for the stored object; how that URL is
// formed is backend-specific.
package blob
