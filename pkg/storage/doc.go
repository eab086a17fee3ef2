// Package storage is the artifact store.
//
// Artifacts are addressed by forward-slash logical keys such as
// "json/python/abc.json". Two backends implement Store:
//   - LocalStore writes files under a root directory, atomically through a
//     temporary file and rename
//   - ObjectStore writes objects under a prefix in an S3-compatible bucket
//     (minio-go), including GCS through storage.googleapis.com
//
// Both keep the last write for a key and report Exists only for completed
// writes. Neither is safe for concurrent writers to the same key.
package storage
