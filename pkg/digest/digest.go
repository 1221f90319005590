// Content fingerprints for upload payloads.
package digest

import (
	"crypto/md5"
	"encoding/base64"
)

// Compute returns the payload size in bytes and the base64-encoded md5
// digest of the payload. The store matches this digest against the blob it
// receives, so the encoding must stay exactly as-is. Callers compute the
// pair once at file-unit construction and reuse it for every upload attempt
// to avoid rescanning large payloads.
func Compute(b []byte) (int64, string) {
	sum := md5.Sum(b)
	return int64(len(b)), base64.StdEncoding.EncodeToString(sum[:])
}
