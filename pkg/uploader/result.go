package uploader

import (
	"time"

	"github.com/pkg/errors"
)

// Status classifies the outcome of one file upload.
type Status string

const (
	// StatusOK: metadata registered and blob stored.
	StatusOK Status = "ok"
	// StatusRejected: the store (or a local guard) actively refused the
	// upload. Not a transport problem; retrying without changes will not
	// help.
	StatusRejected Status = "rejected"
	// StatusFailed: the upload did not complete (timeout, connection
	// failure, blob-phase rollback). A fresh attempt may succeed.
	StatusFailed Status = "failed"
)

// maxResponseText caps response texts carried in results.
const maxResponseText = 250

// Result is the per-file outcome of one run of the upload protocol. Both
// phases report their status code, response text and elapsed wall time even
// when a phase was never reached (zero values then).
type Result struct {
	Status Status

	FilePath string
	FileSize int64
	ObjectID string

	MetadataStatusCode int
	MetadataText       string
	MetadataElapsed    time.Duration

	BlobStatusCode int
	BlobText       string
	BlobElapsed    time.Duration

	// Unit links the result back to the uploaded unit for traceability.
	Unit *FileUnit
}

// Buckets is the partition of a batch's results by status.
type Buckets struct {
	OK       []Result
	Failed   []Result
	Rejected []Result
}

// Classify partitions results by status tag. A result without a status is a
// broken contract in the upload engine, not a recoverable upload problem,
// and surfaces as an error.
func Classify(results []Result) (Buckets, error) {
	var b Buckets
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			b.OK = append(b.OK, r)
		case StatusRejected:
			b.Rejected = append(b.Rejected, r)
		case StatusFailed:
			b.Failed = append(b.Failed, r)
		case "":
			return Buckets{}, errors.Errorf("upload result for %q carries no status", r.FilePath)
		default:
			b.Failed = append(b.Failed, r)
		}
	}
	return b, nil
}

func truncate(s string) string {
	if len(s) > maxResponseText {
		return s[:maxResponseText]
	}
	return s
}
