// Standard interfaces and datatypes for the resup project.
// Terms:
//   "store"  : The remote object-and-blob storage service that receives
//              metadata records and binary payloads.
//   "case"   : The parent container object under which individual file
//              objects are nested.
package resup

import "encoding/json"

// Response is the distilled outcome of a single store call. StatusCode and
// Text are always populated when the call reached the store; Body holds the
// raw payload for JSON decoding.
type Response struct {
	StatusCode int
	Text       string
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Ok reports whether the store accepted the request. The store answers
// creation requests with either 200 or 201.
func (r *Response) Ok() bool {
	return r.StatusCode == 200 || r.StatusCode == 201
}

// Store is the narrow surface of the remote storage service used by the
// uploader. Implementations must be safe for concurrent use: upload workers
// share a single Store.
//
// An error return means the store could not be reached (timeout, connection
// failure). A reachable store that refuses a request answers through the
// Response status code instead.
type Store interface {
	// Post submits body as JSON to path.
	Post(path string, body interface{}) (*Response, error)

	// Delete removes the object at path.
	Delete(path string) (*Response, error)

	// SearchJSON runs a query-string search against the store.
	SearchJSON(query string) (*Response, error)

	// UploadBlob transfers a byte payload to a store-issued blob target.
	UploadBlob(blob []byte, blobURL string) (*Response, error)
}

// AuditSink receives case-scoped upload events for remote bookkeeping.
// Implementations must swallow their own failures: audit logging is
// best-effort and never fails the upload that produced the event.
type AuditSink interface {
	Log(objectUUID string, event interface{})
}
