package uploader

import (
	"encoding/json"
	"sync"

	"github.com/simres/resup/pkg/resup"
)

// fakeStore records calls and delegates to overridable handlers. The
// defaults accept everything.
type fakeStore struct {
	mu      sync.Mutex
	posts   []string
	deletes []string
	blobs   []string

	postFn   func(path string, body interface{}) (*resup.Response, error)
	deleteFn func(path string) (*resup.Response, error)
	searchFn func(query string) (*resup.Response, error)
	blobFn   func(blob []byte, blobURL string) (*resup.Response, error)
}

func jsonResponse(code int, v interface{}) *resup.Response {
	body, _ := json.Marshal(v)
	return &resup.Response{StatusCode: code, Text: string(body), Body: body}
}

func createdResponse(objectID, blobURL string) *resup.Response {
	return jsonResponse(200, map[string]interface{}{
		"objectid": objectID,
		"blob_url": blobURL,
	})
}

func searchHits(n int) *resup.Response {
	return jsonResponse(200, map[string]interface{}{
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": n},
		},
	})
}

func (f *fakeStore) Post(path string, body interface{}) (*resup.Response, error) {
	f.mu.Lock()
	f.posts = append(f.posts, path)
	f.mu.Unlock()
	if f.postFn != nil {
		return f.postFn(path, body)
	}
	return createdResponse("obj-1", "https://blob.example/container/obj-1?sv=sig"), nil
}

func (f *fakeStore) Delete(path string) (*resup.Response, error) {
	f.mu.Lock()
	f.deletes = append(f.deletes, path)
	f.mu.Unlock()
	if f.deleteFn != nil {
		return f.deleteFn(path)
	}
	return &resup.Response{StatusCode: 200}, nil
}

func (f *fakeStore) SearchJSON(query string) (*resup.Response, error) {
	if f.searchFn != nil {
		return f.searchFn(query)
	}
	return searchHits(0), nil
}

func (f *fakeStore) UploadBlob(blob []byte, blobURL string) (*resup.Response, error) {
	f.mu.Lock()
	f.blobs = append(f.blobs, blobURL)
	f.mu.Unlock()
	if f.blobFn != nil {
		return f.blobFn(blob, blobURL)
	}
	return &resup.Response{StatusCode: 201, Text: "Created"}, nil
}

func (f *fakeStore) deleteCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}
