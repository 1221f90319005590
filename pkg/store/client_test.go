package store

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger, _ := test.NewNullLogger()
	return NewClient(srv.URL, "test-token", 0, logger)
}

func TestPost(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody map[string]interface{}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"objectid":"obj-1"}`))
	})

	resp, err := c.Post("/objects", map[string]string{"class": "case"})
	require.NoError(t, err)

	assert.Equal(t, "/objects", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "case", gotBody["class"])

	assert.True(t, resp.Ok())
	var created struct {
		ObjectID string `json:"objectid"`
	}
	require.NoError(t, resp.JSON(&created))
	assert.Equal(t, "obj-1", created.ObjectID)
}

func TestPostUnencodableBody(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	_, err := c.Post("/objects", func() {})
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	resp, err := c.Delete("/objects('obj-1')")
	require.NoError(t, err)
	assert.True(t, resp.Ok())
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/objects('obj-1')", gotPath)
}

func TestSearchJSON(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("$query")
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":0}}}`))
	})

	resp, err := c.SearchJSON("data.content:parameters AND fmu.case.uuid:abc")
	require.NoError(t, err)
	assert.True(t, resp.Ok())
	assert.Equal(t, "data.content:parameters AND fmu.case.uuid:abc", gotQuery)
}

func TestUploadBlob(t *testing.T) {
	payload := []byte("blob bytes")
	var gotMethod, gotBlobType, gotAuth string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBlobType = r.Header.Get("x-ms-blob-type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	c := NewClient("https://store.example", "test-token", 0, logger)

	resp, err := c.UploadBlob(payload, srv.URL+"/container/obj-1?sv=sig")
	require.NoError(t, err)

	assert.Equal(t, 201, resp.StatusCode)
	assert.True(t, resp.Ok())
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "BlockBlob", gotBlobType)
	assert.Empty(t, gotAuth, "the SAS URL carries its own credentials")
	assert.Equal(t, payload, gotBody)
}

func TestTransportFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewClient("http://127.0.0.1:1", "", 0, logger)

	resp, err := c.Post("/objects", map[string]string{})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestResponseText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("metadata is missing required field data.format"))
	})

	resp, err := c.Post("/objects", map[string]string{})
	require.NoError(t, err, "an HTTP error status is a response, not an error")
	assert.False(t, resp.Ok())
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "metadata is missing required field data.format", resp.Text)
}
