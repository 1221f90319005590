// HTTP client for the object-and-blob store.
package store

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/simres/resup/pkg/resup"
	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 60 * time.Second

// Client talks to the store over HTTPS. It is safe for concurrent use; the
// underlying http.Client pools connections across upload workers.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     logrus.FieldLogger
}

func NewClient(baseURL, token string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		log:     log.WithField("module", "store"),
	}
}

// Post submits body as JSON to path on the store.
func (c *Client) Post(path string, body interface{}) (*resup.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to encode request body")
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build request for "+path)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Delete removes the object at path.
func (c *Client) Delete(path string) (*resup.Response, error) {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build request for "+path)
	}
	return c.do(req)
}

// SearchJSON runs a query-string search against the store's /search
// endpoint.
func (c *Client) SearchJSON(query string) (*resup.Response, error) {
	vals := url.Values{}
	vals.Set("$query", query)

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/search?"+vals.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build search request")
	}
	return c.do(req)
}

// UploadBlob transfers the payload to a store-issued blob target. The target
// URL carries its own SAS-style credentials, so the bearer token is not
// attached.
func (c *Client) UploadBlob(blob []byte, blobURL string) (*resup.Response, error) {
	req, err := http.NewRequest(http.MethodPut, blobURL, bytes.NewReader(blob))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to build blob request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Blob transfer failed")
	}
	return readResponse(resp)
}

func (c *Client) do(req *http.Request) (*resup.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}).Debug("store request")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Store request failed")
	}
	return readResponse(resp)
}

func readResponse(resp *http.Response) (*resup.Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read store response")
	}

	return &resup.Response{
		StatusCode: resp.StatusCode,
		Text:       string(body),
		Body:       body,
	}, nil
}
