package uploader

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/simres/resup/pkg/resup"
	"github.com/sirupsen/logrus"
)

// TransferMode controls what happens to the source files of a disk-sourced
// unit after a confirmed successful upload.
type TransferMode string

const (
	// ModeCopy leaves the source files on disk.
	ModeCopy TransferMode = "copy"
	// ModeMove deletes the data file and its sidecar after upload.
	ModeMove TransferMode = "move"
)

// ParseTransferMode parses a mode string case-insensitively. An empty string
// means copy.
func ParseTransferMode(s string) (TransferMode, error) {
	switch strings.ToLower(s) {
	case "", string(ModeCopy):
		return ModeCopy, nil
	case string(ModeMove):
		return ModeMove, nil
	}
	return "", errors.Errorf("unknown transfer mode %q (want copy or move)", s)
}

// Engine runs the two-phase upload protocol for single file units: register
// the metadata record under the parent case, then transfer the blob to the
// store-issued target. A blob-phase failure rolls the metadata registration
// back so the store never keeps an orphaned record.
//
// The engine never retries; a caller wanting a retry issues a fresh Upload
// for the same unit, which creates a new object id.
type Engine struct {
	store resup.Store
	mode  TransferMode
	log   logrus.FieldLogger

	// runImport executes the external seismic conversion tool. Swapped out
	// in tests.
	runImport importFunc
}

func NewEngine(store resup.Store, mode TransferMode, log logrus.FieldLogger) *Engine {
	return &Engine{
		store:     store,
		mode:      mode,
		log:       log.WithField("module", "engine"),
		runImport: runConversion,
	}
}

func objectPath(id string) string {
	return fmt.Sprintf("/objects('%s')", id)
}

// Upload runs the full per-file protocol and always returns a classified
// result; upload problems never surface as errors from here.
func (e *Engine) Upload(unit *FileUnit, parentID string) Result {
	res := Result{
		FilePath: unit.Path,
		FileSize: unit.Size,
		Unit:     unit,
	}

	// Local guard, not a store outcome: without a parent there is nothing
	// to register under, and retrying will not change that.
	if parentID == "" {
		res.Status = StatusRejected
		res.MetadataStatusCode = 500
		res.MetadataText = "upload rejected: case has no parent id (not registered in the store)"
		return res
	}

	// Seismic-exchange payloads are stored as a converted volumetric
	// format, so the registered format is normalized up front and the
	// checksum blanked: the stored blob will not be these bytes.
	if format, ok := unit.Metadata.DataFormat(); ok && isSeismicFormat(format) {
		unit.Metadata.SetDataFormat(formatVolumetric)
		unit.Metadata.SetFileField("checksum_md5", "")
	}

	t0 := time.Now()
	resp, err := e.store.Post(objectPath(parentID), unit.Metadata)
	res.MetadataElapsed = time.Since(t0)

	if err != nil {
		res.Status = StatusFailed
		res.MetadataStatusCode = 500
		res.MetadataText = truncate(err.Error())
		return res
	}

	res.MetadataStatusCode = resp.StatusCode
	if !resp.Ok() {
		res.Status = StatusRejected
		res.MetadataText = truncate(fmt.Sprintf("%d %s %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), resp.Text))
		return res
	}
	res.MetadataText = truncate(resp.Text)

	var created struct {
		ObjectID string          `json:"objectid"`
		BlobURL  json.RawMessage `json:"blob_url"`
	}
	if err := resp.JSON(&created); err != nil || created.ObjectID == "" {
		res.Status = StatusFailed
		res.MetadataText = truncate("unreadable metadata registration response")
		return res
	}

	unit.ObjectID = created.ObjectID
	unit.ParentID = parentID
	res.ObjectID = created.ObjectID

	t0 = time.Now()
	outcome := e.transferBlob(unit, created.BlobURL)
	res.BlobElapsed = time.Since(t0)
	res.BlobStatusCode = outcome.code
	res.BlobText = truncate(outcome.text)

	if outcome.code != 200 && outcome.code != 201 {
		// Partial failure: the metadata record exists but no usable blob
		// does. Compensate by deleting the record.
		e.log.WithFields(logrus.Fields{
			"objectid": unit.ObjectID,
			"status":   outcome.code,
		}).Warn("Blob transfer failed, deleting metadata object")

		if _, err := e.store.Delete(objectPath(unit.ObjectID)); err != nil {
			e.log.WithError(err).WithField("objectid", unit.ObjectID).
				Warn("Compensating delete failed, metadata object may be orphaned")
		}
		res.Status = StatusFailed
		return res
	}

	res.Status = StatusOK
	if e.mode == ModeMove && unit.Path != "" {
		e.removeSourceFiles(unit)
	}
	return res
}

// transferOutcome carries the blob-phase verdict in the same status-code
// vocabulary as the HTTP outcomes, so downstream classification is uniform
// for HTTP transfers and subprocess conversions alike.
type transferOutcome struct {
	code int
	text string
}

func (e *Engine) transferBlob(unit *FileUnit, rawBlobURL json.RawMessage) transferOutcome {
	if format, ok := unit.Metadata.DataFormat(); ok && isSeismicFormat(format) {
		return e.importSeismic(unit, rawBlobURL)
	}

	blobURL, err := blobURLString(rawBlobURL)
	if err != nil {
		return transferOutcome{500, err.Error()}
	}

	resp, err := e.store.UploadBlob(unit.Payload, blobURL)
	if err != nil {
		return transferOutcome{500, err.Error()}
	}
	if !resp.Ok() {
		return transferOutcome{resp.StatusCode, truncate(fmt.Sprintf("%d %s %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), resp.Text))}
	}
	// Blob-store clients answer with assorted 2xx shapes; flatten every
	// success to 201 for the callers.
	return transferOutcome{201, "Created"}
}

// blobURLString extracts a plain URL from the store's blob_url field, which
// is either a string or a {baseuri, auth} pair.
func blobURLString(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return asString, nil
	}

	var asPair struct {
		BaseURI string `json:"baseuri"`
		Auth    string `json:"auth"`
	}
	if err := json.Unmarshal(raw, &asPair); err == nil && asPair.BaseURI != "" {
		return asPair.BaseURI + "?" + asPair.Auth, nil
	}

	return "", errors.New("store response carries no usable blob_url")
}

func (e *Engine) removeSourceFiles(unit *FileUnit) {
	for _, path := range []string{unit.Path, unit.MetadataPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			// A deletion problem must not fail an upload that succeeded.
			e.log.WithError(err).WithField("path", path).
				Warn("Failed to remove source file after move-mode upload")
		}
	}
}
