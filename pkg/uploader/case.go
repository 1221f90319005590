package uploader

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/simres/resup/pkg/resup"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CaseOptions configures a Case.
type CaseOptions struct {
	TransferMode   TransferMode
	ConfigPath     string // global variables config for parameters injection
	ParametersPath string // per-realization parameters file

	// RegisterDelay is how long Register waits after a successful
	// registration, giving the store time to make the case searchable
	// before file uploads start.
	RegisterDelay time.Duration

	// Audit receives case-scoped upload events. Optional.
	Audit resup.AuditSink
}

// Case owns the parent identity and the pending batch of file units for one
// upload session.
type Case struct {
	store resup.Store
	log   logrus.FieldLogger
	audit resup.AuditSink

	metadata Metadata
	caseUUID string
	parentID string
	units    []*FileUnit
	opts     CaseOptions
}

// NewCase builds a case from an already-parsed case metadata record.
// Construction always succeeds: a record without a usable fmu.case.uuid
// produces an "unregistered" case with an empty parent id, whose uploads
// will be rejected with a diagnostic rather than attempted.
func NewCase(caseMetadata Metadata, st resup.Store, log logrus.FieldLogger, opts CaseOptions) *Case {
	if caseMetadata == nil {
		caseMetadata = Metadata{}
	}
	caseMetadata.SanitizeTimestamps()

	if opts.TransferMode == "" {
		opts.TransferMode = ModeCopy
	}

	c := &Case{
		store:    st,
		log:      log.WithField("module", "uploader"),
		audit:    opts.Audit,
		metadata: caseMetadata,
		opts:     opts,
	}
	if c.audit == nil {
		c.audit = noopAudit{}
	}

	id, ok := caseMetadata.CaseUUID()
	if !ok {
		c.log.Warn("Case metadata carries no fmu.case.uuid, case is unregistered")
		return c
	}
	if _, err := uuid.Parse(id); err != nil {
		c.log.WithField("uuid", id).Warn("Case uuid is malformed, case is unregistered")
		return c
	}
	c.caseUUID = id
	c.parentID = id
	return c
}

// LoadCaseMetadata reads and parses a case metadata file. A missing or
// unparseable file returns an empty record together with the error, so
// callers can warn and continue with an unregistered case.
func LoadCaseMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "Failed to read case metadata")
	}
	// Decode into a plain map: yaml.v3 propagates a named map type to nested
	// mappings, which would break the map[string]interface{} assertions in
	// the Metadata accessors.
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Metadata{}, errors.Wrap(err, "Failed to parse case metadata "+path)
	}
	meta := Metadata(tree)
	if meta == nil {
		meta = Metadata{}
	}
	return meta, nil
}

// ParentID returns the id uploads are nested under; empty for an
// unregistered case.
func (c *Case) ParentID() string { return c.parentID }

// CaseUUID returns the uuid extracted from the case metadata, if any.
func (c *Case) CaseUUID() string { return c.caseUUID }

// Files returns the pending units in discovery order.
func (c *Case) Files() []*FileUnit { return c.units }

// AddFiles indexes every file matching the glob pattern into the pending
// batch. Indexing is best-effort: a file whose sidecar metadata is missing
// or invalid is skipped with a warning and never aborts the rest. Returns
// the number of units added.
func (c *Case) AddFiles(pattern string) (int, error) {
	matches, err := findFilePaths(pattern)
	if err != nil {
		return 0, errors.Wrap(err, "Bad search pattern "+pattern)
	}
	if len(matches) == 0 {
		c.log.WithField("pattern", pattern).Warn("No files found, check the search pattern")
		return 0, nil
	}

	added := 0
	for _, path := range matches {
		unit, err := NewFileUnitFromDisk(path, "")
		if err != nil {
			c.log.WithError(err).Warnf("No metadata, skipping file: %s", path)
			continue
		}
		c.units = append(c.units, unit)
		added++
	}
	return added, nil
}

// AddFileFromBytes adds a unit sourced from an in-memory buffer (hosted-job
// path).
func (c *Case) AddFileFromBytes(payload []byte, meta Metadata) error {
	unit, err := NewFileUnitFromBytes(payload, meta)
	if err != nil {
		c.log.WithError(err).Warn("No metadata, skipping buffer")
		return err
	}
	c.units = append(c.units, unit)
	return nil
}

// Register creates the case container on the store and assigns the parent
// id. Registering an already-registered case overwrites it; that is the
// store's documented behavior, not an error. A registration failure is
// reported but leaves the case usable in its unregistered state, so the
// calling workflow keeps running.
func (c *Case) Register() (string, error) {
	resp, err := c.store.Post("/objects", c.metadata)
	if err != nil {
		c.log.WithError(err).Error("Case registration failed, file uploads will also fail")
		return "", errors.Wrap(err, "Case registration failed")
	}
	if !resp.Ok() {
		switch resp.StatusCode {
		case 401:
			c.log.Error("Case registration refused (401): verify that you are logged in to the store")
		case 403:
			c.log.Error("Case registration refused (403): verify that you have write access to the store")
		default:
			c.log.WithField("status", resp.StatusCode).Error("Case registration refused, file uploads will also fail")
		}
		return "", errors.Errorf("case registration refused with status %d: %s",
			resp.StatusCode, truncate(resp.Text))
	}

	var created struct {
		ObjectID string `json:"objectid"`
	}
	if err := resp.JSON(&created); err != nil || created.ObjectID == "" {
		return "", errors.New("unreadable case registration response")
	}

	c.parentID = created.ObjectID
	c.log.WithField("parent_id", c.parentID).Info("Case registered")
	c.audit.Log(c.caseUUID, map[string]interface{}{
		"event":     "case_registered",
		"parent_id": c.parentID,
	})

	// Give the store time to make the case object searchable before the
	// first file upload targets it.
	time.Sleep(c.opts.RegisterDelay)

	return c.parentID, nil
}

// Upload pushes every pending unit with the given worker count and returns
// the successful results. An empty pending set is a no-op with a warning,
// not an error: some runs legitimately find nothing to upload. The only
// error return is the broken-contract case of a result without a status.
func (c *Case) Upload(workers int) ([]Result, error) {
	if len(c.units) == 0 {
		c.log.Warn("No files to upload, check the search pattern")
		return nil, nil
	}

	t0 := time.Now()

	engine := NewEngine(c.store, c.opts.TransferMode, c.log)
	results := engine.UploadBatch(c.units, BatchOptions{
		ParentID:       c.parentID,
		Workers:        workers,
		ConfigPath:     c.opts.ConfigPath,
		ParametersPath: c.opts.ParametersPath,
	})

	buckets, err := Classify(results)
	if err != nil {
		return nil, err
	}

	// A 404 on the case-scoped creation endpoint most plausibly means the
	// case container itself does not exist. Heuristic, so a warning only.
	for _, r := range buckets.Rejected {
		if r.MetadataStatusCode == 404 {
			c.log.Warn("Case is not registered in the store")
			break
		}
	}

	c.reportIssues("rejected", buckets.Rejected)
	c.reportIssues("failed", buckets.Failed)

	wallTime := time.Since(t0)
	var stats UploadStatistics
	if len(buckets.OK) > 0 {
		stats = statisticsFor(buckets.OK)
	}

	c.log.WithFields(logrus.Fields{
		"total":     len(results),
		"ok":        len(buckets.OK),
		"failed":    len(buckets.Failed),
		"rejected":  len(buckets.Rejected),
		"wall_time": wallTime.Seconds(),
		"mode":      string(c.opts.TransferMode),
	}).Info("Upload summary")

	c.audit.Log(c.caseUUID, map[string]interface{}{
		"upload_summary": map[string]interface{}{
			"parent_id":         c.parentID,
			"total_files_count": len(results),
			"ok_files":          len(buckets.OK),
			"failed_files":      len(buckets.Failed),
			"rejected_files":    len(buckets.Rejected),
			"wall_time_seconds": wallTime.Seconds(),
			"upload_statistics": stats,
			"transfer_mode":     string(c.opts.TransferMode),
		},
	})

	return buckets.OK, nil
}

// reportIssues logs the first few problem results in full, locally and to
// the audit sink.
func (c *Case) reportIssues(kind string, results []Result) {
	if len(results) == 0 {
		return
	}
	c.log.Warnf("%d files %s by the store", len(results), kind)

	const maxShown = 5
	for i, r := range results {
		if i >= maxShown {
			break
		}
		c.log.WithFields(logrus.Fields{
			"file":            r.FilePath,
			"metadata_status": r.MetadataStatusCode,
			"metadata_text":   r.MetadataText,
			"blob_status":     r.BlobStatusCode,
			"blob_text":       r.BlobText,
		}).Warnf("Upload %s", kind)

		c.audit.Log(c.caseUUID, map[string]interface{}{
			"upload_issue": map[string]interface{}{
				"case_uuid": c.caseUUID,
				"filepath":  r.FilePath,
				"metadata": map[string]interface{}{
					"status_code":   r.MetadataStatusCode,
					"response_text": r.MetadataText,
				},
				"blob": map[string]interface{}{
					"status_code":   r.BlobStatusCode,
					"response_text": r.BlobText,
				},
			},
		})
	}
}

// findFilePaths globs for candidate data files, keeping regular files only.
// Sidecar metadata files are hidden (dot-prefixed) and normally excluded by
// the pattern itself.
func findFilePaths(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	return files, nil
}

type noopAudit struct{}

func (noopAudit) Log(string, interface{}) {}
