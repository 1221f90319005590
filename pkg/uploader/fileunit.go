package uploader

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/simres/resup/pkg/digest"
	"gopkg.in/yaml.v3"
)

// ErrInvalidMetadata marks a data file whose sidecar metadata is missing,
// unparseable or lacks required sections. Batch indexing treats it as a
// per-file warning, never as a batch abort.
var ErrInvalidMetadata = errors.New("invalid metadata")

// FileUnit is one uploadable data-plus-metadata pair. The payload is read
// eagerly and is immutable after construction; the digest recorded in the
// metadata is computed exactly once from it.
type FileUnit struct {
	Payload  []byte
	Metadata Metadata
	Size     int64

	// Path and MetadataPath are set for disk-sourced units only. Path is
	// absolute. Under move mode both files are deleted after a confirmed
	// successful upload.
	Path         string
	MetadataPath string
	Basename     string

	// ObjectID is assigned once the store accepts the metadata
	// registration; ParentID once an upload targets a known parent.
	ObjectID string
	ParentID string
}

// SidecarPath derives the metadata file path for a data file:
// /my/path/file.txt -> /my/path/.file.txt.yml
func SidecarPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".yml")
}

// NewFileUnitFromDisk builds a unit from a data file and its sidecar
// metadata file. An empty metadataPath means the sidecar path is derived
// from the data path.
func NewFileUnitFromDisk(path, metadataPath string) (*FileUnit, error) {
	if metadataPath == "" {
		metadataPath = SidecarPath(path)
	}

	meta, err := loadMetadataFile(metadataPath)
	if err != nil {
		return nil, err
	}
	if _, ok := meta.section(sectionData); !ok {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: missing data section", metadataPath)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read data file "+path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to resolve data file path "+path)
	}

	unit := &FileUnit{
		Payload:      payload,
		Metadata:     meta,
		Path:         abs,
		MetadataPath: metadataPath,
		Basename:     filepath.Base(abs),
	}
	unit.stampDigest()
	return unit, nil
}

// NewFileUnitFromBytes builds a unit from an in-memory buffer handed over by
// a hosted job. There is no filesystem path in this context, so the path
// field in the metadata is blanked and the checksum mirrors the digest.
func NewFileUnitFromBytes(payload []byte, meta Metadata) (*FileUnit, error) {
	if meta == nil {
		return nil, errors.Wrap(ErrInvalidMetadata, "no metadata provided")
	}

	unit := &FileUnit{
		Payload:  payload,
		Metadata: meta,
	}
	unit.stampDigest()

	_, md5sum, _ := meta.Digest()
	meta.SetFileField("absolute_path", "")
	meta.SetFileField("checksum_md5", md5sum)
	return unit, nil
}

func (f *FileUnit) stampDigest() {
	size, md5sum := digest.Compute(f.Payload)
	f.Size = size
	f.Metadata.SetDigest(size, md5sum)
}

func loadMetadataFile(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: %v", path, err)
	}

	// Decode into a plain map: yaml.v3 propagates a named map type to nested
	// mappings, which would break the map[string]interface{} assertions in
	// the Metadata accessors.
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: %v", path, err)
	}
	meta := Metadata(tree)
	if len(meta) == 0 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: empty metadata", path)
	}

	meta.SanitizeTimestamps()
	return meta, nil
}
