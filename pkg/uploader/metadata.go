package uploader

import (
	"time"
)

// Metadata is the parsed sidecar record describing one file (or the case
// itself). It is a free-form nested mapping; every accessor checks presence
// instead of assuming the key exists, since producers are not guaranteed to
// emit every section.
type Metadata map[string]interface{}

// Section names used by the uploader. The "_sumo" section carries the
// computed digest fields and is owned by this package; the wire names must
// stay verbatim for store interoperability.
const (
	sectionData     = "data"
	sectionFile     = "file"
	sectionInternal = "_sumo"
)

func (m Metadata) section(name string) (map[string]interface{}, bool) {
	raw, ok := m[name]
	if !ok {
		return nil, false
	}
	sec, ok := raw.(map[string]interface{})
	return sec, ok
}

func (m Metadata) stringAt(section, key string) (string, bool) {
	sec, ok := m.section(section)
	if !ok {
		return "", false
	}
	raw, ok := sec[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func (m Metadata) setAt(section, key string, value interface{}) {
	sec, ok := m.section(section)
	if !ok {
		sec = map[string]interface{}{}
		m[section] = sec
	}
	sec[key] = value
}

// DataFormat returns the declared content format (data.format).
func (m Metadata) DataFormat() (string, bool) {
	return m.stringAt(sectionData, "format")
}

func (m Metadata) SetDataFormat(format string) {
	m.setAt(sectionData, "format", format)
}

// VerticalDomain returns data.vertical_domain ("depth" or "time").
func (m Metadata) VerticalDomain() (string, bool) {
	return m.stringAt(sectionData, "vertical_domain")
}

// CaseUUID returns fmu.case.uuid.
func (m Metadata) CaseUUID() (string, bool) {
	return m.nestedString("fmu", "case", "uuid")
}

// RealizationUUID returns fmu.realization.uuid. Only files produced inside a
// realization carry it.
func (m Metadata) RealizationUUID() (string, bool) {
	return m.nestedString("fmu", "realization", "uuid")
}

func (m Metadata) nestedString(keys ...string) (string, bool) {
	var cur interface{} = map[string]interface{}(m)
	for _, key := range keys {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return "", false
		}
		if cur, ok = node[key]; !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

// SetFileField writes file.<key>.
func (m Metadata) SetFileField(key string, value interface{}) {
	m.setAt(sectionFile, key, value)
}

// SetDigest records the computed content fingerprint in the uploader-owned
// section.
func (m Metadata) SetDigest(size int64, md5 string) {
	m.setAt(sectionInternal, "blob_size", size)
	m.setAt(sectionInternal, "blob_md5", md5)
}

// Digest returns the recorded fingerprint, if any.
func (m Metadata) Digest() (int64, string, bool) {
	sec, ok := m.section(sectionInternal)
	if !ok {
		return 0, "", false
	}
	size, sizeOk := sec["blob_size"].(int64)
	sum, sumOk := sec["blob_md5"].(string)
	return size, sum, sizeOk && sumOk
}

// Clone returns a deep copy of the metadata tree.
func (m Metadata) Clone() Metadata {
	return Metadata(cloneValue(map[string]interface{}(m)).(map[string]interface{}))
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// SanitizeTimestamps replaces every time.Time in the tree with its RFC 3339
// string form so the record serializes cleanly as JSON.
func (m Metadata) SanitizeTimestamps() {
	for k, v := range m {
		m[k] = sanitizeTimes(v)
	}
}

func sanitizeTimes(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case map[string]interface{}:
		for k, val := range t {
			t[k] = sanitizeTimes(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = sanitizeTimes(val)
		}
		return t
	default:
		return v
	}
}
