package uploader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataAccessors(t *testing.T) {
	m := Metadata{
		"data": map[string]interface{}{
			"format":          "segy",
			"vertical_domain": "depth",
		},
		"fmu": map[string]interface{}{
			"case":        map[string]interface{}{"uuid": "case-uuid"},
			"realization": map[string]interface{}{"uuid": "real-uuid"},
		},
	}

	format, ok := m.DataFormat()
	require.True(t, ok)
	assert.Equal(t, "segy", format)

	domain, ok := m.VerticalDomain()
	require.True(t, ok)
	assert.Equal(t, "depth", domain)

	caseUUID, ok := m.CaseUUID()
	require.True(t, ok)
	assert.Equal(t, "case-uuid", caseUUID)

	realUUID, ok := m.RealizationUUID()
	require.True(t, ok)
	assert.Equal(t, "real-uuid", realUUID)
}

func TestMetadataAccessorsAbsent(t *testing.T) {
	m := Metadata{"data": map[string]interface{}{}}

	_, ok := m.DataFormat()
	assert.False(t, ok)
	_, ok = m.CaseUUID()
	assert.False(t, ok)
	_, ok = Metadata{}.RealizationUUID()
	assert.False(t, ok)

	// A section of the wrong shape must not panic either.
	m = Metadata{"fmu": "not a mapping"}
	_, ok = m.CaseUUID()
	assert.False(t, ok)
}

func TestMetadataSetters(t *testing.T) {
	m := Metadata{}
	m.SetDataFormat("openvds")
	m.SetFileField("checksum_md5", "")
	m.SetDigest(42, "sum")

	format, _ := m.DataFormat()
	assert.Equal(t, "openvds", format)

	size, sum, ok := m.Digest()
	require.True(t, ok)
	assert.Equal(t, int64(42), size)
	assert.Equal(t, "sum", sum)
}

func TestMetadataClone(t *testing.T) {
	m := Metadata{
		"data": map[string]interface{}{"format": "segy"},
		"list": []interface{}{map[string]interface{}{"k": "v"}},
	}

	clone := m.Clone()
	clone.SetDataFormat("openvds")
	clone["list"].([]interface{})[0].(map[string]interface{})["k"] = "changed"

	format, _ := m.DataFormat()
	assert.Equal(t, "segy", format, "mutating the clone must not touch the original")
	assert.Equal(t, "v", m["list"].([]interface{})[0].(map[string]interface{})["k"])
}

func TestSanitizeTimestamps(t *testing.T) {
	stamp := time.Date(2023, 4, 1, 12, 30, 0, 0, time.UTC)
	m := Metadata{
		"tracklog": []interface{}{
			map[string]interface{}{"datetime": stamp},
		},
		"fmu": map[string]interface{}{"created": stamp},
		"n":   7,
	}

	m.SanitizeTimestamps()

	entry := m["tracklog"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "2023-04-01T12:30:00Z", entry["datetime"])
	assert.Equal(t, "2023-04-01T12:30:00Z", m["fmu"].(map[string]interface{})["created"])
	assert.Equal(t, 7, m["n"])
}
