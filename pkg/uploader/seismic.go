package uploader

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Seismic-exchange payloads are not uploaded byte-for-byte: an external
// conversion tool imports them into the store's volumetric format and
// performs the transfer itself.
const (
	formatVolumetric = "openvds"
	formatSegy       = "segy"

	importCommand = "SEGYImport"

	// conversionFailedStatus is the synthetic code reported when the
	// conversion subprocess fails or the platform cannot run it. Historic
	// value; downstream classification only cares that it is not 2xx.
	conversionFailedStatus = 418
)

func isSeismicFormat(format string) bool {
	return format == formatSegy || format == formatVolumetric
}

type importFunc func(args ...string) (rc int, stderr string, err error)

func (e *Engine) importSeismic(unit *FileUnit, rawBlobURL json.RawMessage) transferOutcome {
	if runtime.GOOS == "darwin" {
		// The conversion toolchain has no darwin build. Known environment
		// limitation, not a transient failure.
		return transferOutcome{conversionFailedStatus,
			"cannot convert seismic data: conversion tool is not supported on darwin"}
	}

	targetURL, targetConn, err := seismicTarget(rawBlobURL, unit.ObjectID)
	if err != nil {
		return transferOutcome{conversionFailedStatus, "seismic conversion failed: " + err.Error()}
	}

	sampleUnit := "ms" // time domain
	if domain, ok := unit.Metadata.VerticalDomain(); ok && domain == "depth" {
		sampleUnit = "m"
	}

	args := []string{
		"--compression-method", "RLE",
		"--brick-size", "64",
		"--sample-unit", sampleUnit,
		"--url", targetURL,
		"--url-connection", targetConn,
		"--persistentID", unit.ObjectID,
		unit.Path,
	}

	rc, stderr, err := e.runImport(args...)
	if err != nil {
		return transferOutcome{conversionFailedStatus, "seismic conversion failed: " + err.Error()}
	}
	if rc != 0 {
		return transferOutcome{conversionFailedStatus, "seismic conversion failed: " + stderr}
	}
	return transferOutcome{200, "seismic data imported as " + formatVolumetric}
}

// seismicTarget rewrites the store-issued blob target into the container URL
// and connection suffix the conversion tool expects. The store hands the
// target out either as a {baseuri, auth} pair or as a single SAS URL that
// embeds the object id.
func seismicTarget(raw json.RawMessage, objectID string) (url, conn string, err error) {
	var asPair struct {
		BaseURI string `json:"baseuri"`
		Auth    string `json:"auth"`
	}
	if err := json.Unmarshal(raw, &asPair); err == nil && asPair.BaseURI != "" {
		return "azureSAS:" + strings.TrimPrefix(asPair.BaseURI, "https:"),
			"Suffix=?" + asPair.Auth, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		container, query, found := strings.Cut(asString, "?")
		if !found {
			return "", "", errors.New("blob target URL carries no SAS credentials")
		}
		if i := strings.Index(container, objectID); i > 0 {
			container = container[:i]
		}
		return "azureSAS" + strings.TrimPrefix(container, "https"), "Suffix=?" + query, nil
	}

	return "", "", errors.New("store response carries no usable blob target")
}

// findImportTool locates the conversion executable. The install location
// varies between environments, so PATH is tried first and then the usual
// suspects.
func findImportTool() (string, error) {
	if path, err := exec.LookPath(importCommand); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, dir := range []string{
		filepath.Join(home, ".local", "bin"),
		"/usr/local/bin",
	} {
		path := filepath.Join(dir, importCommand)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errors.New("could not locate " + importCommand)
}

// runConversion locates and executes the tool, reporting its exit code and
// captured stderr. A nonzero exit is an outcome, not an error; the error
// return is reserved for failures to run the tool at all.
func runConversion(args ...string) (int, string, error) {
	exe, err := findImportTool()
	if err != nil {
		return -1, "", err
	}

	cmd := exec.Command(exe, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), stderr.String(), nil
		}
		return -1, stderr.String(), err
	}
	return 0, stderr.String(), nil
}
