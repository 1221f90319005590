package uploader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// maybeInjectParameters appends a synthesized "parameters" unit to the batch
// when the batch belongs to a realization and the store does not already
// hold a parameters object for it. This is a convenience injection: any
// missing input just skips it, with a log line, and the batch proceeds
// unchanged.
func (e *Engine) maybeInjectParameters(units []*FileUnit, opts BatchOptions) []*FileUnit {
	var base *FileUnit
	for _, unit := range units {
		if _, ok := unit.Metadata.RealizationUUID(); ok {
			base = unit
			break
		}
	}
	if base == nil {
		return units
	}
	realizationID, _ := base.Metadata.RealizationUUID()

	query := fmt.Sprintf(
		"fmu.case.uuid:%s AND fmu.realization.uuid:%s AND data.content:parameters",
		opts.ParentID, realizationID)

	resp, err := e.store.SearchJSON(query)
	if err != nil {
		e.log.WithError(err).Info("Parameters lookup failed, skipping parameters upload")
		return units
	}
	var hits struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
		} `json:"hits"`
	}
	if resp.Ok() && resp.JSON(&hits) == nil && hits.Hits.Total.Value > 0 {
		e.log.Debug("Parameters already uploaded for this realization")
		return units
	}

	unit, err := buildParameterUnit(base.Metadata, opts.ParametersPath, opts.ConfigPath)
	if err != nil {
		e.log.WithError(err).Info("Skipping parameters upload")
		return units
	}

	e.log.WithField("parameters", opts.ParametersPath).Info("Parameters will be uploaded")
	return append(units, unit)
}

// buildParameterUnit turns the realization's parameters file into an
// uploadable unit. The metadata is derived from the batch's own records (the
// fmu section) and the global variables config.
func buildParameterUnit(base Metadata, parametersPath, configPath string) (*FileUnit, error) {
	globalConfig, err := loadGlobalConfig(configPath)
	if err != nil {
		return nil, err
	}

	params, err := ReadParametersTxt(parametersPath)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to encode parameters")
	}

	return NewFileUnitFromBytes(payload, parameterMetadata(base, globalConfig))
}

func parameterMetadata(base Metadata, globalConfig map[string]interface{}) Metadata {
	meta := Metadata{
		"class": "dictionary",
		"data": map[string]interface{}{
			"content": "parameters",
			"name":    "parameters",
			"format":  "json",
		},
		"file": map[string]interface{}{},
	}
	if fmu, ok := base.section("fmu"); ok {
		meta["fmu"] = cloneValue(fmu)
	}
	for _, key := range []string{"masterdata", "access"} {
		if v, ok := globalConfig[key]; ok {
			meta[key] = cloneValue(v)
		}
	}
	return meta
}

func loadGlobalConfig(path string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "No global variables config to read")
	}
	var cfg map[string]interface{}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "Unparseable global variables config")
	}
	return cfg, nil
}

// ReadParametersTxt parses the line-oriented "NAME value" parameters file
// produced for each realization. Values parse as int, then float, then fall
// back to string.
func ReadParametersTxt(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "No parameters file to read")
	}
	defer f.Close()

	params := map[string]interface{}{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		params[fields[0]] = parseParameterValue(strings.Join(fields[1:], " "))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Failed to read parameters file")
	}
	return params, nil
}

func parseParameterValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
