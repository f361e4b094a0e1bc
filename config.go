package feedload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ImportOpts struct {
	ForceValid    bool `yaml:"forceValid"`
	IgnoreInvalid bool `yaml:"ignoreInvalid"`

	// KeepEPrefix turns off stripping a leading 'E' from integer fields.
	KeepEPrefix bool `yaml:"keepEPrefix"`
	// SkipInvalidRecords logs and skips records that fail to load instead
	// of aborting the import.
	SkipInvalidRecords bool `yaml:"skipInvalidRecords"`
	// IgnoreFields extends the ignore set of a table, e.g.
	// {"stops": ["parent_station", "wheelchair_boarding"]}.
	IgnoreFields map[string][]string `yaml:"ignoreFields" validate:"dive,keys,oneof=days stops routes directed_routes trips stop_times,endkeys,dive,required"`
}

// LoadImportOpts reads import options from a YAML file.
func LoadImportOpts(path string) (*ImportOpts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var opts ImportOpts
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := opts.checkIgnoreFields(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &opts, nil
}

// checkIgnoreFields rejects ignoring a key field, which would drop the key
// column while still remapping it.
func (o *ImportOpts) checkIgnoreFields() error {
	for table, fields := range o.IgnoreFields {
		for _, f := range fields {
			if slices.Contains(keyFields[Kind(table)], f) {
				return fmt.Errorf("%s.%s is a key field and cannot be ignored", table, f)
			}
		}
	}
	return nil
}

func (o *ImportOpts) coerceOptions() CoerceOptions {
	return CoerceOptions{KeepEPrefix: o.KeepEPrefix}
}

func (o *ImportOpts) ignoreFields() map[Kind][]string {
	m := make(map[Kind][]string, len(o.IgnoreFields))
	for table, fields := range o.IgnoreFields {
		m[Kind(table)] = fields
	}
	return m
}
