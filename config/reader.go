package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Read reads a config from the given file. Fields missing from the file keep their Default value.
func Read(filePath string) (*Config, error) {
	//nolint:gosec
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open config %s", filePath)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	cfg, err := FromReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", filePath)
	}
	return cfg, nil
}

// FromReader decodes a JSON config over the defaults and validates it.
func FromReader(r io.Reader) (*Config, error) {
	var attributes map[string]interface{}
	if err := json.NewDecoder(r).Decode(&attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode config from json")
	}
	cfg := Default()
	if err := decodeAttributes(attributes, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeAttributes overlays a generic attribute map onto out using the json tags. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func decodeAttributes(attributes map[string]interface{}, out interface{}) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(attributes); err != nil {
		return errors.Wrap(err, "failed to decode attributes")
	}
	if len(md.Unused) > 0 {
		return errors.Errorf("unknown config keys %v", md.Unused)
	}
	return nil
}
