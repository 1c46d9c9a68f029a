package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the built-in configuration. Every call returns a fresh value.
func Default() *Config {
	cfg, err := decode("default.yaml", defaultYAML, nil)
	if err != nil {
		// The embedded file is part of the binary; failing here is a build defect.
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// decode parses data (format picked from path's extension) on top of base.
// A nil base decodes into a zero Config.
func decode(path string, data []byte, base *Config) (*Config, error) {
	jb, _, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if base != nil {
		cfg = *base.Clone()
	}
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if dec.More() {
		return nil, fmt.Errorf("invalid config: trailing data")
	}
	return &cfg, nil
}

// Clone returns a deep copy (slices included).
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Causes.Singular = append([]string(nil), c.Causes.Singular...)
	cp.Causes.Plural = append([]string(nil), c.Causes.Plural...)
	cp.Effects = append([]string(nil), c.Effects...)
	for _, t := range []*TaskConfig{&cp.Tweets, &cp.Mentions, &cp.Search} {
		t.Timer.Range = append([]int(nil), t.Timer.Range...)
	}
	return &cp
}
