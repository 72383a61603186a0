package cases

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML case file. See Parse for the format.
func Load(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("failed to read case file: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return Registry{}, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes a registry from YAML:
//
//	compile:
//	  - label: baseline
//	    pattern: "[a-z]+"
//	  - label: excl
//	    pattern: "[a-z]+"
//	    excludes: [bad]
//	match:
//	  - label: baseline
//	    pattern: "[a-z]+"
//	    test_string: helloworld
//
// Patterns are not validated here; a malformed pattern surfaces as a compile
// error when the case runs.
func Parse(data []byte) (Registry, error) {
	var reg Registry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&reg); err != nil {
		return Registry{}, fmt.Errorf("failed to decode cases: %w", err)
	}
	if len(reg.Compile) == 0 {
		return Registry{}, fmt.Errorf("case file has no compile cases")
	}
	for i, c := range reg.Compile {
		if c.Label == "" {
			return Registry{}, fmt.Errorf("compile case %d: label cannot be empty", i)
		}
	}
	for i, c := range reg.Match {
		if c.Label == "" {
			return Registry{}, fmt.Errorf("match case %d: label cannot be empty", i)
		}
		if c.TestString == nil {
			return Registry{}, fmt.Errorf("match case %q: test_string is required", c.Label)
		}
	}
	return reg, nil
}
