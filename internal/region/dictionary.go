// Package region resolves free-text GEO tokens to canonical region codes.
// It holds the region dictionary, the token normalizer and the fuzzy
// resolver used by the GEO lookup pipeline.
package region

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultRegionsYAML []byte

// Dictionary maps canonical region codes to their accepted spelling variants.
// A Dictionary is immutable after construction and safe for concurrent use.
type Dictionary struct {
	codes    []string            // sorted ascending
	variants map[string][]string // code -> normalized variants, declaration order
}

// NewDictionary builds a dictionary from a code -> variants mapping.
// Codes are upper-cased, variants are normalized, and empty or duplicate
// variants within one code are dropped. Codes left without any variant are
// dropped as well; use Validate on the source document to report them.
func NewDictionary(entries map[string][]string) *Dictionary {
	d := &Dictionary{
		variants: make(map[string][]string, len(entries)),
	}

	for code, names := range entries {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}

		seen := make(map[string]struct{}, len(names))
		normalized := make([]string, 0, len(names))
		for _, name := range names {
			n := Normalize(name)
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			normalized = append(normalized, n)
		}
		if len(normalized) == 0 {
			continue
		}

		d.variants[code] = append(d.variants[code], normalized...)
	}

	d.codes = make([]string, 0, len(d.variants))
	for code := range d.variants {
		d.codes = append(d.codes, code)
	}
	slices.Sort(d.codes)

	return d
}

// LoadDictionary decodes a YAML document of the form
//
//	US: [USA, United States, США]
//	DE: [Germany, Deutschland, Германия]
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	entries, err := decodeEntries(r)
	if err != nil {
		return nil, err
	}
	d := NewDictionary(entries)
	if d.Len() == 0 {
		return nil, errors.New("region dictionary is empty")
	}
	return d, nil
}

// LoadDictionaryFile reads a dictionary document from disk.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	d, err := LoadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("load region dictionary %s: %w", path, err)
	}
	return d, nil
}

// DefaultDictionary returns the dictionary embedded in the binary.
func DefaultDictionary() *Dictionary {
	d, err := LoadDictionary(bytes.NewReader(defaultRegionsYAML))
	if err != nil {
		panic(fmt.Sprintf("region: embedded dictionary is invalid: %v", err))
	}
	return d
}

// EmbeddedYAML returns a copy of the embedded dictionary document.
func EmbeddedYAML() []byte {
	return bytes.Clone(defaultRegionsYAML)
}

// Load returns the dictionary at path, or the embedded one when path is empty.
func Load(path string) (*Dictionary, error) {
	if path == "" {
		return DefaultDictionary(), nil
	}
	return LoadDictionaryFile(path)
}

func decodeEntries(r io.Reader) (map[string][]string, error) {
	var entries map[string][]string
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("decode region dictionary: %w", err)
	}
	return entries, nil
}

// Codes returns all region codes in ascending order.
func (d *Dictionary) Codes() []string {
	return slices.Clone(d.codes)
}

// Variants returns the normalized variants of a code, or nil if unknown.
func (d *Dictionary) Variants(code string) []string {
	return slices.Clone(d.variants[strings.ToUpper(code)])
}

// Has reports whether code is a known region code.
func (d *Dictionary) Has(code string) bool {
	_, ok := d.variants[strings.ToUpper(code)]
	return ok
}

// Len returns the number of region codes.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.codes)
}

// Issue describes a problem found while validating a dictionary document.
type Issue struct {
	Code    string
	Variant string
	Message string
}

func (i Issue) String() string {
	if i.Variant != "" {
		return fmt.Sprintf("%s: %q %s", i.Code, i.Variant, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// Validate checks a dictionary document without building it. It reports
// codes with no usable variant, blank variants, and normalized variants that
// are claimed by more than one code.
func Validate(r io.Reader) ([]Issue, error) {
	entries, err := decodeEntries(r)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(entries))
	for code := range entries {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	var issues []Issue
	owner := make(map[string]string)
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			issues = append(issues, Issue{Code: code, Message: "blank region code"})
			continue
		}
		usable := 0
		for _, name := range entries[code] {
			n := Normalize(name)
			if n == "" {
				issues = append(issues, Issue{Code: code, Message: "has a blank variant"})
				continue
			}
			usable++
			if prev, ok := owner[n]; ok && prev != code {
				issues = append(issues, Issue{Code: code, Variant: name, Message: "is also a variant of " + prev})
				continue
			}
			owner[n] = code
		}
		if usable == 0 {
			issues = append(issues, Issue{Code: code, Message: "has no variants"})
		}
	}
	return issues, nil
}
