// Package manifest records what a build wrote and fingerprints each output.
package manifest

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/incscript/internal/frontmatter"
)

// Entry kinds.
const (
	KindComposed    = "composed"
	KindPassthrough = "passthrough"
)

// BuildManifest is a complete record of one build's inputs and outputs.
type BuildManifest struct {
	ID         string    `yaml:"id"`
	Timestamp  time.Time `yaml:"timestamp"`
	Inputs     Inputs    `yaml:"inputs"`
	Status     string    `yaml:"status"`
	Duration   int64     `yaml:"duration_ms"`
	Skipped    int       `yaml:"skipped"`
	Entries    []Entry   `yaml:"entries"`
	OutputHash string    `yaml:"output_hash,omitempty"`
}

// Inputs captures the roots and configuration a build ran with.
type Inputs struct {
	SourceRoot      string `yaml:"source_root"`
	DestinationRoot string `yaml:"destination_root"`
	ConfigHash      string `yaml:"config_hash"`
}

// Entry is one written output file. Paths are slash-separated and relative
// to the content root and destination root respectively.
type Entry struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Kind        string `yaml:"kind"`
	Fingerprint string `yaml:"fingerprint"`
}

// Fingerprint returns the mdfp fingerprint of a page's own front matter and
// its final output. fields may be nil.
func Fingerprint(fields map[string]any, output []byte) (string, error) {
	fm := ""
	if len(fields) > 0 {
		serialized, err := frontmatter.SerializeYAML(fields)
		if err != nil {
			return "", fmt.Errorf("serialize front matter: %w", err)
		}
		fm = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(output)), nil
}

// ConfigHash hashes the raw top-level config document.
func ConfigHash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// SortEntries orders entries by destination, then source.
func (m *BuildManifest) SortEntries() {
	sort.Slice(m.Entries, func(i, j int) bool {
		if m.Entries[i].Destination != m.Entries[j].Destination {
			return m.Entries[i].Destination < m.Entries[j].Destination
		}
		return m.Entries[i].Source < m.Entries[j].Source
	})
}

// Hash computes a deterministic hash of the config and every entry. Two
// builds of identical inputs produce the same hash regardless of ID, time or
// worker scheduling.
func (m *BuildManifest) Hash() string {
	entries := make([]Entry, len(m.Entries))
	copy(entries, m.Entries)
	sorted := BuildManifest{Entries: entries}
	sorted.SortEntries()

	h := sha256.New()
	fmt.Fprintf(h, "config:%s\n", m.Inputs.ConfigHash)
	for _, e := range sorted.Entries {
		fmt.Fprintf(h, "%s\t%s\t%s\t%s\n", e.Kind, e.Source, e.Destination, e.Fingerprint)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ToYAML serializes the manifest with entries sorted and the output hash set.
func (m *BuildManifest) ToYAML() ([]byte, error) {
	m.SortEntries()
	m.OutputHash = m.Hash()
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromYAML deserializes a manifest.
func FromYAML(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// WriteFile writes the manifest to path, creating parent directories.
func (m *BuildManifest) WriteFile(path string) error {
	data, err := m.ToYAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	// #nosec G306 -- manifests are meant to be readable by other tooling.
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
