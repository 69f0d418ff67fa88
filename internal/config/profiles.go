package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is a named ingestion preset: which bucket and prefix to pull from
// and an optional default date window. Profiles let operators switch between
// trails without re-typing flags.
type Profile struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	StartDate string `yaml:"start_date,omitempty"`
	EndDate   string `yaml:"end_date,omitempty"`
}

// ProfilesFile is the on-disk shape of the profiles document.
type ProfilesFile struct {
	Default  string             `yaml:"default,omitempty"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// DefaultProfilesPath returns ~/.trailingest/profiles.yaml.
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".trailingest", "profiles.yaml")
	}
	return filepath.Join(home, ".trailingest", "profiles.yaml")
}

// LoadProfiles reads the profiles document from path (the default path when
// empty). A missing file yields an empty document, not an error.
func LoadProfiles(path string) (*ProfilesFile, error) {
	if path == "" {
		path = DefaultProfilesPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProfilesFile{Profiles: map[string]Profile{}}, nil
		}
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var pf ProfilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}
	if pf.Profiles == nil {
		pf.Profiles = map[string]Profile{}
	}

	return &pf, nil
}

// SaveProfiles writes the profiles document to path, creating the directory
// as needed.
func SaveProfiles(path string, pf *ProfilesFile) error {
	if path == "" {
		path = DefaultProfilesPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}

	data, err := yaml.Marshal(pf)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profiles file: %w", err)
	}

	return nil
}

// Lookup resolves a profile by name, falling back to the file's default
// profile when name is empty.
func (pf *ProfilesFile) Lookup(name string) (Profile, error) {
	if name == "" {
		name = pf.Default
	}
	if name == "" {
		return Profile{}, fmt.Errorf("no profile named and no default profile set")
	}
	p, ok := pf.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

// Apply overlays the profile's values onto the config; only set fields win.
func (c *Config) Apply(p Profile) {
	if p.Bucket != "" {
		c.Ingest.Bucket = p.Bucket
	}
	if p.Prefix != "" {
		c.Ingest.Prefix = p.Prefix
	}
	if p.Region != "" {
		c.Storage.S3.Region = p.Region
	}
	if p.StartDate != "" {
		c.Ingest.StartDate = p.StartDate
	}
	if p.EndDate != "" {
		c.Ingest.EndDate = p.EndDate
	}
}
