package seed

import (
	_ "embed"
	"fmt"
	"os"

	"hongdating/internal/models"
	"hongdating/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed fixture.yaml
var defaultFixture []byte

// FixtureUser is a hand-written demo account.
type FixtureUser struct {
	Nickname  string   `yaml:"nickname"`
	Gender    string   `yaml:"gender"`
	Bio       string   `yaml:"bio"`
	Admin     bool     `yaml:"admin"`
	Interests []string `yaml:"interests"`
}

// Fixture is the seed data file: fixed users plus the pools generated users draw from.
type Fixture struct {
	Users     []FixtureUser `yaml:"users"`
	Interests []string      `yaml:"interests"`
	Openers   []string      `yaml:"openers"`
}

// LoadFixture reads a fixture from path, or the built-in one when path is empty.
func LoadFixture(path string) (*Fixture, error) {
	raw := defaultFixture
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		raw = b
	}
	return ParseFixture(raw)
}

// ParseFixture decodes and validates fixture YAML.
func ParseFixture(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(f.Interests) == 0 {
		return nil, fmt.Errorf("fixture: interests must not be empty")
	}
	if len(f.Openers) == 0 {
		return nil, fmt.Errorf("fixture: openers must not be empty")
	}
	for i, u := range f.Users {
		if err := validation.ValidateNickname(u.Nickname); err != nil {
			return nil, fmt.Errorf("fixture user %d: %w", i, err)
		}
		if !models.IsValidGender(u.Gender) {
			return nil, fmt.Errorf("fixture user %s: invalid gender %q", u.Nickname, u.Gender)
		}
		tags, err := validation.NormalizeInterests(u.Interests)
		if err != nil {
			return nil, fmt.Errorf("fixture user %s: %w", u.Nickname, err)
		}
		f.Users[i].Interests = tags
	}
	return &f, nil
}
