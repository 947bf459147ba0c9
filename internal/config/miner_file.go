package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osse101/ChannelPointsMiner_Go/internal/domain"
	"github.com/osse101/ChannelPointsMiner_Go/internal/validation"
)

var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,25}$`)

// StreamerEntry is one watched channel with optional bet overrides.
type StreamerEntry struct {
	Username string              `yaml:"username" validate:"required,login"`
	Bet      *domain.BetOverride `yaml:"bet"`
}

// MinerFile is the YAML document with everything about what to mine.
type MinerFile struct {
	MakePredictions bool               `yaml:"make_predictions"`
	FollowRaid      bool               `yaml:"follow_raid"`
	ClaimBonus      bool               `yaml:"claim_bonus"`
	Bet             domain.BetSettings `yaml:"bet"`
	Streamers       []StreamerEntry    `yaml:"streamers" validate:"dive"`
}

// DefaultMinerFile is what an empty document decodes to.
func DefaultMinerFile() MinerFile {
	return MinerFile{
		MakePredictions: true,
		FollowRaid:      true,
		ClaimBonus:      true,
		Bet:             domain.DefaultBetSettings(),
	}
}

// LoadMinerFile reads and validates the miner file. A missing file yields
// the defaults with no streamers. schemaPath may be empty to skip the JSON
// schema check.
func LoadMinerFile(path, schemaPath string) (MinerFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultMinerFile(), nil
	}
	if err != nil {
		return MinerFile{}, fmt.Errorf("failed to read miner config %s: %w", path, err)
	}
	return ParseMinerFile(data, schemaPath)
}

// ParseMinerFile decodes a YAML miner document on top of the defaults.
func ParseMinerFile(data []byte, schemaPath string) (MinerFile, error) {
	if schemaPath != "" {
		if err := validation.NewSchemaValidator().ValidateYAML(data, schemaPath); err != nil {
			return MinerFile{}, fmt.Errorf("miner config: %w", err)
		}
	}

	mf := DefaultMinerFile()
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return MinerFile{}, fmt.Errorf("failed to parse miner config: %w", err)
	}
	if err := newValidator().Struct(mf); err != nil {
		return MinerFile{}, fmt.Errorf("invalid miner config: %w", err)
	}
	return mf, nil
}

// Names returns the configured usernames followed by extra, normalized and
// without duplicates.
func (mf MinerFile) Names(extra ...string) []string {
	seen := make(map[string]struct{}, len(mf.Streamers)+len(extra))
	var out []string
	add := func(name string) {
		name = domain.NormalizeUsername(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, s := range mf.Streamers {
		add(s.Username)
	}
	for _, name := range extra {
		add(name)
	}
	return out
}

// Overrides maps normalized usernames to their bet overrides.
func (mf MinerFile) Overrides() map[string]domain.BetOverride {
	out := make(map[string]domain.BetOverride)
	for _, s := range mf.Streamers {
		if s.Bet != nil {
			out[domain.NormalizeUsername(s.Username)] = *s.Bet
		}
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("login", func(fl validator.FieldLevel) bool {
		return loginPattern.MatchString(fl.Field().String())
	})
	return v
}
