package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/drone/envsubst"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath  = "stackscan.config.yml"
	DefaultEnvFile     = ".env"
	DefaultMaxEvidence = 3

	envMaxEvidence  = "STACKSCAN_MAX_EVIDENCE"
	envIncludeTests = "STACKSCAN_INCLUDE_TESTS"
	envVerbose      = "STACKSCAN_VERBOSE"
	envFormat       = "STACKSCAN_FORMAT"
	envOutput       = "STACKSCAN_OUTPUT"
	envExclude      = "STACKSCAN_EXCLUDE"
	envRulesFile    = "STACKSCAN_RULES_FILE"
	envDetectors    = "STACKSCAN_DETECTORS"
	envEvents       = "STACKSCAN_EVENTS"
)

// Formats lists the report formats the scan command can render.
var Formats = []string{"json", "markdown", "table", "sarif"}

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
	EnvFile    string
}

// RuntimeConfig contains the fully merged settings for a scan.
type RuntimeConfig struct {
	MaxEvidence  int
	IncludeTests bool
	Verbose      bool
	Format       string
	Output       string
	Exclude      []string
	RulesFile    string
	Detectors    []string
	Events       bool
}

// Overrides captures values coming from the config file, env vars or CLI
// flags. Nil pointers and empty values leave the current setting untouched.
type Overrides struct {
	MaxEvidence  *int
	IncludeTests *bool
	Verbose      *bool
	Format       string
	Output       string
	Exclude      []string
	RulesFile    string
	Detectors    []string
	Events       *bool
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		MaxEvidence: DefaultMaxEvidence,
		Format:      "json",
		Detectors:   []string{"stacks", "deploy"},
	}
}

// Load resolves the final runtime configuration. Variables from the env file
// are visible to ${VAR} expansion in the config file and to STACKSCAN_*
// lookups, but never shadow the real process environment.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	dotenv, err := readEnvFile(l.envFile())
	if err != nil {
		return cfg, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}

	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path, lookup)
		if err != nil {
			return cfg, err
		}
		cfg.apply(fileOv)
	}

	envOv, err := overridesFromEnv(lookup)
	if err != nil {
		return cfg, err
	}
	cfg.apply(envOv)
	cfg.apply(override)

	// values below one are clamped, not rejected
	cfg.MaxEvidence = max(1, cfg.MaxEvidence)

	return cfg, nil
}

func (l Loader) envFile() string {
	if l.EnvFile == "" {
		return DefaultEnvFile
	}
	return l.EnvFile
}

// Validate ensures the config is usable by the scan command.
func (c RuntimeConfig) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("unsupported format %q; expected one of %s", c.Format, strings.Join(Formats, ", "))
	}

	if len(c.Detectors) == 0 {
		return errors.New("at least one detector must be enabled")
	}

	return nil
}

func (c *RuntimeConfig) apply(src Overrides) {
	if src.MaxEvidence != nil {
		c.MaxEvidence = *src.MaxEvidence
	}

	if src.IncludeTests != nil {
		c.IncludeTests = *src.IncludeTests
	}

	if src.Verbose != nil {
		c.Verbose = *src.Verbose
	}

	if src.Format != "" {
		c.Format = strings.ToLower(src.Format)
	}

	if src.Output != "" {
		c.Output = src.Output
	}

	if len(src.Exclude) > 0 {
		c.Exclude = cleanList(src.Exclude)
	}

	if src.RulesFile != "" {
		c.RulesFile = src.RulesFile
	}

	if len(src.Detectors) > 0 {
		c.Detectors = cleanList(src.Detectors)
	}

	if src.Events != nil {
		c.Events = *src.Events
	}
}

func readEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return values, nil
}

func loadFromFile(path string, lookup func(string) string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	expanded, err := envsubst.Eval(string(data), lookup)
	if err != nil {
		return Overrides{}, fmt.Errorf("expanding %s: %w", path, err)
	}

	type rawConfig struct {
		MaxEvidence  *int     `yaml:"maxEvidence"`
		IncludeTests *bool    `yaml:"includeTests"`
		Verbose      *bool    `yaml:"verbose"`
		Format       string   `yaml:"format"`
		Output       string   `yaml:"output"`
		Exclude      listFlag `yaml:"exclude"`
		RulesFile    string   `yaml:"rulesFile"`
		Detectors    listFlag `yaml:"detectors"`
		Events       *bool    `yaml:"events"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return Overrides{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return Overrides{
		MaxEvidence:  raw.MaxEvidence,
		IncludeTests: raw.IncludeTests,
		Verbose:      raw.Verbose,
		Format:       raw.Format,
		Output:       raw.Output,
		Exclude:      raw.Exclude,
		RulesFile:    raw.RulesFile,
		Detectors:    raw.Detectors,
		Events:       raw.Events,
	}, nil
}

func overridesFromEnv(lookup func(string) string) (Overrides, error) {
	ov := Overrides{}

	if value := lookup(envMaxEvidence); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return ov, fmt.Errorf("%s: %w", envMaxEvidence, err)
		}
		ov.MaxEvidence = &parsed
	}

	ov.IncludeTests = parseBool(lookup(envIncludeTests))
	ov.Verbose = parseBool(lookup(envVerbose))
	ov.Events = parseBool(lookup(envEvents))

	ov.Format = lookup(envFormat)
	ov.Output = lookup(envOutput)
	ov.RulesFile = lookup(envRulesFile)

	if value := lookup(envExclude); value != "" {
		ov.Exclude = ParseList(value)
	}

	if value := lookup(envDetectors); value != "" {
		ov.Detectors = ParseList(value)
	}

	return ov, nil
}

func parseBool(value string) *bool {
	if value == "" {
		return nil
	}
	parsed := strings.EqualFold(value, "true") || value == "1"
	return &parsed
}

// ParseList splits comma, whitespace or newline separated input.
func ParseList(input string) []string {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	return cleanList(parts)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// listFlag enables YAML fields that can be specified as a scalar or sequence.
type listFlag []string

func (l *listFlag) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, node.Value)
		}
		*l = cleanList(out)
	case yaml.ScalarNode:
		*l = ParseList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for list at line %d", value.Line)
	}
	return nil
}
