package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration keys.
const (
	KeyProvider       = "provider"
	KeyModel          = "model"
	KeyModelThinking  = "model-thinking"
	KeyModelFast      = "model-fast"
	KeyBaseURL        = "base-url"
	KeyMaxIterations  = "max-iterations"
	KeyRetryAttempts  = "retry-attempts"
	KeyCallTimeout    = "call-timeout"
	KeyArtifactsDir   = "artifacts-dir"
	KeyWebhookURL     = "webhook-url"
	KeySlackWebhook   = "slack-webhook-url"
	KeyFlowID         = "flow-id"
)

// envPrefix maps key "max-iterations" to CODEFLOW_MAX_ITERATIONS.
const envPrefix = "CODEFLOW_"

const (
	globalConfigDir = "codeflow"
	localConfigName = ".codeflow.yaml"
)

// Defaults returns the built-in default values.
func Defaults() map[string]string {
	return map[string]string{
		KeyProvider:      "openai",
		KeyMaxIterations: "3",
		KeyRetryAttempts: "2",
		KeyCallTimeout:   "2m",
		KeyArtifactsDir:  ".codeflow/artifacts",
		KeyFlowID:        "dev",
	}
}

// validKeys lists every key accepted in config files.
var validKeys = []string{
	KeyProvider, KeyModel, KeyModelThinking, KeyModelFast, KeyBaseURL,
	KeyMaxIterations, KeyRetryAttempts, KeyCallTimeout,
	KeyArtifactsDir, KeyWebhookURL, KeySlackWebhook, KeyFlowID,
}

// Resolver merges configuration from defaults, the global config file
// (~/.config/codeflow/config.yaml), the local config file (.codeflow.yaml in
// the project root), and CODEFLOW_* environment variables.
type Resolver struct {
	globalPath  string
	localPath   string
	projectRoot string
	errWriter   io.Writer

	// Warnings collects non-fatal issues during resolution.
	Warnings []string
}

// NewResolver creates a resolver with the standard paths. The local config
// is searched for from the current directory up to the project root (the
// first ancestor containing .git).
func NewResolver() *Resolver {
	r := &Resolver{errWriter: os.Stderr}

	if root := findProjectRoot("."); root != "" {
		r.projectRoot = root
		r.localPath = filepath.Join(root, localConfigName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", globalConfigDir, "config.yaml")
	}

	return r
}

// NewResolverWithPaths creates a resolver with explicit file paths, mainly
// for tests.
func NewResolverWithPaths(globalPath, localPath string) *Resolver {
	return &Resolver{
		globalPath: globalPath,
		localPath:  localPath,
		errWriter:  io.Discard,
	}
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.errWriter != nil {
		fmt.Fprintf(r.errWriter, "Warning: %s\n", msg)
	}
}

// Resolved holds the merged configuration with per-key provenance.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for a key, or empty string if not set.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source returns the source of a key's value.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// GetWithSource returns both the value and its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of all key-value pairs.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Resolve merges all sources.
// Priority (highest to lowest): flags > env > local > global > defaults.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range Defaults() {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}

	r.applyFile(cfg, r.globalPath, SourceGlobal)
	r.applyFile(cfg, r.localPath, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves config and applies non-empty flag overrides.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range flags {
		if value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceFlag
		}
	}
	return cfg
}

func (r *Resolver) applyFile(cfg *Resolved, path string, source Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return // missing file is not an error
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if !contains(validKeys, key) {
			r.warn(fmt.Sprintf("%s: unknown key %q", path, key))
			continue
		}
		if strVal := toString(value); strVal != "" {
			cfg.values[key] = strVal
			cfg.sources[key] = source
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	for _, key := range validKeys {
		envKey := envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}
}

// GlobalPath returns the path to the global config file.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// ProjectRoot returns the detected project root, empty when not inside a
// git repository.
func (r *Resolver) ProjectRoot() string {
	return r.projectRoot
}

// LocalPath returns the path to the local config file.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

// Settings is the resolved configuration parsed into typed fields.
type Settings struct {
	Provider      string
	Model         string
	ModelThinking string
	ModelFast     string
	BaseURL       string
	MaxIterations int
	RetryAttempts int
	CallTimeout   time.Duration
	ArtifactsDir  string
	WebhookURL    string
	SlackWebhook  string
	FlowID        string
}

// Parse converts the merged values into typed settings. Malformed numeric or
// duration values are reported, not silently defaulted.
func (c *Resolved) Parse() (Settings, error) {
	s := Settings{
		Provider:      c.Get(KeyProvider),
		Model:         c.Get(KeyModel),
		ModelThinking: c.Get(KeyModelThinking),
		ModelFast:     c.Get(KeyModelFast),
		BaseURL:       c.Get(KeyBaseURL),
		ArtifactsDir:  c.Get(KeyArtifactsDir),
		WebhookURL:    c.Get(KeyWebhookURL),
		SlackWebhook:  c.Get(KeySlackWebhook),
		FlowID:        c.Get(KeyFlowID),
	}

	var err error
	if s.MaxIterations, err = parseInt(c, KeyMaxIterations); err != nil {
		return s, err
	}
	if s.RetryAttempts, err = parseInt(c, KeyRetryAttempts); err != nil {
		return s, err
	}

	timeout := c.Get(KeyCallTimeout)
	if s.CallTimeout, err = time.ParseDuration(timeout); err != nil {
		return s, fmt.Errorf("%s: invalid duration %q", KeyCallTimeout, timeout)
	}

	return s, nil
}

func parseInt(c *Resolved, key string) (int, error) {
	raw := c.Get(key)
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return n, nil
}

// Helper functions

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findProjectRoot walks up from startDir looking for a .git directory.
func findProjectRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
