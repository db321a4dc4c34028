package config

// Source indicates where a configuration value came from.
type Source string

// Configuration source constants.
const (
	// SourceDefault indicates the value is a built-in default.
	SourceDefault Source = "default"

	// SourceGlobal indicates the value came from ~/.config/codeflow/config.yaml.
	SourceGlobal Source = "global"

	// SourceLocal indicates the value came from .codeflow.yaml in the
	// project root.
	SourceLocal Source = "local"

	// SourceEnv indicates the value came from a CODEFLOW_* environment
	// variable.
	SourceEnv Source = "env"

	// SourceFlag indicates the value was set via command-line flag.
	SourceFlag Source = "flag"
)
