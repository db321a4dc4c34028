// Package config provides layered configuration for the workflow CLI.
//
// Values merge with clear precedence:
//  1. Command-line flags (highest priority)
//  2. CODEFLOW_* environment variables
//  3. Local config (.codeflow.yaml in the project root)
//  4. Global config (~/.config/codeflow/config.yaml)
//  5. Built-in defaults (lowest priority)
//
// Each resolved value tracks its source, so `codeflow config list` can show
// where a setting came from:
//
//	resolver := config.NewResolver()
//	cfg := resolver.Resolve()
//	fmt.Println(cfg.Get(config.KeyProvider))    // "openai"
//	fmt.Println(cfg.Source(config.KeyProvider)) // "default"
//
// Parse converts the merged string map into typed Settings:
//
//	settings, err := cfg.Parse()
package config
