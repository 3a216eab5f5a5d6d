package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/Eventual-Inc/daft-launcher/shared"
)

// Version is the tool's own version. A declarative file is only accepted when
// its daft_launcher_version field matches this string exactly.
const Version = "0.4.0"

// DefaultConfigPath is the declarative file looked up in the working
// directory when no path is given on the command line.
const DefaultConfigPath = ".daft.toml"

// RawConfig is the user-declarative unit parsed from the TOML file.
type RawConfig struct {
	DaftLauncherVersion string `toml:"daft_launcher_version"`
	Setup               Setup  `toml:"setup"`
	Run                 Run    `toml:"run"`
	Aws                 *Aws   `toml:"aws"`
}

// Setup declares the user's intent for the cluster.
type Setup struct {
	Name            string   `toml:"name"`
	Provider        string   `toml:"provider"`
	PythonVersion   string   `toml:"python_version"`
	RayVersion      string   `toml:"ray_version"`
	NumberOfWorkers *int     `toml:"number_of_workers"`
	Dependencies    []string `toml:"dependencies"`
}

// Run holds the user's shell commands surrounding the generated bootstrap
// sequence. Both lists are ordered.
type Run struct {
	PreSetupCommands []string `toml:"pre_setup_commands"`
	SetupCommands    []string `toml:"setup_commands"`
}

// Aws holds the optional provider-specific overrides.
type Aws struct {
	Region                string `toml:"region"`
	SSHUser               string `toml:"ssh_user"`
	InstanceType          string `toml:"instance_type"`
	ImageID               string `toml:"image_id"`
	IamInstanceProfileArn string `toml:"iam_instance_profile_arn"`
}

// Load parses and validates the declarative file at path.
func Load(path string) (*RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.ReturnLogError("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates the declarative TOML content.
func Parse(data []byte) (*RawConfig, error) {
	var cfg RawConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, translateDecodeError(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate short-circuits on the first structurally invalid field.
func (c *RawConfig) validate() error {
	if c.DaftLauncherVersion == "" {
		return &ValidationError{Field: "daft_launcher_version", Expected: "a non-empty string"}
	}
	if c.Setup.Name == "" {
		return &ValidationError{Field: "setup.name", Expected: "a non-empty string"}
	}
	if c.Setup.Provider == "" {
		return &ValidationError{Field: "setup.provider", Expected: "a non-empty string"}
	}
	if c.Setup.NumberOfWorkers != nil && *c.Setup.NumberOfWorkers < 0 {
		return &ValidationError{Field: "setup.number_of_workers", Expected: "a non-negative integer"}
	}

	return nil
}

func translateDecodeError(err error) error {
	var parseErr toml.ParseError
	if errors.As(err, &parseErr) {
		return &ValidationError{Field: parseErr.LastKey, Expected: parseErr.Message}
	}

	return fmt.Errorf("failed to parse config file: %w", err)
}
