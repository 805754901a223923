package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the well-known paths and tunables shared by the recovery tools.
// Every field has a default, so an absent configuration file is valid.
type Config struct {
	// CommandFile is the update command file written by the packaging tool.
	CommandFile string `yaml:"command_file"`
	// UpdateScript is the external upgrader invoked with the command file.
	UpdateScript string `yaml:"update_script"`
	// LogFile receives the upgrader's combined output.
	LogFile string `yaml:"log_file"`
	// Shell interprets the update command line.
	Shell string `yaml:"shell"`
	// SetupMountsCommand maps logical install partitions; empty means nothing to do.
	SetupMountsCommand string `yaml:"setup_mounts_command"`
	// VolumeTableCommand reloads the volume table; empty means nothing to do.
	VolumeTableCommand string `yaml:"volume_table_command"`
	// TestDelay is how long test mode shows the install animation.
	TestDelay time.Duration `yaml:"test_delay"`
	// Countdown is the first number test mode counts down from.
	Countdown int `yaml:"countdown"`
	// CountdownStep is the pause between countdown numbers.
	CountdownStep time.Duration `yaml:"countdown_step"`
}

const (
	// DefaultCommandFile is where the packaging tool leaves update parameters.
	DefaultCommandFile = "/cache/recovery/ubuntu_command"

	// DefaultUpdateScript is the system-image upgrader shipped in the recovery ramdisk.
	DefaultUpdateScript = "/sbin/system-image-upgrader"

	// DefaultLogFile is the upgrader log users are pointed at on failure.
	DefaultLogFile = "/cache/ubuntu_updater.log"

	// DefaultShell is the recovery shell; it understands the "&>" redirect.
	DefaultShell = "/system/bin/sh"

	// DefaultTestDelay is how long test mode keeps the install animation up.
	DefaultTestDelay = 10 * time.Second

	// DefaultCountdown is where the test-mode countdown starts.
	DefaultCountdown = 5

	// DefaultCountdownStep is the pause between countdown numbers.
	DefaultCountdownStep = time.Second

	// DefaultFilePermissions is the permission used when saving configuration.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeCountdown is returned when the countdown start is below zero.
	errNegativeCountdown = errors.New("countdown must not be negative")
	// errRelativePath is returned when a well-known path is not absolute.
	errRelativePath = errors.New("path must be absolute")
)

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	cfg := new(Config)

	// Validation of an empty config only fills in defaults.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// An empty path yields the built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults for unset fields and checks the rest.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	setDefault(&cfg.CommandFile, DefaultCommandFile)
	setDefault(&cfg.UpdateScript, DefaultUpdateScript)
	setDefault(&cfg.LogFile, DefaultLogFile)
	setDefault(&cfg.Shell, DefaultShell)

	if cfg.TestDelay <= 0 {
		cfg.TestDelay = DefaultTestDelay
	}

	if cfg.CountdownStep <= 0 {
		cfg.CountdownStep = DefaultCountdownStep
	}

	switch {
	case cfg.Countdown < 0:
		return errNegativeCountdown
	case cfg.Countdown == 0:
		cfg.Countdown = DefaultCountdown
	}

	for name, path := range map[string]string{
		"command_file":  cfg.CommandFile,
		"update_script": cfg.UpdateScript,
		"log_file":      cfg.LogFile,
		"shell":         cfg.Shell,
	} {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("%s %q: %w", name, path, errRelativePath)
		}
	}

	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
