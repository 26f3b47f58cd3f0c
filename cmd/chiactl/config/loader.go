package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global ChiaConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable
func Load() error {
	var err error
	once.Do(func() {
		var path string
		path, err = defaultPath()
		if err != nil {
			return
		}
		Global, err = LoadFile(path)
	})
	return err
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".chia", "services.yaml"), nil
}

// LoadFile reads and validates the config at path, creating a default
// config there on first run.
func LoadFile(path string) (ChiaConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return ChiaConfig{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ChiaConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	var cfg ChiaConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return ChiaConfig{}, fmt.Errorf("failed to parse the config file: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return ChiaConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural constraints plus the cross-field rules the
// struct tags cannot express.
func Validate(cfg ChiaConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	seen := make(map[string]bool, len(cfg.Services))
	for _, svc := range cfg.Services {
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service name %q", svc.Name)
		}
		seen[svc.Name] = true
	}
	return nil
}

// ErrServiceNotFound reports an unmanaged service name.
var ErrServiceNotFound = errors.New("service not found in config")

// FindService looks up a managed service by name.
func (c ChiaConfig) FindService(name string) (ServiceSpec, error) {
	for _, svc := range c.Services {
		if svc.Name == name {
			return svc, nil
		}
	}
	return ServiceSpec{}, fmt.Errorf("%w: %q", ErrServiceNotFound, name)
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
