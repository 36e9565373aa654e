package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/charliek/eventlook/internal/constants"
)

// LoadEnvFile reads a .env file and returns the variables as a map
func LoadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("env file not found: %s", path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	return env, nil
}

// MergeEnv merges multiple environment maps in order, with later maps taking precedence
func MergeEnv(envMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, env := range envMaps {
		for k, v := range env {
			result[k] = v
		}
	}
	return result
}

// processEnv returns the EVENTLOOK_* variables of the current process
func processEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{constants.EnvLogRoot, constants.EnvAPIHost, constants.EnvAPIPort, constants.EnvAPIToken} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}

// ApplyEnv overrides config values from the env_file and the process
// environment. Priority (lowest to highest):
// 1. Config file
// 2. env_file, resolved against configDir
// 3. Process environment
func ApplyEnv(config *Config, configDir string) error {
	var fileEnv map[string]string
	if config.EnvFile != "" {
		var err error
		fileEnv, err = LoadEnvFile(resolvePath(config.EnvFile, configDir))
		if err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}
	return applyOverrides(config, MergeEnv(fileEnv, processEnv()))
}

func applyOverrides(config *Config, env map[string]string) error {
	if v := env[constants.EnvLogRoot]; v != "" {
		config.LogRoot = v
	}
	if v := env[constants.EnvAPIHost]; v != "" {
		config.API.Host = v
	}
	if v := env[constants.EnvAPIPort]; v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", constants.EnvAPIPort, v)
		}
		config.API.Port = port
	}
	if v := env[constants.EnvAPIToken]; v != "" {
		config.API.Token = v
	}
	return Validate(config)
}

// resolvePath resolves a potentially relative path against a base directory
func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	candidates := []string{
		"eventlook.yaml",
		"eventlook.yml",
		".eventlook.yaml",
		".eventlook.yml",
	}

	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", fmt.Errorf("no config file found (tried: %v)", candidates)
}

// CheckFilePermissions checks if a file has secure permissions.
// On Unix-like systems, it verifies the file is not world-writable.
func CheckFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking file permissions: %w", err)
	}

	// others have write (0002)
	if info.Mode().Perm()&0002 != 0 {
		return fmt.Errorf("config file %s has insecure permissions: world-writable files can be modified by any user. Please run: chmod o-w %s", path, path)
	}
	return nil
}
