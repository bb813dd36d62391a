package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// FileName is the name of the configuration file inside the git directory
const FileName = "pstack_config.json"

// Configuration keys
const (
	KeyPopPolicy        = "pop.policy"
	KeyLockTimeout      = "lock.timeout"
	KeyIncludeUntracked = "refresh.includeUntracked"
	KeyNameLength       = "patch.nameLength"
	KeyLogFile          = "log.file"
	KeyLogMaxSize       = "log.maxSize"
	KeyLogMaxBackups    = "log.maxBackups"
	KeyLogMaxAge        = "log.maxAge"
)

// Keys lists every supported key in display order
var Keys = []string{
	KeyPopPolicy, KeyLockTimeout, KeyIncludeUntracked, KeyNameLength,
	KeyLogFile, KeyLogMaxSize, KeyLogMaxBackups, KeyLogMaxAge,
}

var popPolicies = []string{"cascade", "reorder", "reject"}

// Config is the configuration of one repository
type Config struct {
	v    *viper.Viper
	path string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	return v
}

// Load reads the configuration of the repository whose git directory is gitDir.
// A missing file yields the defaults.
func Load(gitDir string) (*Config, error) {
	path := filepath.Join(gitDir, FileName)
	v := newViper()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyPopPolicy, "cascade")
	v.SetDefault(KeyLockTimeout, "0s")
	v.SetDefault(KeyIncludeUntracked, false)
	v.SetDefault(KeyNameLength, 30)
	v.SetDefault(KeyLogFile, defaultLogFile())
	v.SetDefault(KeyLogMaxSize, 1)
	v.SetDefault(KeyLogMaxBackups, 2)
	v.SetDefault(KeyLogMaxAge, 30)

	if err := readConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Config{v: v, path: path}, nil
}

// defaultLogFile is ~/.pstack/logs/pstack.log, or pstack.log when there is no home directory
func defaultLogFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pstack.log"
	}
	return filepath.Join(home, ".pstack", "logs", "pstack.log")
}

func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Path returns the location of the configuration file
func (c *Config) Path() string {
	return c.path
}

// PopPolicy returns the configured pop policy name
func (c *Config) PopPolicy() string {
	return c.v.GetString(KeyPopPolicy)
}

// LockTimeout returns how long to wait for a branch lock
func (c *Config) LockTimeout() time.Duration {
	return c.v.GetDuration(KeyLockTimeout)
}

// IncludeUntracked reports whether refresh picks up untracked files
func (c *Config) IncludeUntracked() bool {
	return c.v.GetBool(KeyIncludeUntracked)
}

// NameLength returns the maximum length of generated patch names
func (c *Config) NameLength() int {
	return c.v.GetInt(KeyNameLength)
}

// LogFile returns where the rotating log is written; PSTACK_LOG_FILE overrides it
func (c *Config) LogFile() string {
	return c.v.GetString(KeyLogFile)
}

// LogRotation returns the size in megabytes at which the log rotates,
// how many rotated files are kept and for how many days.
func (c *Config) LogRotation() (maxSizeMB, maxBackups, maxAgeDays int) {
	return c.v.GetInt(KeyLogMaxSize), c.v.GetInt(KeyLogMaxBackups), c.v.GetInt(KeyLogMaxAge)
}

// Get returns the effective value of key as a string
func (c *Config) Get(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return c.v.GetString(key), nil
}

// Set validates value, stores it for key and writes the configuration file.
// Only values set through Set end up in the file, never defaults or environment overrides.
func (c *Config) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	parsed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	file := newViper()
	file.SetConfigFile(c.path)
	if err := readConfigFile(file); err != nil {
		return fmt.Errorf("failed to read %s: %w", c.path, err)
	}
	file.Set(key, parsed)
	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := file.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	c.v.Set(key, parsed)
	return nil
}

func checkKey(key string) error {
	if !slices.Contains(Keys, key) {
		return pstackerrors.NewUsageError("unknown config key %q (known keys: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

func parseValue(key, value string) (any, error) {
	switch key {
	case KeyPopPolicy:
		policy := strings.ToLower(strings.TrimSpace(value))
		if !slices.Contains(popPolicies, policy) {
			return nil, pstackerrors.NewUsageError("invalid %s %q (expected %s)", key, value, strings.Join(popPolicies, ", "))
		}
		return policy, nil
	case KeyLockTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return nil, pstackerrors.NewUsageError("invalid %s %q: expected a duration such as 5s", key, value)
		}
		return d.String(), nil
	case KeyIncludeUntracked:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, pstackerrors.NewUsageError("invalid %s %q: expected true or false", key, value)
		}
		return b, nil
	case KeyNameLength, KeyLogMaxSize, KeyLogMaxAge:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return nil, pstackerrors.NewUsageError("invalid %s %q: expected a positive number", key, value)
		}
		return n, nil
	case KeyLogMaxBackups:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, pstackerrors.NewUsageError("invalid %s %q: expected zero or more", key, value)
		}
		return n, nil
	default:
		return value, nil
	}
}
