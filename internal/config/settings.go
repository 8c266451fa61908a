package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	ioutils "github.com/handiism/snarf/internal/io"
	"github.com/handiism/snarf/internal/ledger"
	"github.com/spf13/viper"
)

// ErrMissingCredential indicates the credential file is absent or empty.
var ErrMissingCredential = errors.New("missing credential")

// EnvPrefix prefixes environment overrides: SNARF_OUTPUT_DIR, SNARF_API_KEY...
const EnvPrefix = "SNARF"

// Settings holds all configuration options.
type Settings struct {
	// Destination settings
	OutputDir          string `mapstructure:"output_dir"`
	TrustExistingFiles bool   `mapstructure:"trust_existing_files"`
	MaxDimension       int    `mapstructure:"max_dimension"` // 0 keeps originals

	// Catalog settings
	APIKey            string  `mapstructure:"api_key"`
	Endpoint          string  `mapstructure:"endpoint"` // empty uses the public endpoint
	PublicOnly        bool    `mapstructure:"public_only"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// State files
	CredentialFile string `mapstructure:"credential_file"`
	LedgerDir      string `mapstructure:"ledger_dir"`

	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	ExiftoolPath    string        `mapstructure:"exiftool_path"`
	Notify          bool          `mapstructure:"notify"`
	LogLevel        string        `mapstructure:"log_level"`
}

// Dir returns the per-user configuration directory, $XDG_CONFIG_HOME/snarf
// on Linux.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "snarf")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	dir := Dir()
	return &Settings{
		OutputDir:          "output",
		TrustExistingFiles: true,
		PublicOnly:         true,
		RequestsPerSecond:  5,
		CredentialFile:     filepath.Join(dir, "credential"),
		LedgerDir:          dir,
		DownloadTimeout:    10 * time.Minute,
		Notify:             true,
		LogLevel:           "info",
	}
}

// values lists every key with its value in file form.
func (s *Settings) values() map[string]any {
	return map[string]any{
		"output_dir":           s.OutputDir,
		"trust_existing_files": s.TrustExistingFiles,
		"max_dimension":        s.MaxDimension,
		"api_key":              s.APIKey,
		"endpoint":             s.Endpoint,
		"public_only":          s.PublicOnly,
		"requests_per_second":  s.RequestsPerSecond,
		"credential_file":      s.CredentialFile,
		"ledger_dir":           s.LedgerDir,
		"download_timeout":     s.DownloadTimeout.String(),
		"exiftool_path":        s.ExiftoolPath,
		"notify":               s.Notify,
		"log_level":            s.LogLevel,
	}
}

// Load reads settings from a TOML file with SNARF_* environment overrides.
//
// An empty path searches config.toml in Dir() and then the working
// directory. A missing file is not an error: defaults are used.
func Load(path string) (*Settings, error) {
	v := viper.New()
	for key, value := range DefaultSettings().values() {
		v.SetDefault(key, value)
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate reports settings that cannot drive a run.
func (s *Settings) Validate() error {
	switch {
	case strings.TrimSpace(s.OutputDir) == "":
		return errors.New("config: output_dir is empty")
	case s.RequestsPerSecond < 0:
		return errors.New("config: requests_per_second must not be negative")
	case s.MaxDimension < 0:
		return errors.New("config: max_dimension must not be negative")
	case s.DownloadTimeout < 0:
		return errors.New("config: download_timeout must not be negative")
	}
	return nil
}

// Save writes settings to a TOML file.
func (s *Settings) Save(path string) error {
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	for key, value := range s.values() {
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LedgerPath returns the ledger file for the given credential.
func (s *Settings) LedgerPath(credential string) string {
	return ledger.PathFor(s.LedgerDir, credential)
}

// LoadCredential reads the stored credential.
//
// Returns an error wrapping ErrMissingCredential when the file does not
// exist or holds only whitespace.
func LoadCredential(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s (run `snarf login`)", ErrMissingCredential, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingCredential, path)
	}
	return token, nil
}

// SaveCredential stores token at path, readable by the owner only.
func SaveCredential(path, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrMissingCredential)
	}
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := ioutils.WriteFileAtomic(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}
