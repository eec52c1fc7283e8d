package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding a config file path.
const ConfigEnv = "XBVIEW_CONFIG"

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// When no config file exists anywhere, defaults are returned with an empty
// path and relative paths resolve against the working directory.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	cfg := Defaults()
	absPath := ""

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.BaseDir = wd
	} else {
		absPath, err = filepath.Abs(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}

		data = interpolateEnv(data, getenv)

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.BaseDir = filepath.Dir(absPath)
	}

	resolvePaths(cfg)

	if err := validateBasic(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// resolvePaths makes every file setting absolute against BaseDir
func resolvePaths(cfg *Config) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(cfg.BaseDir, *p)
		}
	}
	resolve(&cfg.Source.Dir)
	resolve(&cfg.Reference)
	resolve(&cfg.Server.HTTPS.Cert)
	resolve(&cfg.Server.HTTPS.Key)
	resolve(&cfg.Dev.LogDatabase)
	if out := cfg.Logging.Output; out != "stderr" && out != "stdout" {
		resolve(&cfg.Logging.Output)
	}
}

// Validate checks the configuration after CLI flags have been applied.
func Validate(cfg *Config) error {
	return validateBasic(cfg)
}

// Warnings returns non-fatal configuration issues worth telling the user about.
func Warnings(cfg *Config) []string {
	var warnings []string

	if info, err := os.Stat(cfg.Source.Dir); err != nil || !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("source directory %s does not exist - the index will be empty", cfg.Source.Dir))
	}

	if cfg.Reference == "" {
		warnings = append(warnings, "no keyword reference configured - /reference will return 404")
	} else if _, err := os.Stat(cfg.Reference); err != nil {
		warnings = append(warnings, fmt.Sprintf("keyword reference %s not found - /reference will return 404", cfg.Reference))
	}

	if !cfg.Server.Dev && !cfg.Server.HTTPS.Enabled() && cfg.Server.Host != "localhost" && cfg.Server.Host != "127.0.0.1" {
		warnings = append(warnings, "serving plain HTTP on a non-loopback host")
	}

	return warnings
}

// resolveConfigPath finds the config file to use. An empty result with no
// error means no file was found and defaults apply.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	// 1. Explicit path from --config flag
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	// 2. Environment variable
	if envPath := getenv(ConfigEnv); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s file not found: %s", ConfigEnv, envPath)
		}
		return envPath, nil
	}

	// 3. Current directory
	if _, err := os.Stat("xbview.yaml"); err == nil {
		return "xbview.yaml", nil
	}

	// 4. XDG config
	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "xbview", "xbview.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

var (
	validLevels       = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats      = map[string]bool{"json": true, "text": true}
	validCompressions = map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
)

func validateBasic(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Server.Port))
	}

	if (cfg.Server.HTTPS.Cert == "") != (cfg.Server.HTTPS.Key == "") {
		errs = append(errs, "https: cert and key must be given together")
	}

	if cfg.Source.Dir == "" {
		errs = append(errs, "source.dir is required")
	}
	for i, ext := range cfg.Source.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Sprintf("source.extensions[%d]: %q must start with a dot", i, ext))
		}
	}

	if cfg.Render.IndentEm <= 0 {
		errs = append(errs, fmt.Sprintf("render.indent_em must be positive, got %g", cfg.Render.IndentEm))
	}

	if cfg.Security.HSTS.MaxAge < 0 {
		errs = append(errs, fmt.Sprintf("security.hsts.max_age must not be negative, got %d", cfg.Security.HSTS.MaxAge))
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, fmt.Sprintf("cors.max_age must not be negative, got %d", cfg.CORS.MaxAge))
	}
	if rl := cfg.API.RateLimit; rl.Requests < 0 {
		errs = append(errs, fmt.Sprintf("api.rate_limit.requests must not be negative, got %d", rl.Requests))
	} else if rl.Requests > 0 && rl.Window <= 0 {
		errs = append(errs, "api.rate_limit.window must be positive when requests is set")
	}

	if !validCompressions[cfg.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Compression.Level))
	}
	if cfg.Compression.MinSize < 0 {
		errs = append(errs, fmt.Sprintf("compression.min_size must not be negative, got %d", cfg.Compression.MinSize))
	}

	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if _, err := ParseSize(cfg.Dev.LogMaxSize); err != nil {
		errs = append(errs, fmt.Sprintf("dev.log_max_size: %v", err))
	}
	if cfg.Dev.LogTruncatePct < 1 || cfg.Dev.LogTruncatePct > 99 {
		errs = append(errs, fmt.Sprintf("dev.log_truncate_pct must be 1-99, got %d", cfg.Dev.LogTruncatePct))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ParseSize parses a size string like "10MB" into bytes
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	s = strings.TrimSpace(strings.ToUpper(s))

	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			var num int64
			if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			return num * sf.mult, nil
		}
	}

	var num int64
	if _, err := fmt.Sscanf(s, "%d", &num); err != nil {
		return 0, fmt.Errorf("invalid size format: %s (use B, KB, MB, or GB suffix)", s)
	}
	return num, nil
}
