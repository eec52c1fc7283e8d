package config

import (
	"strings"
	"time"
)

// Config represents the complete xbview configuration
type Config struct {
	BaseDir     string            `yaml:"-"` // Directory containing config file, for resolving relative paths
	Server      ServerConfig      `yaml:"server"`
	Source      SourceConfig      `yaml:"source"`
	Reference   string            `yaml:"reference"` // Path to the keyword reference YAML (optional)
	Render      RenderConfig      `yaml:"render"`
	Security    SecurityConfig    `yaml:"security"`
	CORS        CORSConfig        `yaml:"cors"`
	API         APIConfig         `yaml:"api"`
	Compression CompressionConfig `yaml:"compression"`
	Logging     LoggingConfig     `yaml:"logging"`
	Dev         DevConfig         `yaml:"dev"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	Host  string      `yaml:"host"`
	Port  int         `yaml:"port"`
	Dev   bool        `yaml:"-"` // Set via CLI flag, not config
	HTTPS HTTPSConfig `yaml:"https"`
	Proxy ProxyConfig `yaml:"proxy"`
}

// ProxyConfig says whether to believe X-Forwarded-For and X-Real-IP
type ProxyConfig struct {
	Trusted    bool     `yaml:"trusted"`     // Trust proxy headers
	TrustedIPs []string `yaml:"trusted_ips"` // Only trust these proxy addresses (empty = any)
}

// HTTPSConfig holds TLS settings. Both files or neither.
type HTTPSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// Enabled reports whether a certificate pair is configured.
func (h HTTPSConfig) Enabled() bool {
	return h.Cert != "" && h.Key != ""
}

// SourceConfig says where listings live
type SourceConfig struct {
	Dir        string   `yaml:"dir"`        // Directory of program listings (default: ".")
	Extensions []string `yaml:"extensions"` // File extensions shown in the index (default: .xb, .bas, .txt)
}

// HasExtension reports whether name carries one of the configured extensions.
func (s SourceConfig) HasExtension(name string) bool {
	for _, ext := range s.Extensions {
		if len(name) > len(ext) && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// RenderConfig holds listing presentation settings
type RenderConfig struct {
	IndentEm float64 `yaml:"indent_em"` // Left margin per nesting level in em (default: 2)
	Style    string  `yaml:"style"`     // Chroma style for terminal output (default: "monokai")
	Anchors  bool    `yaml:"anchors"`   // Give every numbered line an id="L<n>" (default: true)
}

// SecurityConfig holds security header settings
type SecurityConfig struct {
	HSTS               HSTSConfig `yaml:"hsts"`                 // Only sent over HTTPS
	ContentTypeOptions string     `yaml:"content_type_options"` // X-Content-Type-Options (default: "nosniff")
	FrameOptions       string     `yaml:"frame_options"`        // X-Frame-Options (default: "SAMEORIGIN")
	ReferrerPolicy     string     `yaml:"referrer_policy"`      // Referrer-Policy (default: "strict-origin-when-cross-origin")
	CSP                string     `yaml:"csp"`                  // Content-Security-Policy
}

// HSTSConfig holds HSTS (HTTP Strict Transport Security) settings
type HSTSConfig struct {
	Enabled           bool `yaml:"enabled"`
	MaxAge            int  `yaml:"max_age"` // Seconds (default: 31536000 = 1 year)
	IncludeSubDomains bool `yaml:"include_subdomains"`
}

// CORSConfig lets other sites call the JSON API
type CORSConfig struct {
	Origins []string `yaml:"origins"` // "*" or list of allowed origins; empty disables CORS
	Headers []string `yaml:"headers"` // Allowed request headers (default: echo the request)
	MaxAge  int      `yaml:"max_age"` // Preflight cache duration in seconds (default: 86400)
}

// AllowsOrigin reports whether origin may call the API.
func (c CORSConfig) AllowsOrigin(origin string) bool {
	for _, o := range c.Origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// APIConfig holds settings for the /api/ endpoints
type APIConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig caps API requests per client
type RateLimitConfig struct {
	Requests int           `yaml:"requests"` // Requests per window per client; 0 disables limiting
	Window   time.Duration `yaml:"window"`   // Window length (default: 1m)
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
}

// DevConfig holds dev tools settings (only used when --dev flag is enabled)
type DevConfig struct {
	LogDatabase    string `yaml:"log_database"`     // Path to dev log database file (default: auto-generated)
	LogMaxSize     string `yaml:"log_max_size"`     // Maximum log database size (default: "10MB")
	LogTruncatePct int    `yaml:"log_truncate_pct"` // Percentage to delete when truncating (default: 25)
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Source: SourceConfig{
			Dir:        ".",
			Extensions: []string{".xb", ".bas", ".txt"},
		},
		Render: RenderConfig{
			IndentEm: 2,
			Style:    "monokai",
			Anchors:  true,
		},
		Security: SecurityConfig{
			HSTS: HSTSConfig{
				Enabled:           true,
				MaxAge:            31536000, // 1 year
				IncludeSubDomains: false,
			},
			ContentTypeOptions: "nosniff",
			FrameOptions:       "SAMEORIGIN",
			ReferrerPolicy:     "strict-origin-when-cross-origin",
		},
		CORS: CORSConfig{
			// Empty by default - CORS disabled unless configured
			MaxAge: 86400, // 24 hours
		},
		API: APIConfig{
			RateLimit: RateLimitConfig{
				Requests: 120,
				Window:   time.Minute,
			},
		},
		Compression: CompressionConfig{
			Enabled: true,
			Level:   "default",
			MinSize: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Dev: DevConfig{
			LogMaxSize:     "10MB",
			LogTruncatePct: 25,
		},
	}
}
