// Package config loads codeqa's configuration with viper. Every pattern table
// the analyzers use lives here so that deployments can tune them without a
// rebuild.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"codeqa/internal/paths"
)

// EnvPrefix is the prefix for environment overrides (CODEQA_LOGGING_LEVEL, ...).
const EnvPrefix = "CODEQA"

// Config represents the complete codeqa configuration
type Config struct {
	Version int `json:"version" yaml:"version" mapstructure:"version"`

	Logging      LoggingConfig      `json:"logging" yaml:"logging" mapstructure:"logging"`
	Walk         WalkConfig         `json:"walk" yaml:"walk" mapstructure:"walk"`
	Metrics      MetricsConfig      `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Security     SecurityConfig     `json:"security" yaml:"security" mapstructure:"security"`
	Tasks        TasksConfig        `json:"tasks" yaml:"tasks" mapstructure:"tasks"`
	Git          GitConfig          `json:"git" yaml:"git" mapstructure:"git"`
	Architecture ArchitectureConfig `json:"architecture" yaml:"architecture" mapstructure:"architecture"`
	Dispatch     DispatchConfig     `json:"dispatch" yaml:"dispatch" mapstructure:"dispatch"`
	History      HistoryConfig      `json:"history" yaml:"history" mapstructure:"history"`
	LLM          LLMConfig          `json:"llm" yaml:"llm" mapstructure:"llm"`
	Workspace    WorkspaceConfig    `json:"workspace" yaml:"workspace" mapstructure:"workspace"`
	Server       ServerConfig       `json:"server" yaml:"server" mapstructure:"server"`

	// Source is the config file that was read, empty when defaults were used.
	Source string `json:"-" yaml:"-" mapstructure:"-"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	File   string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// WalkConfig controls project tree enumeration
type WalkConfig struct {
	IgnoreDirs       []string `json:"ignoreDirs" yaml:"ignoreDirs" mapstructure:"ignoreDirs"`
	SkipHidden       bool     `json:"skipHidden" yaml:"skipHidden" mapstructure:"skipHidden"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" yaml:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// MetricsConfig contains code metrics configuration
type MetricsConfig struct {
	TextExtensions []string `json:"textExtensions" yaml:"textExtensions" mapstructure:"textExtensions"`
	TopN           int      `json:"topN" yaml:"topN" mapstructure:"topN"`
}

// SecurityRule is one pattern the security analyzer matches line by line
type SecurityRule struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id"`
	Pattern  string `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
	Severity string `json:"severity" yaml:"severity" mapstructure:"severity"`
	Message  string `json:"message" yaml:"message" mapstructure:"message"`
	Redact   bool   `json:"redact,omitempty" yaml:"redact,omitempty" mapstructure:"redact"`
}

// SecurityConfig contains the security rule table
type SecurityConfig struct {
	Rules        []SecurityRule `json:"rules" yaml:"rules" mapstructure:"rules"`
	Extensions   []string       `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
	MaxLineBytes int            `json:"maxLineBytes" yaml:"maxLineBytes" mapstructure:"maxLineBytes"`
	MaxFindings  int            `json:"maxFindings" yaml:"maxFindings" mapstructure:"maxFindings"`
}

// TasksConfig contains task-comment configuration
type TasksConfig struct {
	Markers    []string `json:"markers" yaml:"markers" mapstructure:"markers"`
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// GitConfig contains git adapter configuration
type GitConfig struct {
	Binary    string `json:"binary" yaml:"binary" mapstructure:"binary"`
	TimeoutMs int    `json:"timeoutMs" yaml:"timeoutMs" mapstructure:"timeoutMs"`
	Recent    int    `json:"recent" yaml:"recent" mapstructure:"recent"`
}

// RoutePattern recognizes an HTTP route declaration for one framework
type RoutePattern struct {
	Framework string `json:"framework" yaml:"framework" mapstructure:"framework"`
	Pattern   string `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
}

// ArchitectureConfig contains the architecture heuristics
type ArchitectureConfig struct {
	EntryPoints     []string       `json:"entryPoints" yaml:"entryPoints" mapstructure:"entryPoints"`
	Routes          []RoutePattern `json:"routes" yaml:"routes" mapstructure:"routes"`
	TestPatterns    []string       `json:"testPatterns" yaml:"testPatterns" mapstructure:"testPatterns"`
	StaticDirs      []string       `json:"staticDirs" yaml:"staticDirs" mapstructure:"staticDirs"`
	ConfigFiles     []string       `json:"configFiles" yaml:"configFiles" mapstructure:"configFiles"`
	DatabaseFiles   []string       `json:"databaseFiles" yaml:"databaseFiles" mapstructure:"databaseFiles"`
	RouteExtensions []string       `json:"routeExtensions" yaml:"routeExtensions" mapstructure:"routeExtensions"`
}

// DispatchConfig contains question dispatch configuration
type DispatchConfig struct {
	// Keywords overrides the trigger keywords of individual tools by id.
	Keywords map[string][]string `json:"keywords,omitempty" yaml:"keywords,omitempty" mapstructure:"keywords"`
	Fallback []string            `json:"fallback" yaml:"fallback" mapstructure:"fallback"`
	MaxTools int                 `json:"maxTools" yaml:"maxTools" mapstructure:"maxTools"`
}

// HistoryConfig contains execution history configuration
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// LLMConfig contains the optional answer enhancer configuration
type LLMConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Model     string `json:"model" yaml:"model" mapstructure:"model"`
	APIKey    string `json:"-" yaml:"-" mapstructure:"apiKey"`
	BaseURL   string `json:"baseURL,omitempty" yaml:"baseURL,omitempty" mapstructure:"baseURL"`
	MaxTokens int    `json:"maxTokens" yaml:"maxTokens" mapstructure:"maxTokens"`
	TimeoutMs int    `json:"timeoutMs" yaml:"timeoutMs" mapstructure:"timeoutMs"`
}

// WorkspaceConfig controls how a repository reference is materialized
type WorkspaceConfig struct {
	LocalProject   string   `json:"localProject" yaml:"localProject" mapstructure:"localProject"`
	CloneDir       string   `json:"cloneDir,omitempty" yaml:"cloneDir,omitempty" mapstructure:"cloneDir"`
	AllowedHosts   []string `json:"allowedHosts" yaml:"allowedHosts" mapstructure:"allowedHosts"`
	CloneTimeoutMs int      `json:"cloneTimeoutMs" yaml:"cloneTimeoutMs" mapstructure:"cloneTimeoutMs"`
}

// ServerConfig contains HTTP API configuration
type ServerConfig struct {
	Host           string   `json:"host" yaml:"host" mapstructure:"host"`
	Port           int      `json:"port" yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins" mapstructure:"allowedOrigins"`
	RequestTimeout int      `json:"requestTimeoutMs" yaml:"requestTimeoutMs" mapstructure:"requestTimeoutMs"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Logging: LoggingConfig{
			Format: "text",
			Level:  "warn",
		},
		Walk: WalkConfig{
			IgnoreDirs: []string{
				".git", ".hg", ".svn", "node_modules", "vendor", "__pycache__",
				".venv", "venv", ".tox", "dist", "build", "target", ".idea",
				".vscode", ".dart_tool", ".next", "coverage",
			},
			SkipHidden:       true,
			MaxFileSizeBytes: 2 << 20,
		},
		Metrics: MetricsConfig{
			TextExtensions: []string{
				".py", ".js", ".ts", ".jsx", ".tsx", ".go", ".rs", ".java", ".kt",
				".rb", ".php", ".c", ".h", ".cpp", ".hpp", ".cs", ".swift", ".dart",
				".scala", ".sh", ".sql", ".html", ".css", ".scss", ".vue", ".svelte",
				".md", ".txt", ".json", ".yaml", ".yml", ".toml", ".xml",
			},
			TopN: 10,
		},
		Security: SecurityConfig{
			Rules: DefaultSecurityRules(),
			Extensions: []string{
				".py", ".js", ".ts", ".jsx", ".tsx", ".go", ".rb", ".php", ".java",
				".kt", ".cs", ".sh", ".env", ".yaml", ".yml", ".json", ".toml",
				".ini", ".cfg", ".conf", ".properties", ".xml",
			},
			MaxLineBytes: 4096,
			MaxFindings:  100,
		},
		Tasks: TasksConfig{
			Markers: []string{"TODO", "FIXME", "HACK", "NOTE"},
			Extensions: []string{
				".py", ".js", ".ts", ".jsx", ".tsx", ".go", ".rs", ".java", ".kt",
				".rb", ".php", ".c", ".h", ".cpp", ".hpp", ".cs", ".swift", ".dart",
				".scala", ".sh", ".sql", ".vue", ".svelte", ".css", ".scss", ".html",
			},
		},
		Git: GitConfig{
			Binary:    "git",
			TimeoutMs: 30000,
			Recent:    10,
		},
		Architecture: ArchitectureConfig{
			EntryPoints: []string{
				"main.py", "app.py", "wsgi.py", "asgi.py", "manage.py", "__main__.py",
				"index.js", "server.js", "app.js", "main.js", "index.ts", "server.ts",
				"main.ts", "main.go", "main.rs", "Main.java", "Application.java",
				"Program.cs", "main.dart", "config.ru",
			},
			Routes:          DefaultRoutePatterns(),
			TestPatterns:    []string{"test_*.py", "*_test.py", "*_test.go", "*.test.js", "*.test.ts", "*.spec.js", "*.spec.ts", "*Test.java", "*_spec.rb", "*_test.dart"},
			StaticDirs:      []string{"static", "public", "assets", "templates", "www"},
			ConfigFiles:     []string{"config.py", "settings.py", "config.json", "config.yaml", "config.yml", ".env", "docker-compose.yml", "docker-compose.yaml", "Dockerfile", "application.properties", "application.yml"},
			DatabaseFiles:   []string{"*.db", "*.sqlite", "*.sqlite3", "*.sql", "schema.prisma", "alembic.ini"},
			RouteExtensions: []string{".py", ".js", ".ts", ".go", ".java", ".kt", ".rb", ".php"},
		},
		Dispatch: DispatchConfig{
			Fallback: []string{"analyze_code_metrics", "generate_architecture_summary"},
		},
		History: HistoryConfig{
			Enabled: false,
		},
		LLM: LLMConfig{
			Enabled:   false,
			Model:     "gpt-4o-mini",
			MaxTokens: 400,
			TimeoutMs: 20000,
		},
		Workspace: WorkspaceConfig{
			LocalProject:   ".",
			AllowedHosts:   []string{"github.com", "gitlab.com", "bitbucket.org"},
			CloneTimeoutMs: 120000,
		},
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8080,
			AllowedOrigins: []string{"*"},
			RequestTimeout: 120000,
		},
	}
}

// DefaultSecurityRules returns the built-in security rule table.
func DefaultSecurityRules() []SecurityRule {
	return []SecurityRule{
		{ID: "hardcoded_password", Pattern: `(?i)passw(or)?d\s*[:=]\s*["'][^"']+["']`, Severity: "high", Message: "Hardcoded password", Redact: true},
		{ID: "api_key", Pattern: `(?i)api[_-]?key\s*[:=]\s*["'][^"']+["']`, Severity: "high", Message: "Hardcoded API key", Redact: true},
		{ID: "aws_access_key", Pattern: `\b(AKIA|ASIA)[0-9A-Z]{16}\b`, Severity: "critical", Message: "AWS access key id", Redact: true},
		{ID: "private_key", Pattern: `-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY`, Severity: "critical", Message: "Private key material", Redact: true},
		{ID: "sql_injection", Pattern: `(?i)execute\s*\(\s*["'].*(%s|%d|\+|\{).*["']`, Severity: "medium", Message: "SQL built by string formatting"},
		{ID: "eval_usage", Pattern: `\beval\s*\(`, Severity: "medium", Message: "Use of eval"},
		{ID: "exec_usage", Pattern: `\bexec\s*\(`, Severity: "medium", Message: "Use of exec"},
		{ID: "shell_injection", Pattern: `os\.system\s*\(|subprocess\.(call|run|Popen)\s*\(.*shell\s*=\s*True|child_process\.exec\s*\(`, Severity: "medium", Message: "Shell command execution"},
		{ID: "weak_random", Pattern: `random\.random\s*\(\)|Math\.random\s*\(\s*\)`, Severity: "low", Message: "Non-cryptographic random source"},
		{ID: "debug_mode", Pattern: `(?i)\bdebug\s*=\s*true\b`, Severity: "low", Message: "Debug mode enabled"},
	}
}

// DefaultRoutePatterns returns the built-in route declaration patterns.
func DefaultRoutePatterns() []RoutePattern {
	return []RoutePattern{
		{Framework: "flask", Pattern: `@\w+\.route\(\s*["']([^"']+)["']`},
		{Framework: "fastapi", Pattern: `@\w+\.(get|post|put|patch|delete)\(\s*["']([^"']+)["']`},
		{Framework: "express", Pattern: `\b(app|router)\.(get|post|put|patch|delete|use)\(\s*["'` + "`" + `]([^"'` + "`" + `]+)`},
		{Framework: "go-http", Pattern: `\.(HandleFunc|Handle)\(\s*"([^"]+)"`},
		{Framework: "go-router", Pattern: `\.(Get|Post|Put|Patch|Delete|GET|POST|PUT|PATCH|DELETE)\(\s*"(/[^"]*)"`},
		{Framework: "spring", Pattern: `@(Get|Post|Put|Patch|Delete|Request)Mapping\(`},
		{Framework: "rails", Pattern: `^\s*(get|post|put|patch|delete)\s+["']/[^"']*["']`},
	}
}

// Load reads configuration. An explicit path must exist; otherwise
// ./.codeqa/config.* and $HOME/.config/codeqa/config.* are tried and the
// defaults are used when neither exists. Environment variables with the
// CODEQA_ prefix override file values.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"logging.level", "logging.format", "logging.file",
		"history.enabled", "history.path",
		"llm.enabled", "llm.model", "llm.apiKey", "llm.baseURL",
		"workspace.localProject", "server.host", "server.port",
	} {
		_ = v.BindEnv(key)
	}

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(".", ".codeqa"))
		if home, err := paths.Home(); err == nil {
			v.AddConfigPath(home)
		}
	}

	cfg := DefaultConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || explicitPath != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		cfg.Source = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as "json" or "yaml".
func (c *Config) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(c)
	case "json", "":
		return json.MarshalIndent(c, "", "  ")
	default:
		return nil, &ConfigError{Field: "format", Message: "unsupported format " + format}
	}
}

// Save writes the configuration to path; the extension picks the format.
func (c *Config) Save(path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	data, err := c.Marshal(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var validSeverities = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Walk.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "walk.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.Metrics.TopN <= 0 {
		return &ConfigError{Field: "metrics.topN", Message: "must be positive"}
	}

	seen := make(map[string]bool, len(c.Security.Rules))
	for i, r := range c.Security.Rules {
		field := fmt.Sprintf("security.rules[%d]", i)
		if r.ID == "" {
			return &ConfigError{Field: field, Message: "rule id is required"}
		}
		if seen[r.ID] {
			return &ConfigError{Field: field, Message: "duplicate rule id " + r.ID}
		}
		seen[r.ID] = true
		if !validSeverities[strings.ToLower(r.Severity)] {
			return &ConfigError{Field: field, Message: "invalid severity " + r.Severity}
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return &ConfigError{Field: field, Message: err.Error()}
		}
	}

	for i, rp := range c.Architecture.Routes {
		if _, err := regexp.Compile(rp.Pattern); err != nil {
			return &ConfigError{Field: fmt.Sprintf("architecture.routes[%d]", i), Message: err.Error()}
		}
	}

	for i, m := range c.Tasks.Markers {
		if strings.TrimSpace(m) == "" {
			return &ConfigError{Field: fmt.Sprintf("tasks.markers[%d]", i), Message: "marker must not be empty"}
		}
	}

	if c.Dispatch.MaxTools < 0 {
		return &ConfigError{Field: "dispatch.maxTools", Message: "must not be negative"}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "out of range"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
