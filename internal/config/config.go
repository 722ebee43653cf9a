// Package config handles command-line parsing, the optional config file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/spf13/viper"

	"github.com/joe/dir-sync/pkg/filesystem"
)

// Exported constants.
const (
	// DefaultAddr is where the gateway listens.
	DefaultAddr = "127.0.0.1:8080"
	// DefaultConfigName is looked up (as .yaml) in the working directory and
	// the data directory.
	DefaultConfigName = "dir-sync"
	// DefaultDataDir holds manifests and reports.
	DefaultDataDir = "./dir-sync-data"
	// DefaultLogFormat is the log formatter.
	DefaultLogFormat = "text"
	// DefaultLogLevel is the minimum level logged.
	DefaultLogLevel = "info"
	// DefaultPausePoll is how often a paused job checks for resume.
	DefaultPausePoll = 100 * time.Millisecond
	// DefaultPublishInterval throttles status updates.
	DefaultPublishInterval = 500 * time.Millisecond
	// EnvPrefix prefixes environment overrides, e.g. DIRSYNC_DATA_DIR.
	EnvPrefix = "DIRSYNC"
)

// Exported variables.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoCommand     = errors.New("no command given")
)

// ServeCmd runs the HTTP/WebSocket gateway.
type ServeCmd struct {
	Addr string `arg:"--addr" help:"listen address (default 127.0.0.1:8080)"`
}

// ScanCmd scans one root into a manifest.
type ScanCmd struct {
	Path  string `arg:"-p,--path,required" help:"directory to scan (local path or sftp://user@host[:port]/path)"`
	Label string `arg:"-l,--label,required" help:"collection label, e.g. source or destination"`
}

// DiffCmd compares two manifests.
type DiffCmd struct {
	Source string `arg:"--source,required" help:"source manifest id"`
	Dest   string `arg:"--dest,required" help:"destination manifest id"`
}

// CopyCmd copies the discrepancies of a diff report.
type CopyCmd struct {
	Report string `arg:"--report,required" help:"diff report id"`
}

// ListCmd prints stored manifests and reports.
type ListCmd struct{}

// Args is the command line.
type Args struct {
	Serve *ServeCmd `arg:"subcommand:serve" help:"serve the web API and event stream"`
	Scan  *ScanCmd  `arg:"subcommand:scan" help:"scan a directory into a manifest"`
	Diff  *DiffCmd  `arg:"subcommand:diff" help:"compare two manifests"`
	Copy  *CopyCmd  `arg:"subcommand:copy" help:"copy what a diff report lists"`
	List  *ListCmd  `arg:"subcommand:list" help:"list manifests and reports"`

	ConfigFile string   `arg:"-c,--config" help:"config file (default ./dir-sync.yaml)"`
	DataDir    string   `arg:"--data-dir" help:"directory holding manifests and reports"`
	Exclude    []string `arg:"--exclude,separate" help:"glob of paths to skip while scanning (repeatable)"`
	LogLevel   string   `arg:"--log-level" help:"debug|info|warn|error"`
	LogFormat  string   `arg:"--log-format" help:"text|json"`
	LogFile    string   `arg:"--log-file" help:"also write logs to this file"`
}

// Description returns the program description for go-arg.
func (Args) Description() string {
	return "Scan directory trees into manifests, diff them, and copy what is missing"
}

// Version returns the version string for go-arg.
func (Args) Version() string {
	return "dir-sync 1.0.0"
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Settings are the values a config file or the environment may set.
type Settings struct {
	DataDir         string        `mapstructure:"data_dir"`
	Addr            string        `mapstructure:"addr"`
	PublishInterval time.Duration `mapstructure:"publish_interval"`
	PausePoll       time.Duration `mapstructure:"pause_poll"`
	Exclude         []string      `mapstructure:"exclude"`
	Log             LogConfig     `mapstructure:"log"`
}

// Config is the merged configuration: flags over environment over file over
// defaults.
type Config struct {
	Settings

	Command string
	Args    Args
}

// Exported commands.
const (
	CommandServe = "serve"
	CommandScan  = "scan"
	CommandDiff  = "diff"
	CommandCopy  = "copy"
	CommandList  = "list"
)

// ParseFlags parses os.Args, exiting on --help or usage errors, and loads
// the merged configuration.
func ParseFlags() (*Config, error) {
	var args Args

	parser := arg.MustParse(&args)
	if parser.Subcommand() == nil {
		parser.Fail("a command is required: serve, scan, diff, copy or list")
	}

	return Load(&args)
}

// ParseArgs parses argv (without the program name). It is ParseFlags without
// the process exit.
func ParseArgs(argv []string) (*Args, error) {
	var args Args

	parser, err := arg.NewParser(arg.Config{Program: "dir-sync"}, &args)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	err = parser.Parse(argv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &args, nil
}

// Load reads the config file and environment and applies args on top.
func Load(args *Args) (*Config, error) {
	settings, err := LoadSettings(args.ConfigFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Settings: settings, Args: *args}
	cfg.applyArgs()

	return PostProcessConfig(cfg)
}

// LoadSettings reads configFile (or dir-sync.yaml from the working
// directory when empty) and DIRSYNC_* environment variables over the
// defaults. A missing default config file is not an error.
func LoadSettings(configFile string) (Settings, error) {
	v := viper.New()

	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("publish_interval", DefaultPublishInterval)
	v.SetDefault("pause_poll", DefaultPausePoll)
	v.SetDefault("exclude", []string{})
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var settings Settings

	err = v.Unmarshal(&settings)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return settings, nil
}

// PostProcessConfig validates a merged config and fills in the command name.
func PostProcessConfig(cfg *Config) (*Config, error) {
	cfg.Command = cfg.Args.command()
	if cfg.Command == "" {
		return nil, ErrNoCommand
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("%w: data dir is empty", ErrInvalidConfig)
	}

	if cfg.PublishInterval <= 0 || cfg.PausePoll <= 0 {
		return nil, fmt.Errorf("%w: publish_interval and pause_poll must be positive", ErrInvalidConfig)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, cfg.Log.Level)
	}

	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return nil, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, cfg.Log.Format)
	}

	if cfg.Args.Scan != nil {
		err := validateRoot(cfg.Args.Scan.Path)
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *Config) applyArgs() {
	args := cfg.Args

	if args.DataDir != "" {
		cfg.DataDir = args.DataDir
	}

	if args.Serve != nil && args.Serve.Addr != "" {
		cfg.Addr = args.Serve.Addr
	}

	if len(args.Exclude) > 0 {
		cfg.Exclude = args.Exclude
	}

	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}

	if args.LogFormat != "" {
		cfg.Log.Format = args.LogFormat
	}

	if args.LogFile != "" {
		cfg.Log.File = args.LogFile
	}
}

func (args Args) command() string {
	switch {
	case args.Serve != nil:
		return CommandServe
	case args.Scan != nil:
		return CommandScan
	case args.Diff != nil:
		return CommandDiff
	case args.Copy != nil:
		return CommandCopy
	case args.List != nil:
		return CommandList
	default:
		return ""
	}
}

// validateRoot checks sftp:// roots for well-formedness. Local roots are
// checked when the scan starts.
func validateRoot(root string) error {
	if !filesystem.IsRemotePath(root) {
		return nil
	}

	_, err := filesystem.ParsePath(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}
