package config

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Load resolves the full configuration: defaults, then the YAML file named
// by -config or SQLIHUNTER_CONFIG, then SQLIHUNTER_* variables, then flags
// the user actually set. The result is validated.
func Load(args []string, lookup LookupFunc, stderr io.Writer) (*Config, error) {
	fs, fv := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	configPath := fv.ConfigPath
	if configPath == "" {
		configPath, _ = lookup(EnvConfigPath)
	}
	if configPath != "" {
		if err := LoadFile(configPath, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigPath = configPath
	}

	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := fv.applySet(fs, cfg); err != nil {
		return nil, err
	}

	// Positional domain, as in `sqlihunter example.com`
	if cfg.Domain == "" && cfg.ListFile == "" && fs.NArg() > 0 {
		cfg.Domain = fs.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromOS is Load for the running process
func LoadFromOS() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv, os.Stderr)
}

// flagValues holds raw flag values before they are merged
type flagValues struct {
	Config
	scannerArgs string
	allParams   bool
}

func newFlagSet(stderr io.Writer) (*flag.FlagSet, *flagValues) {
	fv := &flagValues{Config: *Default()}
	fs := flag.NewFlagSet("sqlihunter", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&fv.Domain, "d", "", "Target domain to collect URLs for")
	fs.StringVar(&fv.Domain, "domain", "", "Target domain (long form of -d)")
	fs.StringVar(&fv.ListFile, "l", "", "File containing one domain per line")
	fs.StringVar(&fv.ListFile, "list", "", "Domain list file (long form of -l)")
	fs.StringVar(&fv.OutputRoot, "o", fv.OutputRoot, "Directory the per-domain output folders are created in")
	fs.StringVar(&fv.OutputRoot, "output", fv.OutputRoot, "Output root (long form of -o)")
	fs.Float64Var(&fv.DelaySeconds, "delay", fv.DelaySeconds, "Seconds to wait between archive requests")
	fs.IntVar(&fv.TimeoutSeconds, "timeout", fv.TimeoutSeconds, "Archive request timeout in seconds")
	fs.IntVar(&fv.MaxPages, "max-pages", fv.MaxPages, "Resume-key pages to follow per domain (1 = single query)")
	fs.BoolVar(&fv.UseProxy, "use-proxy", false, "Route archive requests (and sqlmap) through the local SOCKS5 proxy")
	fs.BoolVar(&fv.UseProxy, "use-proxychains", false, "Alias of -use-proxy")
	fs.StringVar(&fv.ProxyAddr, "proxy-addr", fv.ProxyAddr, "SOCKS5 proxy address (host:port)")
	fs.StringVar(&fv.DBPath, "db", fv.DBPath, "SQLite run ledger path (empty disables)")
	fs.StringVar(&fv.LogFile, "log-file", "", "Also write logs to this file (rotated)")
	fs.BoolVar(&fv.Verbose, "v", false, "Verbose (debug) logging")
	fs.StringVar(&fv.ScannerBinary, "scanner", fv.ScannerBinary, "Scanner executable")
	fs.StringVar(&fv.scannerArgs, "scanner-args", "", "Extra arguments appended to the scanner command (shell quoting applies)")
	fs.BoolVar(&fv.AutoRun, "yes", false, "Run the scanner without asking")
	fs.BoolVar(&fv.NoPrompt, "no-prompt", false, "Never run the scanner, only print the command")
	fs.BoolVar(&fv.allParams, "all-params", false, "Keep static assets and tracking-only URLs")
	fs.StringVar(&fv.ConfigPath, "config", "", "YAML configuration file")
	fs.BoolVar(&fv.History, "history", false, "Show the run ledger and exit")

	return fs, fv
}

// applySet copies only the flags present on the command line, so file and
// environment values survive when a flag is left at its default
func (fv *flagValues) applySet(fs *flag.FlagSet, cfg *Config) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d", "domain":
			cfg.Domain = fv.Domain
		case "l", "list":
			cfg.ListFile = fv.ListFile
		case "o", "output":
			cfg.OutputRoot = fv.OutputRoot
		case "delay":
			cfg.DelaySeconds = fv.DelaySeconds
		case "timeout":
			cfg.TimeoutSeconds = fv.TimeoutSeconds
		case "max-pages":
			cfg.MaxPages = fv.MaxPages
		case "use-proxy", "use-proxychains":
			cfg.UseProxy = fv.UseProxy
		case "proxy-addr":
			cfg.ProxyAddr = fv.ProxyAddr
		case "db":
			cfg.DBPath = fv.DBPath
		case "log-file":
			cfg.LogFile = fv.LogFile
		case "v":
			cfg.Verbose = fv.Verbose
		case "scanner":
			cfg.ScannerBinary = fv.ScannerBinary
		case "scanner-args":
			cfg.ScannerArgs, err = splitArgs(fv.scannerArgs)
		case "yes":
			cfg.AutoRun = fv.AutoRun
		case "no-prompt":
			cfg.NoPrompt = fv.NoPrompt
		case "all-params":
			cfg.SkipStatic = !fv.allParams
			cfg.SkipTracking = !fv.allParams
		case "history":
			cfg.History = fv.History
		}
	})
	return err
}
