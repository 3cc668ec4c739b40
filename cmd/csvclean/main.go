package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csvclean/internal/config"
	"csvclean/internal/logger"
	"csvclean/internal/schema"
	"csvclean/internal/storage"

	// register all backends with the storage factory.
	_ "csvclean/internal/storage/all"
)

// cliFlags holds the raw command-line values. Empty strings mean "not set"
// so that environment and config file values can show through.
type cliFlags struct {
	configPath     string
	envFile        string
	input          string
	out            string
	rejects        string
	metricsBackend string
	pushgatewayURL string
	logMode        string
	validate       bool
	verbose        bool
}

// main loads configuration (flag → env → config file → default), validates
// it and runs read → validate → clean → aggregate → write (→ store).
func main() {
	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := config.LoadEnv(envFiles(f)...); err != nil {
		fatalf("load env: %v", err)
	}

	p, err := resolveConfig(f, os.LookupEnv)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p, storage.Kinds())
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid")
	}
	if f.validate {
		fmt.Fprintln(os.Stderr, "configuration is valid")
		os.Exit(0)
	}

	log, err := logger.New(f.logMode, f.verbose)
	if err != nil {
		fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	flush := setupMetrics(p, log)

	start := time.Now()
	sum, err := run(ctx, p, log)
	flush()
	stop()

	if err != nil {
		log.Sync()
		var se *schema.Error
		if errors.As(err, &se) {
			fatalf("Şema hatası: %v", se)
		}
		fatalf("%v", err)
	}

	log.Info("csvclean: done",
		"read", sum.Read,
		"valid", sum.Valid,
		"dropped", sum.Dropped,
		"stored", sum.Stored,
		"out", p.Output.Dir,
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	log.Sync()
}

// parseFlags parses args into cliFlags. Usage and parse errors go to stderr.
func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("csvclean", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.input, "input", "", "input CSV path or http(s) URL (UTF-8)")
	fs.StringVar(&f.out, "out", "", "output directory")
	fs.StringVar(&f.configPath, "config", "", "pipeline config path (.json, .yaml or .yml)")
	fs.StringVar(&f.envFile, "env-file", "", "dotenv file to load (default .env)")
	fs.StringVar(&f.rejects, "rejects", "", "write dropped rows to this CSV file")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (overrides env METRICS_BACKEND)")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&f.logMode, "log-mode", "dev", "log format: dev or prod")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable verbose logs")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		fmt.Fprintln(stderr, err)
		return cliFlags{}, err
	}
	return f, nil
}

func envFiles(f cliFlags) []string {
	if f.envFile == "" {
		return nil
	}
	return []string{f.envFile}
}

// resolveConfig builds the effective pipeline: defaults, then the config
// file, then environment variables, then flags.
func resolveConfig(f cliFlags, lookup func(string) (string, bool)) (config.Pipeline, error) {
	p := config.Default()
	if f.configPath != "" {
		var err error
		if p, err = config.Load(f.configPath); err != nil {
			return config.Pipeline{}, err
		}
	}
	if err := config.ApplyEnv(&p, lookup); err != nil {
		return config.Pipeline{}, err
	}

	if f.input != "" {
		config.SetInput(&p.Source, f.input)
	}
	if f.out != "" {
		p.Output.Dir = f.out
	}
	if f.rejects != "" {
		p.RejectsPath = f.rejects
	}
	if f.metricsBackend != "" {
		p.Metrics.Backend = f.metricsBackend
	}
	if f.pushgatewayURL != "" {
		p.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	return p, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
