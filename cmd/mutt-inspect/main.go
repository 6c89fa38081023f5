package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/emersion/go-mbox"

	"github.com/neomutt/neomutt-sub017/config"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/expando"
	"github.com/neomutt/neomutt-sub017/logger"
	"github.com/neomutt/neomutt-sub017/pkg/errors"
	"github.com/neomutt/neomutt-sub017/rfc2047"
	"github.com/neomutt/neomutt-sub017/storage"
	"github.com/neomutt/neomutt-sub017/vardefs"
)

// Version information, injected at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	errorHandler := errors.NewErrorHandler()
	cfg := config.NewDefaultConfig()

	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.BoolVar(showVersion, "v", false, "Show version information and exit")
	configPath := flag.String("config", "config.toml", "Path to TOML configuration file")
	mboxMode := flag.Bool("mbox", false, "Treat the input file as an mbox and inspect every message")
	s3Key := flag.String("s3", "", "Inspect the message stored under this S3 key")
	digest := flag.Bool("digest", false, "Print a BLAKE3 digest for every leaf part")
	render := flag.Bool("render", false, "Render text/enriched and text/html leaves as plain text")
	format := flag.String("format", "", "Render one line per message from this index format template")
	addr := flag.String("addr", "", "Run an HTTP parse server on this address instead of inspecting files")
	width := flag.Int("width", 80, "Display width for -format output")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mutt-inspect version %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	loadConfig(*configPath, &cfg, errorHandler)

	logFile, err := logger.Initialize(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "MUTT-INSPECT: Warning initializing logger: %v\n", err)
	}
	if logFile != nil {
		defer func(f *os.File) {
			logger.Sync()
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "MUTT-INSPECT: Error closing log file %s: %v\n", f.Name(), err)
			}
		}(logFile)
	} else {
		defer logger.Sync()
	}

	ins := &inspector{
		opt:     parseOptions(&cfg.Parse),
		digest:  *digest,
		render:  *render,
		maxCols: *width,
		out:     os.Stdout,
	}
	if *format != "" {
		exp, err := expando.Parse(*format, vardefs.IndexDefs)
		if err != nil {
			errorHandler.ValidationError("format template", err)
			os.Exit(errorHandler.WaitForExit())
		}
		ins.format = exp
	}

	if *addr != "" {
		runServe(*addr, &cfg, ins, errorHandler)
		return
	}
	if len(flag.Args()) == 0 && *s3Key == "" {
		fmt.Fprintln(os.Stderr, "mutt-inspect: no input: give message files, -mbox FILE, -s3 KEY or -addr")
		flag.Usage()
		os.Exit(2)
	}

	if *s3Key != "" {
		if err := inspectS3(&cfg.S3, *s3Key, ins); err != nil {
			errorHandler.FatalError(fmt.Sprintf("inspect S3 object '%s'", *s3Key), err)
			os.Exit(errorHandler.WaitForExit())
		}
		return
	}

	for _, path := range flag.Args() {
		var err error
		if *mboxMode {
			err = inspectMbox(path, ins)
		} else {
			err = inspectFile(path, ins)
		}
		if err != nil {
			errorHandler.FatalError(fmt.Sprintf("inspect '%s'", path), err)
			os.Exit(errorHandler.WaitForExit())
		}
	}
}

// loadConfig loads the TOML configuration. A missing default config file
// is fine; a missing user-specified one is fatal.
func loadConfig(configPath string, cfg *config.Config, errorHandler *errors.ErrorHandler) {
	if err := config.Load(configPath, cfg); err != nil {
		if os.IsNotExist(err) && configPath == "config.toml" {
			return
		}
		errorHandler.ConfigError(configPath, err)
		os.Exit(errorHandler.WaitForExit())
	}
	logger.Infof("loaded configuration from %s", configPath)
}

// parseOptions maps the [parse] configuration section onto the parser's
// knobs.
func parseOptions(pc *config.ParseConfig) *email.ParseOptions {
	return &email.ParseOptions{
		RFC2047:       rfc2047Options(pc),
		RFC2047Params: pc.Rfc2047Parameters,
		SpamSeparator: pc.GetSpamSeparator(),
	}
}

func inspectFile(path string, ins *inspector) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ins.Inspect(f, 1)
}

// inspectMbox walks an mbox file message by message. Messages are read
// into memory so the MIME parser can seek.
func inspectMbox(path string, ins *inspector) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mr := mbox.NewReader(f)
	for num := 1; ; num++ {
		m, err := mr.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading mbox message %d: %w", num, err)
		}
		data, err := io.ReadAll(m)
		if err != nil {
			return fmt.Errorf("reading mbox message %d: %w", num, err)
		}
		if ins.format == nil && num > 1 {
			fmt.Fprintln(ins.out)
		}
		if err := ins.Inspect(bytes.NewReader(data), num); err != nil {
			logger.Warnf("mbox message %d: %v", num, err)
		}
	}
}

// inspectS3 fetches one stored message and inspects it.
func inspectS3(s3cfg *config.S3Config, key string, ins *inspector) error {
	store, err := storage.New(s3cfg)
	if err != nil {
		return err
	}
	rsc, err := store.GetMessage(context.Background(), key)
	if err != nil {
		return err
	}
	defer rsc.Close()
	return ins.Inspect(rsc, 1)
}

// runServe runs the HTTP parse server until interrupted.
func runServe(addr string, cfg *config.Config, ins *inspector, errorHandler *errors.ErrorHandler) {
	logger.Infof("mutt-inspect serving (version %s, commit: %s, built: %s)", version, commit, date)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		logger.Infof("Received signal: %s, shutting down...", sig)
		cancel()
	}()

	if err := serve(ctx, addr, &cfg.Serve, ins); err != nil {
		errorHandler.FatalError("HTTP parse server", err)
		os.Exit(errorHandler.WaitForExit())
	}
}

// rfc2047Options builds the decoder options from the parse section.
func rfc2047Options(pc *config.ParseConfig) rfc2047.Options {
	return rfc2047.Options{
		Charset:        pc.GetCharset(),
		AssumedCharset: strings.Join(pc.GetAssumedCharset(), ":"),
	}
}
