package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/neomutt/neomutt-sub017/backend"
	"github.com/neomutt/neomutt-sub017/buffer"
	"github.com/neomutt/neomutt-sub017/config"
	"github.com/neomutt/neomutt-sub017/logger"
	"github.com/neomutt/neomutt-sub017/pkg/errors"
	"github.com/neomutt/neomutt-sub017/rc"
	"github.com/neomutt/neomutt-sub017/vardefs"
)

// Version information, injected at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes: errors beat warnings.
const (
	exitOK       = 0
	exitErrors   = 1
	exitWarnings = 2
)

// commandList collects repeated -e flags in order.
type commandList []string

func (c *commandList) String() string { return strings.Join(*c, "; ") }

func (c *commandList) Set(s string) error {
	*c = append(*c, s)
	return nil
}

func main() {
	errorHandler := errors.NewErrorHandler()
	cfg := config.NewDefaultConfig()

	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.BoolVar(showVersion, "v", false, "Show version information and exit")
	configPath := flag.String("config", "config.toml", "Path to TOML configuration file")
	var commands commandList
	flag.Var(&commands, "e", "Run a configuration command (may be repeated)")
	dump := flag.String("dump", "", "Dump variables after running: 'changed' or 'all'")
	query := flag.String("query", "", "Query a variable's value and exit status")
	noRc := flag.Bool("norc", false, "Do not read the default rc file")
	imapURL := flag.String("imap-url", "", "IMAP server URL for subscribe-to/unsubscribe-from")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mutt-rc version %s (commit: %s, built at: %s)\n", version, commit, date)
		os.Exit(exitOK)
	}

	loadConfig(*configPath, &cfg, errorHandler)

	logFile, err := logger.Initialize(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "MUTT-RC: Warning initializing logger: %v\n", err)
	}
	if logFile != nil {
		defer func(f *os.File) {
			logger.Sync()
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "MUTT-RC: Error closing log file %s: %v\n", f.Name(), err)
			}
		}(logFile)
	} else {
		defer logger.Sync()
	}

	logger.Infof("mutt-rc starting (version %s, commit: %s, built: %s)", version, commit, date)

	cs, err := vardefs.NewSet()
	if err != nil {
		errorHandler.FatalError("register variable definitions", err)
		os.Exit(errorHandler.WaitForExit())
	}

	st := rc.NewState(cs.Global())
	st.Shell = runShell

	url := *imapURL
	if url == "" {
		url = cfg.IMAP.URL
	}
	if url != "" {
		imapCfg := cfg.IMAP
		imapCfg.URL = url
		be, err := backend.NewIMAP(&imapCfg)
		if err != nil {
			errorHandler.FatalError(fmt.Sprintf("connect IMAP backend '%s'", url), err)
			os.Exit(errorHandler.WaitForExit())
		}
		defer be.Close()
		st.Backend = be
		st.BackendTimeout, _ = cfg.IMAP.GetTimeout()
		logger.Infof("IMAP backend configured: %s", url)
	}

	exit := exitOK
	worse := func(code int) {
		switch {
		case code == exitErrors:
			exit = exitErrors
		case code == exitWarnings && exit == exitOK:
			exit = exitWarnings
		}
	}

	files := flag.Args()
	if len(files) == 0 && !*noRc {
		if path, ok := defaultRcFile(); ok {
			files = []string{path}
		}
	}

	for _, path := range files {
		msg := buffer.Get()
		switch st.Source(path, msg) {
		case 0:
		case -2:
			fmt.Fprintln(os.Stderr, msg.String())
			worse(exitWarnings)
		default:
			fmt.Fprintln(os.Stderr, msg.String())
			worse(exitErrors)
		}
		buffer.Release(msg)
	}
	reportErrors(st)

	for _, cmd := range commands {
		res, msg := st.RunLine(cmd)
		switch res {
		case rc.Warning:
			fmt.Fprintln(os.Stderr, msg)
			worse(exitWarnings)
		case rc.Error:
			fmt.Fprintln(os.Stderr, msg)
			worse(exitErrors)
		default:
			if msg != "" {
				fmt.Println(msg)
			}
		}
	}

	if *query != "" {
		res, msg := st.RunLine("set ?" + *query)
		if res == rc.Success {
			fmt.Println(msg)
		} else {
			fmt.Fprintln(os.Stderr, msg)
			worse(exitErrors)
		}
	}

	switch *dump {
	case "":
	case "changed":
		fmt.Print(st.DumpVars(true))
	case "all":
		fmt.Print(st.DumpVars(false))
	default:
		fmt.Fprintf(os.Stderr, "mutt-rc: invalid -dump mode '%s' (want 'changed' or 'all')\n", *dump)
		worse(exitErrors)
	}

	if len(st.PendingSubscriptions) > 0 {
		logger.Warnf("%d subscription(s) recorded without a backend: %s",
			len(st.PendingSubscriptions), strings.Join(st.PendingSubscriptions, ", "))
	}

	os.Exit(exit)
}

// loadConfig loads the TOML configuration. A missing default config file is
// fine; a missing user-specified one is fatal.
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

// defaultRcFile picks the first rc file that exists in the usual spots.
func defaultRcFile() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	for _, p := range []string{
		filepath.Join(home, ".neomuttrc"),
		filepath.Join(home, ".config", "neomutt", "neomuttrc"),
		filepath.Join(home, ".muttrc"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// reportErrors logs every problem the interpreter recorded from sourced
// files. The exit code is already decided by the Source return values.
func reportErrors(st *rc.State) {
	for _, e := range st.Errors {
		if e.Severity == rc.SeverityError {
			logger.Errorf("%s", e.String())
		} else {
			logger.Warnf("%s", e.String())
		}
	}
}

// runShell backs backtick substitution and pipe sources.
func runShell(command string) (string, error) {
	out, err := exec.Command("/bin/sh", "-c", command).Output()
	return string(out), err
}
