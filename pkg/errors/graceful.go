// Package errors provides startup error reporting for the command-line
// tools. The handler writes to stderr with the standard library logger
// because the failures it reports (bad flags, unreadable muttrc, broken
// format templates) typically happen before the structured logger has
// been initialized from the configuration.
package errors

import (
	"fmt"
	"log"
	"os"
)

// GracefulError ties a failure to the operation that was being attempted,
// so "inspect 'mail.eml'" failures read differently from server failures.
type GracefulError struct {
	Operation string
	Err       error
}

func (g *GracefulError) Error() string {
	return fmt.Sprintf("operation '%s' failed: %v", g.Operation, g.Err)
}

func (g *GracefulError) Unwrap() error {
	return g.Err
}

// ErrorHandler reports fatal startup errors and hands the caller an exit
// code. Errors are queued on a channel rather than calling os.Exit
// directly, so deferred cleanup in main still runs.
type ErrorHandler struct {
	exitChannel chan int
	logger      *log.Logger
}

func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		exitChannel: make(chan int, 1),
		logger:      log.New(os.Stderr, "[ERROR] ", log.LstdFlags),
	}
}

// fail queues an exit code without blocking; the first failure wins.
func (eh *ErrorHandler) fail(code int) {
	select {
	case eh.exitChannel <- code:
	default:
	}
}

// FatalError reports an unrecoverable failure of a named operation.
func (eh *ErrorHandler) FatalError(operation string, err error) {
	eh.logger.Printf("FATAL: %v", &GracefulError{Operation: operation, Err: err})
	eh.fail(1)
}

// ConfigError reports a configuration file that could not be loaded,
// distinguishing a missing file from one that failed to parse.
func (eh *ErrorHandler) ConfigError(configPath string, err error) {
	if os.IsNotExist(err) {
		eh.logger.Printf("ERROR: configuration file '%s' not found: %v", configPath, err)
	} else {
		eh.logger.Printf("ERROR: failed to parse configuration file '%s': %v", configPath, err)
	}
	eh.fail(1)
}

// ValidationError reports a configuration value that parsed but is unusable.
func (eh *ErrorHandler) ValidationError(field string, err error) {
	eh.logger.Printf("ERROR: invalid configuration - %s: %v", field, err)
	eh.fail(1)
}

// WaitForExit blocks until a failure has been reported and returns its
// exit code.
func (eh *ErrorHandler) WaitForExit() int {
	return <-eh.exitChannel
}
