// Package config loads the TOML configuration shared by the command-line
// tools. Every section has GetX accessors that apply defaults, so callers
// never need to special-case a missing value.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/neomutt/neomutt-sub017/consts"
	"github.com/neomutt/neomutt-sub017/helpers"
)

// LoggingConfig selects the log destination, format and level.
type LoggingConfig struct {
	Output string `toml:"output"` // "stdout", "stderr", "syslog", or a file path
	Format string `toml:"format"` // "json" or "console"
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
}

// ParseConfig tunes the message ingestion pipeline.
type ParseConfig struct {
	Charset           string   `toml:"charset"`            // local charset, default utf-8
	ConfigCharset     string   `toml:"config_charset"`     // charset of rc files, empty = no conversion
	AssumedCharset    []string `toml:"assumed_charset"`    // charsets tried for unlabelled 8-bit text
	Rfc2047Parameters bool     `toml:"rfc2047_parameters"` // decode encoded-words inside MIME parameters
	UserHeaders       bool     `toml:"user_headers"`       // keep unrecognized headers
	Weed              bool     `toml:"weed"`               // filter ignored headers
	SpamSeparator     string   `toml:"spam_separator"`     // joins multiple spam header matches
	MaxMimeDepth      int      `toml:"max_mime_depth"`
	MaxMimeParts      int      `toml:"max_mime_parts"`
}

// GetCharset returns the local charset, defaulting to UTF-8.
func (c *ParseConfig) GetCharset() string {
	if c.Charset == "" {
		return "utf-8"
	}
	return c.Charset
}

// GetAssumedCharset returns the unlabelled-text charset candidates,
// defaulting to us-ascii.
func (c *ParseConfig) GetAssumedCharset() []string {
	if len(c.AssumedCharset) == 0 {
		return []string{"us-ascii"}
	}
	return c.AssumedCharset
}

// GetSpamSeparator defaults to a comma.
func (c *ParseConfig) GetSpamSeparator() string {
	if c.SpamSeparator == "" {
		return ","
	}
	return c.SpamSeparator
}

func (c *ParseConfig) GetMaxMimeDepth() int {
	if c.MaxMimeDepth <= 0 {
		return consts.MaxMIMEDepth
	}
	return c.MaxMimeDepth
}

func (c *ParseConfig) GetMaxMimeParts() int {
	if c.MaxMimeParts <= 0 {
		return consts.MaxMIMEParts
	}
	return c.MaxMimeParts
}

// ServeConfig configures the HTTP inspection endpoint.
type ServeConfig struct {
	Addr         string `toml:"addr"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
}

func (c *ServeConfig) GetAddr() string {
	if c.Addr == "" {
		return ":8080"
	}
	return c.Addr
}

func (c *ServeConfig) GetReadTimeout() (time.Duration, error) {
	if c.ReadTimeout == "" {
		return 30 * time.Second, nil
	}
	return helpers.ParseDuration(c.ReadTimeout)
}

func (c *ServeConfig) GetWriteTimeout() (time.Duration, error) {
	if c.WriteTimeout == "" {
		return 30 * time.Second, nil
	}
	return helpers.ParseDuration(c.WriteTimeout)
}

// S3Config locates the object store messages are fetched from.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	TLS       bool   `toml:"tls"`
	Trace     bool   `toml:"trace"`
}

// Validate checks the fields a connection cannot do without.
func (c *S3Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("s3: endpoint is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("s3: bucket is required")
	}
	return nil
}

// IMAPConfig locates the mailbox-subscription backend.
type IMAPConfig struct {
	URL      string `toml:"url"` // imap://host:port or imaps://host:port
	Username string `toml:"username"`
	Password string `toml:"password"`
	Timeout  string `toml:"timeout"`
}

func (c *IMAPConfig) GetTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 30 * time.Second, nil
	}
	return helpers.ParseDuration(c.Timeout)
}

// Config is the top-level document.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Parse   ParseConfig   `toml:"parse"`
	Serve   ServeConfig   `toml:"serve"`
	S3      S3Config      `toml:"s3"`
	IMAP    IMAPConfig    `toml:"imap"`
}

// NewDefaultConfig returns a Config whose accessors yield the documented
// defaults.
func NewDefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Output: "stderr", Format: "console", Level: "info"},
	}
}

// Load reads a TOML config file into cfg. Unknown keys are reported but
// not fatal, so older tools keep working with newer files.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Printf("WARNING: unknown configuration key %q in %s", key.String(), path)
	}
	return nil
}
