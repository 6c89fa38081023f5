// Package backend connects the configuration interpreter's subscribe-to
// and unsubscribe-from commands to a live IMAP server.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"

	"github.com/neomutt/neomutt-sub017/config"
	"github.com/neomutt/neomutt-sub017/logger"
)

// IMAP manages folder subscriptions on a remote IMAP server. It dials
// lazily on first use and keeps the connection for subsequent commands.
// It implements rc.Subscriber.
type IMAP struct {
	host     string
	tls      bool
	username string
	password string

	mu     sync.Mutex
	client *imapclient.Client
}

// NewIMAP builds a subscription backend from configuration. The URL
// scheme selects the transport: imap:// for plaintext (port 143 by
// default), imaps:// for TLS (port 993 by default).
func NewIMAP(cfg *config.IMAPConfig) (*IMAP, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP URL %q: %w", cfg.URL, err)
	}

	var useTLS bool
	var defaultPort string
	switch u.Scheme {
	case "imap":
		useTLS = false
		defaultPort = "143"
	case "imaps":
		useTLS = true
		defaultPort = "993"
	default:
		return nil, fmt.Errorf("unsupported IMAP URL scheme %q", u.Scheme)
	}

	host := u.Host
	if u.Port() == "" {
		host = u.Hostname() + ":" + defaultPort
	}

	username := cfg.Username
	password := cfg.Password
	if u.User != nil {
		if username == "" {
			username = u.User.Username()
		}
		if pw, ok := u.User.Password(); ok && password == "" {
			password = pw
		}
	}

	return &IMAP{
		host:     host,
		tls:      useTLS,
		username: username,
		password: password,
	}, nil
}

// connect dials and authenticates, reusing an existing session. The
// caller must hold i.mu.
func (i *IMAP) connect() (*imapclient.Client, error) {
	if i.client != nil {
		return i.client, nil
	}

	var c *imapclient.Client
	var err error
	if i.tls {
		c, err = imapclient.DialTLS(i.host, nil)
	} else {
		c, err = imapclient.DialInsecure(i.host, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", i.host, err)
	}

	if i.username != "" {
		auth := sasl.NewPlainClient("", i.username, i.password)
		if err := c.Authenticate(auth); err != nil {
			// Some servers only advertise LOGIN.
			if loginErr := c.Login(i.username, i.password).Wait(); loginErr != nil {
				c.Close()
				return nil, fmt.Errorf("authenticating as %s: %w", i.username, err)
			}
		}
	}

	logger.Info("BACKEND: connected to IMAP server", "host", i.host, "tls", i.tls)
	i.client = c
	return c, nil
}

// run executes an IMAP command under the context deadline. go-imap
// commands have no context parameter, so the wait happens in a
// goroutine; on cancellation the connection is dropped to unblock it.
func (i *IMAP) run(ctx context.Context, fn func(c *imapclient.Client) error) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := i.connect()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn(c) }()

	select {
	case err := <-done:
		if err != nil {
			// A failed command may leave the session unusable.
			i.reset()
		}
		return err
	case <-ctx.Done():
		i.reset()
		return ctx.Err()
	}
}

// reset drops the current session so the next command redials. The
// caller must hold i.mu.
func (i *IMAP) reset() {
	if i.client != nil {
		i.client.Close()
		i.client = nil
	}
}

// Subscribe adds the mailbox to the server's subscription list.
func (i *IMAP) Subscribe(ctx context.Context, mailbox string) error {
	logger.Debug("BACKEND: subscribe", "mailbox", mailbox)
	return i.run(ctx, func(c *imapclient.Client) error {
		return c.Subscribe(mailbox).Wait()
	})
}

// Unsubscribe removes the mailbox from the server's subscription list.
func (i *IMAP) Unsubscribe(ctx context.Context, mailbox string) error {
	logger.Debug("BACKEND: unsubscribe", "mailbox", mailbox)
	return i.run(ctx, func(c *imapclient.Client) error {
		return c.Unsubscribe(mailbox).Wait()
	})
}

// Close logs out and drops the connection.
func (i *IMAP) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.client == nil {
		return nil
	}
	err := i.client.Logout().Wait()
	i.client.Close()
	i.client = nil
	return err
}
