package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neomutt/neomutt-sub017/config"
	"github.com/neomutt/neomutt-sub017/email"
	"github.com/neomutt/neomutt-sub017/logger"
	"github.com/neomutt/neomutt-sub017/storage"
)

// maxParseBody bounds the message size accepted by POST /parse.
const maxParseBody = 50 * 1024 * 1024

// envelopeJSON is the wire form of a parsed envelope.
type envelopeJSON struct {
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Cc        string   `json:"cc,omitempty"`
	ReplyTo   string   `json:"reply_to,omitempty"`
	Subject   string   `json:"subject,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
	Date      string   `json:"date,omitempty"`
	DateSent  int64    `json:"date_sent,omitempty"`
	ListPost  string   `json:"list_post,omitempty"`
	Spam      string   `json:"spam,omitempty"`
	UserHdrs  []string `json:"user_headers,omitempty"`
	Flags     string   `json:"flags,omitempty"`
}

// partJSON is the wire form of one MIME tree node.
type partJSON struct {
	Type        string     `json:"type"`
	Subtype     string     `json:"subtype"`
	Encoding    string     `json:"encoding"`
	Charset     string     `json:"charset,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	Description string     `json:"description,omitempty"`
	Offset      int64      `json:"offset"`
	Length      int64      `json:"length"`
	Digest      string     `json:"digest,omitempty"`
	Parts       []partJSON `json:"parts,omitempty"`
}

type parseResponse struct {
	Envelope envelopeJSON `json:"envelope"`
	Body     partJSON     `json:"body"`
}

func envelopeToJSON(e *email.Email) envelopeJSON {
	env := e.Env
	return envelopeJSON{
		From:      env.From.Write(),
		To:        env.To.Write(),
		Cc:        env.Cc.Write(),
		ReplyTo:   env.ReplyTo.Write(),
		Subject:   env.Subject,
		MessageID: env.MessageID,
		Date:      env.Date,
		DateSent:  e.DateSent,
		ListPost:  env.ListPost,
		Spam:      env.Spam,
		UserHdrs:  env.UserHdrs,
		Flags:     messageFlags(e),
	}
}

func partToJSON(rs io.ReadSeeker, b *email.Body, withDigest bool) partJSON {
	p := partJSON{
		Type:        b.Type.String(),
		Subtype:     b.Subtype,
		Encoding:    b.Encoding.String(),
		Filename:    b.DFilename,
		Description: b.Description,
		Offset:      b.Offset,
		Length:      b.Length,
	}
	if cs, ok := b.Parameter.Get("charset"); ok {
		p.Charset = cs
	}
	if withDigest && len(b.Parts) == 0 {
		if raw, err := readPart(rs, b); err == nil {
			p.Digest = storage.Digest(raw)
		}
	}
	for _, c := range b.Parts {
		p.Parts = append(p.Parts, partToJSON(rs, c, withDigest))
	}
	return p
}

// newRouter builds the HTTP surface of serve mode.
func newRouter(ins *inspector) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/parse", handleParse(ins)).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}

// handleParse accepts a raw RFC 5322 message body and answers with the
// parsed envelope and MIME tree.
func handleParse(ins *inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxParseBody))
		if err != nil {
			http.Error(w, "reading request body: "+err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		rs := bytes.NewReader(data)
		e, err := parseMessage(rs, ins.opt)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		resp := parseResponse{
			Envelope: envelopeToJSON(e),
			Body:     partToJSON(rs, e.Body, ins.digest),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(&resp); err != nil {
			logger.Errorf("SERVE: encoding parse response: %v", err)
		}
	}
}

// serve runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, addr string, cfg *config.ServeConfig, ins *inspector) error {
	if addr == "" {
		addr = cfg.GetAddr()
	}
	readTimeout, _ := cfg.GetReadTimeout()
	writeTimeout, _ := cfg.GetWriteTimeout()
	server := &http.Server{
		Addr:         addr,
		Handler:      newRouter(ins),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Infof("Shutting down HTTP server on %s...", addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("SERVE: shutdown error: %v", err)
		}
	}()

	logger.Infof("HTTP parse server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
