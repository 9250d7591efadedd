// Package connection holds the domain types describing how the shell reaches its backend.
package connection

import (
	"log/slog"
	"strings"
)

// Local storage keys holding the backend credentials.
const (
	StorageKeyURL     = "supabase_url"
	StorageKeyAnonKey = "supabase_anon_key"
)

// Source tells where resolved credentials came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceStorage Source = "storage"
	SourceBundled Source = "bundled"
)

// Credentials identify a backend project.
type Credentials struct {
	URL string
	Key string
}

// Complete reports whether both values are present.
func (c Credentials) Complete() bool {
	return c.URL != "" && c.Key != ""
}

// Trimmed returns the credentials with surrounding whitespace removed.
func (c Credentials) Trimmed() Credentials {
	return Credentials{URL: strings.TrimSpace(c.URL), Key: strings.TrimSpace(c.Key)}
}

// LogValue keeps the key out of logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", c.URL),
		slog.String("key", MaskKey(c.Key)),
	)
}

// Status is the resolved configuration state. It is replaced wholesale, never mutated.
type Status struct {
	Configured  bool
	Credentials Credentials
	Source      Source
	Error       string
}

// NotConfigured builds the status reported when no credentials exist.
func NotConfigured(msg string) Status {
	return Status{Source: SourceNone, Error: msg}
}

// ConfiguredFrom builds a configured status.
func ConfiguredFrom(src Source, creds Credentials) Status {
	return Status{Configured: true, Credentials: creds, Source: src}
}

// LogValue implements slog.LogValuer.
func (s Status) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Bool("configured", s.Configured),
		slog.String("source", string(s.Source)),
	}
	if s.Configured {
		attrs = append(attrs, slog.Any("credentials", s.Credentials))
	}
	if s.Error != "" {
		attrs = append(attrs, slog.String("error", s.Error))
	}
	return slog.GroupValue(attrs...)
}

// MaskKey shows only the first 6 and last 4 characters of a key.
func MaskKey(key string) string {
	const head, tail = 6, 4
	if key == "" {
		return ""
	}
	if len(key) <= head+tail {
		return strings.Repeat("*", len(key))
	}
	return key[:head] + "..." + key[len(key)-tail:]
}
