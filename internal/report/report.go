// Package report builds and renders the operator-facing startup report: the
// resolved configuration plus a sorted view of the ambient environment, with
// secret-bearing values redacted by key pattern.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/avoronin/runway/internal/config"
)

const (
	configuredMarker = "<configured>"
	unsetMarker      = "<unset>"
)

// sensitiveMarkers is the denylist of key-name fragments whose values are
// never rendered verbatim. Matching is case-insensitive.
var sensitiveMarkers = []string{
	"URL",
	"SECRET",
	"KEY",
	"TOKEN",
	"PASSWORD",
	"DSN",
	"CREDENTIAL",
}

// Sensitive reports whether an environment key looks secret-bearing and must
// be redacted. New sensitive patterns go on the denylist above; call sites
// never do their own string checks.
func Sensitive(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// Entry is one environment variable as it will be rendered.
type Entry struct {
	Key      string
	Value    string
	Redacted bool
}

// Report is a write-once snapshot of the resolved configuration and the
// ambient environment, produced before the listener binds.
type Report struct {
	Port           int
	Host           string
	LogLevel       string
	Environment    string
	ReloadEnabled  bool
	WatchPaths     []string
	HasDatabaseURL bool
	Env            []Entry
}

// Build derives a Report from the resolved configuration and the same
// environment snapshot the resolver consumed. Entries keep snapshot order,
// which is sorted by key.
func Build(cfg config.Config, snap config.Snapshot) Report {
	r := Report{
		Port:           cfg.Port,
		Host:           cfg.Host,
		LogLevel:       cfg.LogLevel,
		Environment:    cfg.Environment,
		ReloadEnabled:  cfg.ReloadEnabled,
		WatchPaths:     cfg.WatchPaths,
		HasDatabaseURL: cfg.HasDatabaseURL,
	}

	for _, key := range snap.Keys() {
		entry := Entry{Key: key}
		if Sensitive(key) {
			entry.Redacted = true
			entry.Value = configuredMarker
		} else {
			entry.Value = snap.Get(key)
		}
		r.Env = append(r.Env, entry)
	}

	return r
}

// Render writes the report line by line. Rendering is best-effort: a write
// failure is swallowed after a fallback notice on stderr, and startup always
// proceeds.
func (r Report) Render(w io.Writer) {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "startup report")
	fmt.Fprintf(&buf, "  port:           %d\n", r.Port)
	fmt.Fprintf(&buf, "  host:           %s\n", r.Host)
	fmt.Fprintf(&buf, "  logLevel:       %s\n", r.LogLevel)
	fmt.Fprintf(&buf, "  environment:    %s\n", orPlaceholder(r.Environment))
	fmt.Fprintf(&buf, "  reloadEnabled:  %t\n", r.ReloadEnabled)
	fmt.Fprintf(&buf, "  watchPaths:     %s\n", orPlaceholder(strings.Join(r.WatchPaths, ", ")))
	fmt.Fprintf(&buf, "  hasDatabaseUrl: %t\n", r.HasDatabaseURL)
	fmt.Fprintf(&buf, "  databaseUrl:    %s\n", presence(r.HasDatabaseURL))
	fmt.Fprintln(&buf, "environment:")
	for _, entry := range r.Env {
		fmt.Fprintf(&buf, "  %s=%s\n", entry.Key, entry.Value)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "startup report unavailable: %v\n", err)
	}
}

func presence(configured bool) string {
	if configured {
		return configuredMarker
	}
	return unsetMarker
}

func orPlaceholder(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
