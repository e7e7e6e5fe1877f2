package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang/snappy"

	ncerr "telnetload/internal/errors"
	"telnetload/internal/metrics"
	"telnetload/internal/session"
)

// CompressedExt marks report paths written with snappy framing.
const CompressedExt = ".sz"

// Meta describes the run a report belongs to.
type Meta struct {
	Target   string
	Clients  int
	Started  time.Time
	Finished time.Time
}

// Document is the JSON report layout.
type Document struct {
	Started   time.Time        `json:"started"`
	Finished  time.Time        `json:"finished"`
	Target    string           `json:"target"`
	Clients   int              `json:"clients"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Metrics   metrics.Snapshot `json:"metrics"`
	Sessions  []SessionEntry   `json:"sessions"`
}

// SessionEntry is one client in the report.
type SessionEntry struct {
	ID         int    `json:"id"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	Op         string `json:"op,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	Iterations int    `json:"iterations"`
	Duration   string `json:"duration"`
}

// Build assembles a Document.  Clients is the configured count, which
// exceeds len(results) when the run was interrupted before every
// client was launched.
func Build(meta Meta, results []session.Result, snap metrics.Snapshot) Document {
	sum := Summarize(results)
	doc := Document{
		Started:   meta.Started,
		Finished:  meta.Finished,
		Target:    meta.Target,
		Clients:   meta.Clients,
		Succeeded: sum.Succeeded,
		Failed:    sum.Failed,
		Metrics:   snap,
		Sessions:  make([]SessionEntry, len(results)),
	}
	for i, r := range results {
		e := SessionEntry{
			ID:         r.ID,
			OK:         r.OK(),
			Op:         r.Op(),
			Retryable:  ncerr.IsRetryable(r.Err),
			Iterations: r.Iterations,
			Duration:   r.Duration().Round(time.Millisecond).String(),
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		doc.Sessions[i] = e
	}
	return doc
}

// WriteFile writes doc to path as indented JSON, snappy-framed when
// path ends in CompressedExt.
func WriteFile(path string, doc Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()

	if strings.HasSuffix(path, CompressedExt) {
		zw := snappy.NewBufferedWriter(f)
		if err := Encode(zw, doc); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("flush report: %w", err)
		}
		return nil
	}

	bw := bufio.NewWriter(f)
	if err := Encode(bw, doc); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// Encode writes doc to w as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// ReadFile loads a report written by WriteFile, undoing the snappy
// framing for CompressedExt paths.  Plain snappy tools cannot read the
// framed stream, so this is the supported way back to JSON.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedExt) {
		r = snappy.NewReader(f)
	}
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &doc, nil
}
