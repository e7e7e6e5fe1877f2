package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerr "telnetload/internal/errors"
	"telnetload/internal/metrics"
	"telnetload/internal/session"
)

func sampleResults() []session.Result {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []session.Result{
		{ID: 0, Iterations: 100, Started: start, Finished: start.Add(51 * time.Second)},
		{ID: 1, Err: ncerr.Wrap(ncerr.OpDial, "127.0.0.1:8080", errors.New("connection refused")), Started: start, Finished: start},
		{ID: 2, Err: ncerr.Wrap(ncerr.OpRead, "127.0.0.1:8080", errors.New("EOF")), Iterations: 4, Started: start, Finished: start.Add(2 * time.Second)},
		{ID: 3, Err: errors.New("boom"), Started: start, Finished: start},
	}
}

func TestConsole_OnlyFailures(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	for _, r := range sampleResults() {
		c.Record(r)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Client 1 failed: dial 127.0.0.1:8080: connection refused", lines[0])
	assert.Equal(t, "Client 2 failed: read 127.0.0.1:8080: EOF", lines[1])
	assert.Equal(t, "Client 3 failed: boom", lines[2])
}

func TestConsole_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.Record(session.Result{ID: id, Err: errors.New("x")})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 50)
	for _, l := range lines {
		assert.Regexp(t, `^Client \d+ failed: x$`, l)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 104, s.Iterations)
	assert.Equal(t, map[string]int{"dial": 1, "read": 1, "other": 1}, s.ByOp)
	assert.Equal(t, "4 clients: 1 succeeded, 3 failed, 104 round trips (dial=1 other=1 read=1)", s.String())

	empty := Summarize(nil)
	assert.Equal(t, "0 clients: 0 succeeded, 0 failed, 0 round trips", empty.String())
}

func TestBuild(t *testing.T) {
	results := sampleResults()
	meta := Meta{Target: "127.0.0.1:8080", Clients: 5, Started: results[0].Started, Finished: results[0].Finished}
	doc := Build(meta, results, metrics.Snapshot{CommandsSent: 104})

	assert.Equal(t, 5, doc.Clients)
	assert.Equal(t, 1, doc.Succeeded)
	assert.Equal(t, 3, doc.Failed)
	assert.Equal(t, int64(104), doc.Metrics.CommandsSent)
	require.Len(t, doc.Sessions, 4)

	assert.Equal(t, SessionEntry{ID: 0, OK: true, Iterations: 100, Duration: "51s"}, doc.Sessions[0])
	assert.Equal(t, "dial", doc.Sessions[1].Op)
	assert.Contains(t, doc.Sessions[1].Error, "connection refused")
	assert.Empty(t, doc.Sessions[3].Op)
	assert.False(t, doc.Sessions[1].Retryable)
}

func TestBuild_Retryable(t *testing.T) {
	results := []session.Result{
		{ID: 0, Err: &ncerr.NetworkError{Op: ncerr.OpRead, Addr: "lab:23", Err: errors.New("connection reset"), Retryable: true}},
		{ID: 1, Err: ncerr.Wrap(ncerr.OpRead, "lab:23", context.Canceled)},
		{ID: 2},
	}
	doc := Build(Meta{Target: "lab:23", Clients: 3}, results, metrics.Snapshot{})

	assert.True(t, doc.Sessions[0].Retryable)
	assert.False(t, doc.Sessions[1].Retryable, "cancellation is never retryable")
	assert.False(t, doc.Sessions[2].Retryable)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.Equal(t, 1, strings.Count(buf.String(), `"retryable": true`))
}

func TestWriteFile_RoundTrip(t *testing.T) {
	results := sampleResults()
	doc := Build(Meta{Target: "lab:23", Clients: 4}, results, metrics.Snapshot{})

	for _, name := range []string{"run.json", "run.json.sz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path, doc))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, doc.Target, got.Target)
			assert.Equal(t, doc.Sessions, got.Sessions)
		})
	}
}

func TestWriteFile_SnappyFraming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.sz")
	require.NoError(t, WriteFile(path, Build(Meta{Target: "lab:23"}, nil, metrics.Snapshot{})))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(raw, []byte("{")), "compressed report must not be plain JSON")

	var out bytes.Buffer
	_, err = out.ReadFrom(snappy.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"target": "lab:23"`)
}

func TestWriteFile_BadPath(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "run.json"), Document{})
	assert.ErrorContains(t, err, "create report")
}
