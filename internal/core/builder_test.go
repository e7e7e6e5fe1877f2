package core

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telnetload/config"
	"telnetload/internal/capability"
	"telnetload/internal/transport"
	"telnetload/util"
)

// TestBuild_Load verifies that the defaults produce a LoadMode that
// reproduces the stock script.
func TestBuild_Load(t *testing.T) {
	mode, err := Build(config.Defaults(), util.NewLogger(0), io.Discard)
	require.NoError(t, err)

	lm, ok := mode.(*LoadMode)
	require.True(t, ok, "expected *LoadMode, got %T", mode)
	assert.Equal(t, "127.0.0.1:8080", lm.Driver.Address)
	assert.Equal(t, 5000, lm.Driver.Clients)
	assert.Nil(t, lm.Driver.Backoff)
	assert.Nil(t, lm.Stats)
	assert.NotNil(t, lm.Driver.OnResult)
	assert.IsType(t, &transport.TCPDialer{}, lm.Driver.Dialer)

	ex, ok := lm.Driver.Capability.(*capability.Exchange)
	require.True(t, ok)
	assert.Equal(t, "show status", ex.Command)
	assert.Equal(t, "#", ex.Prompt)
	assert.Equal(t, 100, ex.Iterations)
	assert.Zero(t, ex.ReadTimeout)
}

func TestBuild_LoadOptions(t *testing.T) {
	cfg := config.Defaults()
	cfg.ConnectRetries = 2
	cfg.StatsAddr = "127.0.0.1:0"
	cfg.TunnelEnabled = true
	cfg.TunnelHost = "bastion"
	cfg.TunnelPort = 22

	mode, err := Build(cfg, util.NewLogger(0), io.Discard)
	require.NoError(t, err)
	lm := mode.(*LoadMode)

	require.NotNil(t, lm.Driver.Backoff)
	assert.Equal(t, 3, lm.Driver.Backoff.MaxAttempts)
	assert.NotNil(t, lm.Driver.Backoff.OnRetry)
	assert.NotNil(t, lm.Stats)
	assert.IsType(t, &transport.SSHDialer{}, lm.Driver.Dialer)
}

func TestBuild_NoDNS(t *testing.T) {
	cfg := config.Defaults()
	cfg.Host = "router.example.com"
	cfg.NoDNS = true

	_, err := Build(cfg, util.NewLogger(0), io.Discard)
	assert.ErrorContains(t, err, "DNS disabled")
}

func TestBuild_Serve(t *testing.T) {
	cfg := &config.Config{Serve: true, ListenPort: 2323, Prompt: "#"}
	mode, err := Build(cfg, util.NewLogger(0), io.Discard)
	require.NoError(t, err)

	sm, ok := mode.(*ServeMode)
	require.True(t, ok, "expected *ServeMode, got %T", mode)
	assert.Equal(t, ":2323", sm.Address)
	assert.Equal(t, config.DefaultServeHostname, sm.Hostname)
}
