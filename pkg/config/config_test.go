package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
sessions:
  - client1

platform:
  input_threads: 8
  writer_threads: 8
  log_path: /var/log/fixgate
  admin_website_port: 9000

session:
  heartbeat_interval_s: 30
  client1:
    role: initiator
    sender_comp_id: CLIENT
    target_comp_id: EXCHANGE
    connect_host: 127.0.0.1
    connect_port: 5201
    fix_dictionary: FIX42.xml
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeSample(t)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Platform.InputThreads)
	require.Equal(t, "/var/log/fixgate", cfg.Platform.LogPath)
	require.Equal(t, "./data", cfg.Platform.DataPath)
	require.Equal(t, 9000, cfg.Platform.AdminWebsitePort)

	require.Len(t, cfg.Sessions, 1)
	s := cfg.Sessions[0]
	require.Equal(t, "client1", s.Name)
	require.Equal(t, Initiator, s.Role)
	require.Equal(t, "CLIENT", s.SenderCompID)
	require.Equal(t, "EXCHANGE", s.TargetCompID)
	require.Equal(t, "FIX.4.2", s.BeginString)
	require.Equal(t, 30*time.Second, s.HeartbeatInterval)
	require.Equal(t, 10*time.Second, s.LogonInterval)
	require.Equal(t, true, s.TCPNoDelay)
	require.Equal(t, 2.0, s.TestRequestThreshold)
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sessions:
  - bad1
session:
  bad1:
    role: sideways
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
