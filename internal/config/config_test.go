package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/paxledger/internal/config"
	"github.com/senutpal/paxledger/internal/paxos"
)

func TestParseWithoutMembership(t *testing.T) {
	cfg, err := config.Parse([]string{"127.0.0.1", "9001", "10.0.0.1", "9001"})
	require.NoError(t, err)
	assert.Equal(t, paxos.Addr{IP: "127.0.0.1", Port: 9001}, cfg.BindAddr)
	assert.Equal(t, paxos.Addr{IP: "10.0.0.1", Port: 9001}, cfg.Self)
	assert.Empty(t, cfg.Peers)
}

func TestParseWithMembershipFileExcludesSelf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "members.txt")
	contents := "10.0.0.1:9001\n10.0.0.2:9001\n# a comment\n\n10.0.0.3:9001\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Parse([]string{"127.0.0.1", "9001", "10.0.0.1", "9001", path})
	require.NoError(t, err)
	assert.ElementsMatch(t, []paxos.Addr{
		{IP: "10.0.0.2", Port: 9001},
		{IP: "10.0.0.3", Port: 9001},
	}, cfg.Peers)
}

func TestParseRejectsTooFewArgs(t *testing.T) {
	_, err := config.Parse([]string{"127.0.0.1", "9001"})
	assert.Error(t, err)
}

func TestParseRejectsMalformedPeerLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "members.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-an-addr\n"), 0o644))

	_, err := config.Parse([]string{"127.0.0.1", "9001", "10.0.0.1", "9001", path})
	assert.Error(t, err)
}
