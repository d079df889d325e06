package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd(zap.NewNop().Sugar(), "test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeGenesis(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "genesis.json")
	err := os.WriteFile(path, []byte(`{"difficulty": 4, "trans_per_block": 3}`), 0644)
	require.NoError(t, err)

	return path
}

func TestSimulateMemory(t *testing.T) {
	out, err := execute(t, "simulate", "-g", writeGenesis(t), "-n", "7")
	require.NoError(t, err)

	require.Contains(t, out, "CHAINS")
	require.Contains(t, out, "name[main]")
	require.Contains(t, out, "valid[true]")
	require.Contains(t, out, "miner-1")
	require.Contains(t, out, "light-1")
}

func TestSimulateDiskThenInspect(t *testing.T) {
	path := t.TempDir()

	_, err := execute(t, "simulate", "-g", writeGenesis(t), "-p", path, "-n", "6", "-a", "3")
	require.NoError(t, err)

	out, err := execute(t, "verify", "-p", path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "VALID"), out)

	l, err := openLedger(zap.NewNop().Sugar(), path)
	require.NoError(t, err)
	chains := l.Chains()
	require.Len(t, chains, 1)
	chainID := chains[0].ID
	accounts, err := participants(l, chainID)
	require.NoError(t, err)
	require.NoError(t, l.Shutdown())

	require.Len(t, accounts, 3)

	out, err = execute(t, "balances", "-p", path, "-c", chainID)
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(out, "Account:"))

	out, err = execute(t, "transactions", "-p", path, "-c", chainID, accounts[0])
	require.NoError(t, err)
	require.NotEmpty(t, out)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		require.Contains(t, strings.ToLower(line), strings.ToLower(accounts[0]))
	}

	_, err = execute(t, "balances", "-p", path, "-c", "missing")
	require.Error(t, err)
}

func TestKeygen(t *testing.T) {
	path := t.TempDir()

	out, err := execute(t, "keygen", "-p", path, "kennedy", "pavel")
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(out, ".ecdsa"))

	for _, name := range []string{"kennedy", "pavel"} {
		_, err := os.Stat(filepath.Join(path, name+".ecdsa"))
		require.NoError(t, err)
	}

	_, err = execute(t, "keygen", "-p", path, "kennedy")
	require.Error(t, err, "existing keys are never overwritten")
}
