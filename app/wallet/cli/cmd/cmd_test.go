package cmd_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardanlabs/chainsim/app/wallet/cli/cmd"
	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := cmd.NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestWallet(t *testing.T) {
	dir := t.TempDir()

	var submitted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/chains/c1/tx":
			json.NewDecoder(r.Body).Decode(&submitted)
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"status":"queued"}`))

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/wallets/"):
			w.Write([]byte(`{"address":"x","received":10,"sent":3,"tx_count":2}`))

		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"chain not found"}`))
		}
	}))
	defer srv.Close()

	out, err := run(t, "generate", "-p", dir, "-a", "kennedy")
	require.NoError(t, err)
	addr := strings.TrimSpace(out)
	require.True(t, wallet.ValidateAddress(addr))

	_, err = run(t, "generate", "-p", dir, "-a", "kennedy")
	require.Error(t, err, "an existing key is never overwritten")

	out, err = run(t, "address", "-p", dir, "-a", "kennedy.ecdsa")
	require.NoError(t, err)
	require.Equal(t, addr, strings.TrimSpace(out))

	out, err = run(t, "balance", "-p", dir, "-a", "kennedy", "-u", srv.URL, "-c", "c1")
	require.NoError(t, err)
	require.Contains(t, out, "Received: 10")

	_, err = run(t, "send", "-p", dir, "-a", "kennedy", "-u", srv.URL, "-c", "c1",
		"-t", "0xbee6ace826ec3de1b6349888b9151b92522f7f76", "-v", "5", "-n", "1")
	require.NoError(t, err)
	require.Equal(t, addr, submitted["from"])
	require.Equal(t, "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76", submitted["to"])
	require.Equal(t, 5.0, submitted["value"])

	_, err = run(t, "send", "-p", dir, "-a", "kennedy", "-u", srv.URL, "-c", "missing", "-t", addr, "-v", "5")
	require.ErrorContains(t, err, "chain not found")

	_, err = run(t, "send", "-p", dir, "-a", "kennedy", "-u", srv.URL, "-c", "c1", "-t", "bob")
	require.Error(t, err)
}
