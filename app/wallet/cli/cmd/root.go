// Package cmd contains the wallet app commands.
package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/chainsim/business/web/errs"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	url         string
)

const (
	keyExtension = ".ecdsa"
)

// NewRootCmd constructs the wallet command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wallet",
		Short:         "Your simple wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")

	rootCmd.AddCommand(
		newGenerateCmd(),
		newAddressCmd(),
		newBalanceCmd(),
		newSendCmd(),
	)

	return rootCmd
}

func getPrivateKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(accountPath, name)
}

// privateKey loads the configured private key.
func privateKey() (*ecdsa.PrivateKey, error) {
	pk, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return nil, fmt.Errorf("loading key: %w", err)
	}

	return pk, nil
}

// address returns the address for the configured private key.
func address() (string, error) {
	pk, err := privateKey()
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(pk.PublicKey).Hex(), nil
}

// =============================================================================

var client = http.Client{Timeout: 10 * time.Second}

// call sends the request to the node and decodes the response.
func call(method string, path string, body any, resp any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, url+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var er errs.Response
		if err := json.NewDecoder(res.Body).Decode(&er); err != nil {
			return fmt.Errorf("status %d", res.StatusCode)
		}
		return fmt.Errorf("status %d: %s", res.StatusCode, er.Error)
	}

	if resp == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(resp)
}
