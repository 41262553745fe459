package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/candymachine"
	"github.com/sw33tLie/mintwatch/pkg/chain"
)

const machineID = "8Ck5vU4rCZ1EGFAxQLSdJJBX4RAc1hvbW4V7w2yWDTmQ"

func newViper(t *testing.T, values map[string]interface{}) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(newViper(t, map[string]interface{}{KeyCandyMachineID: machineID}))
	require.NoError(t, err)

	require.Equal(t, "https://api.devnet.solana.com", c.RPCHost)
	require.Equal(t, rpc.CommitmentConfirmed, c.Commitment)
	require.Equal(t, 3, c.Retries)
	require.Equal(t, candymachine.ProgramID, c.Program)
	require.Equal(t, machineID, c.CandyMachine.ToBase58())
	require.Empty(t, c.Problem)
	require.Equal(t, 60*time.Second, c.MintTimeout)
	require.Equal(t, 20*time.Second, c.PollInterval)
	require.Equal(t, time.Hour, c.WhitelistWindow)
	require.Nil(t, c.GoLive)
	require.Equal(t, ":8080", c.Listen)
	require.Equal(t, 6, c.MintPerMinute)

	rc := c.Reconcile(nil)
	require.Equal(t, c.CandyMachine, rc.CandyMachineID)
	require.Equal(t, c.MintTimeout, rc.Timeout)
	require.Empty(t, rc.ConfigError)
}

func TestLoadCandyMachineProblems(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"missing", "", alert.MsgMissingCandyMachine},
		{"blank", "   ", alert.MsgMissingCandyMachine},
		{"not base58", "not-an-address!", msgBadCandyMachine},
		{"wrong length", "abc", msgBadCandyMachine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(newViper(t, map[string]interface{}{KeyCandyMachineID: tt.id}))
			require.NoError(t, err)
			require.Equal(t, tt.want, c.Problem)
			require.Equal(t, tt.want, c.Reconcile(nil).ConfigError)
		})
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"commitment": {KeyRPCCommitment: "eventually"},
		"empty host": {KeyRPCHost: " "},
		"timeout":    {KeyMintTimeout: "0s"},
		"interval":   {KeyPollInterval: "-1s"},
		"program":    {KeyProgramID: "xyz"},
		"go live":    {KeyGoLive: "tomorrow"},
		"pubkey":     {KeyPubkey: "nope"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			values[KeyCandyMachineID] = machineID
			_, err := Load(newViper(t, values))
			require.Error(t, err)
		})
	}
}

func TestLoadGoLive(t *testing.T) {
	c, err := Load(newViper(t, map[string]interface{}{KeyGoLive: "2022-08-04T21:00:00Z"}))
	require.NoError(t, err)
	require.NotNil(t, c.GoLive)
	require.True(t, c.GoLive.Equal(time.Date(2022, 8, 4, 21, 0, 0, 0, time.UTC)))
	require.Equal(t, c.GoLive, c.Reconcile(nil).GoLive)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MINTWATCH_RPC_HOST", "https://rpc.example.org")
	t.Setenv("MINTWATCH_CANDYMACHINE_ID", machineID)

	c, err := Load(newViper(t, nil))
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example.org", c.RPCHost)
	require.Empty(t, c.Problem)
}

func TestWallet(t *testing.T) {
	c, err := Load(newViper(t, nil))
	require.NoError(t, err)
	w, err := c.Wallet()
	require.NoError(t, err)
	require.Nil(t, w)

	pub := types.NewAccount().PublicKey
	c.Pubkey = pub.ToBase58()
	w, err = c.Wallet()
	require.NoError(t, err)
	require.Equal(t, pub, w.PublicKey())
	_, err = w.Account()
	require.ErrorIs(t, err, chain.ErrWatchOnly)

	acct := types.NewAccount()
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, keypairJSON(t, acct.PrivateKey), 0o600))
	c.Keypair = path
	w, err = c.Wallet()
	require.NoError(t, err)
	require.Equal(t, acct.PublicKey, w.PublicKey())

	c.Keypair = filepath.Join(t.TempDir(), "missing.json")
	_, err = c.Wallet()
	require.Error(t, err)
}

func keypairJSON(t *testing.T, key []byte) []byte {
	t.Helper()
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)
	return raw
}
