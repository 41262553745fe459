// Package config turns viper settings into the watcher's runtime
// configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/spf13/viper"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/candymachine"
	"github.com/sw33tLie/mintwatch/pkg/chain"
	"github.com/sw33tLie/mintwatch/pkg/reconcile"
)

const EnvPrefix = "MINTWATCH"

// Viper keys.
const (
	KeyRPCHost         = "rpc.host"
	KeyRPCCommitment   = "rpc.commitment"
	KeyRPCRetries      = "rpc.retries"
	KeyCandyMachineID  = "candymachine.id"
	KeyProgramID       = "candymachine.program"
	KeyKeypair         = "wallet.keypair"
	KeyPubkey          = "wallet.pubkey"
	KeyMintTimeout     = "mint.timeout"
	KeyPollInterval    = "poll.interval"
	KeyGoLive          = "schedule.go_live"
	KeyWhitelistWindow = "schedule.whitelist_window"
	KeyListen          = "server.listen"
	KeyUsername        = "server.username"
	KeyPassword        = "server.password"
	KeyMintPerMinute   = "server.mint_per_minute"
	KeyDBPath          = "db.path"
)

const msgBadCandyMachine = "Your candymachine.id value doesn't look right! Make sure it is the base58 address of your candy machine account."

type Config struct {
	RPCHost    string
	Commitment rpc.Commitment
	Retries    int

	CandyMachine common.PublicKey
	Program      common.PublicKey
	// Problem is set when the candy machine id is missing or malformed. It
	// is reported through the alert channel instead of failing startup.
	Problem string

	Keypair string
	Pubkey  string

	MintTimeout     time.Duration
	PollInterval    time.Duration
	WhitelistWindow time.Duration
	GoLive          *time.Time

	Listen        string
	Username      string
	Password      string
	MintPerMinute int

	DBPath string
}

// SetDefaults registers default values and env handling on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyRPCHost, "https://api.devnet.solana.com")
	v.SetDefault(KeyRPCCommitment, string(rpc.CommitmentConfirmed))
	v.SetDefault(KeyRPCRetries, 3)
	v.SetDefault(KeyCandyMachineID, "")
	v.SetDefault(KeyProgramID, candymachine.ProgramID.ToBase58())
	v.SetDefault(KeyKeypair, "")
	v.SetDefault(KeyPubkey, "")
	v.SetDefault(KeyMintTimeout, "60s")
	v.SetDefault(KeyPollInterval, "20s")
	v.SetDefault(KeyGoLive, "")
	v.SetDefault(KeyWhitelistWindow, "1h")
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyMintPerMinute, 6)
	v.SetDefault(KeyDBPath, "")
}

// Load reads v into a Config. Unusable settings other than the candy machine
// id are returned as errors.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		RPCHost:         strings.TrimSpace(v.GetString(KeyRPCHost)),
		Retries:         v.GetInt(KeyRPCRetries),
		Keypair:         v.GetString(KeyKeypair),
		Pubkey:          strings.TrimSpace(v.GetString(KeyPubkey)),
		MintTimeout:     v.GetDuration(KeyMintTimeout),
		PollInterval:    v.GetDuration(KeyPollInterval),
		WhitelistWindow: v.GetDuration(KeyWhitelistWindow),
		Listen:          v.GetString(KeyListen),
		Username:        v.GetString(KeyUsername),
		Password:        v.GetString(KeyPassword),
		MintPerMinute:   v.GetInt(KeyMintPerMinute),
		DBPath:          v.GetString(KeyDBPath),
	}

	if c.RPCHost == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyRPCHost)
	}
	commitment, err := chain.ParseCommitment(v.GetString(KeyRPCCommitment))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyRPCCommitment, err)
	}
	c.Commitment = commitment

	if c.Retries < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyRPCRetries)
	}
	if c.MintTimeout <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeyMintTimeout)
	}
	if c.PollInterval <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeyPollInterval)
	}
	if c.WhitelistWindow < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyWhitelistWindow)
	}

	program, err := candymachine.ParseAddress(v.GetString(KeyProgramID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyProgramID, err)
	}
	c.Program = program

	if raw := strings.TrimSpace(v.GetString(KeyGoLive)); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyGoLive, err)
		}
		c.GoLive = &t
	}

	if c.Pubkey != "" {
		if _, err := candymachine.ParseAddress(c.Pubkey); err != nil {
			return nil, fmt.Errorf("%s: %w", KeyPubkey, err)
		}
	}

	raw := strings.TrimSpace(v.GetString(KeyCandyMachineID))
	if raw == "" {
		c.Problem = alert.MsgMissingCandyMachine
	} else if id, err := candymachine.ParseAddress(raw); err != nil {
		c.Problem = msgBadCandyMachine
	} else {
		c.CandyMachine = id
	}

	return c, nil
}

// Wallet opens the configured identity: the keypair when one is set, else a
// watch-only public key. It returns nil when neither is configured.
func (c *Config) Wallet() (chain.Wallet, error) {
	if c.Keypair != "" {
		kp, err := chain.LoadKeypair(c.Keypair)
		if err != nil {
			return nil, err
		}
		return kp, nil
	}
	if c.Pubkey != "" {
		pub, err := candymachine.ParseAddress(c.Pubkey)
		if err != nil {
			return nil, err
		}
		return chain.WatchOnly(pub), nil
	}
	return nil, nil
}

// Reconcile returns the reconciler settings derived from c.
func (c *Config) Reconcile(log reconcile.Logger) reconcile.Config {
	return reconcile.Config{
		ProgramID:       c.Program,
		CandyMachineID:  c.CandyMachine,
		RPCHost:         c.RPCHost,
		Commitment:      c.Commitment,
		Timeout:         c.MintTimeout,
		Interval:        c.PollInterval,
		WhitelistWindow: c.WhitelistWindow,
		GoLive:          c.GoLive,
		ConfigError:     c.Problem,
		Log:             log,
	}
}
