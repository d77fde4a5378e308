package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/AvaProtocol/mizan-relayer/pkg/logger"
)

const (
	defaultHttpBindAddress  = ":3000"
	defaultAuthorizationTTL = time.Hour
)

// Config contains everything the relayer needs at runtime. Chain clients are dialed by the
// relayer itself, not here.
type Config struct {
	Environment sdklogging.LogLevel
	Logger      sdklogging.Logger

	EthHttpRpcUrl  string
	TenderlyRpcUrl string

	RelayerPrivateKey *ecdsa.PrivateKey
	RelayerAddress    common.Address `json:"-"`

	LoanTokenAddress   common.Address
	ProfitTokenAddress common.Address
	MizanAddress       common.Address
	BorrowerAddress    common.Address

	// extra wrapped native assets on top of the built-in WETH list
	WrappedAssets []common.Address

	AuthorizationTTL time.Duration

	HttpBindAddress string
	DbPath          string

	SentryDsn  string
	ServerName string
}

// These are read from configPath
type ConfigRaw struct {
	Environment       sdklogging.LogLevel `yaml:"environment"`
	EthRpcUrl         string              `yaml:"eth_rpc_url"`
	TenderlyRpcUrl    string              `yaml:"tenderly_rpc_url"`
	RelayerPrivateKey string              `yaml:"relayer_private_key"`

	LoanTokenAddress   string `yaml:"loan_token_address"`
	ProfitTokenAddress string `yaml:"profit_token_address"`
	MizanAddress       string `yaml:"mizan_address"`
	BorrowerAddress    string `yaml:"borrower_address"`

	WrappedAssets           []string `yaml:"wrapped_assets"`
	AuthorizationTTLSeconds int64    `yaml:"authorization_ttl_seconds"`

	HttpBindAddress string `yaml:"http_bind_address"`
	DbPath          string `yaml:"db_path"`

	SentryDsn  string `yaml:"sentry_dsn"`
	ServerName string `yaml:"server_name"`
}

// NewConfig reads the yaml file at configFilePath (optional), then lets a .env file and the
// process environment override it. Environment variables carry the deployment names
// (RPC_URL, RELAYER_PRIVATE_KEY, LOAN_TOKEN_ADDRESS, ...).
func NewConfig(configFilePath string) (*Config, error) {
	var configRaw ConfigRaw
	if configFilePath != "" {
		data, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", configFilePath, err)
		}
		if err := yaml.Unmarshal(data, &configRaw); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", configFilePath, err)
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()
	configRaw.applyEnv()

	return configRaw.Build()
}

func (raw *ConfigRaw) applyEnv() {
	override := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	override(&raw.EthRpcUrl, "RPC_URL")
	override(&raw.TenderlyRpcUrl, "TENDERLY_RPC_URL")
	override(&raw.RelayerPrivateKey, "RELAYER_PRIVATE_KEY")
	override(&raw.LoanTokenAddress, "LOAN_TOKEN_ADDRESS")
	override(&raw.ProfitTokenAddress, "PROFIT_TOKEN_ADDRESS")
	override(&raw.MizanAddress, "MIZAN_ADDRESS")
	override(&raw.BorrowerAddress, "BORROWER_ADDRESS")
	override(&raw.DbPath, "DB_PATH")
	override(&raw.SentryDsn, "SENTRY_DSN")

	if port := os.Getenv("PORT"); port != "" {
		raw.HttpBindAddress = ":" + strings.TrimPrefix(port, ":")
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		raw.Environment = sdklogging.LogLevel(env)
	}
}

// Build validates the raw values and turns them into a Config.
func (raw ConfigRaw) Build() (*Config, error) {
	l, err := logger.New(string(raw.Environment))
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(raw.RelayerPrivateKey, "0x") {
		return nil, errors.New("RELAYER_PRIVATE_KEY must start with 0x")
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(raw.RelayerPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse relayer private key: %w", err)
	}

	wrapped, skipped := convertToAddressSlice(raw.WrappedAssets)
	for _, entry := range skipped {
		l.Warn("Skipping invalid wrapped asset address", "entry", entry)
	}

	c := &Config{
		Environment:        raw.Environment,
		Logger:             l,
		EthHttpRpcUrl:      raw.EthRpcUrl,
		TenderlyRpcUrl:     raw.TenderlyRpcUrl,
		RelayerPrivateKey:  privateKey,
		RelayerAddress:     crypto.PubkeyToAddress(privateKey.PublicKey),
		LoanTokenAddress:   common.HexToAddress(raw.LoanTokenAddress),
		ProfitTokenAddress: common.HexToAddress(raw.ProfitTokenAddress),
		MizanAddress:       common.HexToAddress(raw.MizanAddress),
		BorrowerAddress:    common.HexToAddress(raw.BorrowerAddress),
		WrappedAssets:      wrapped,
		AuthorizationTTL:   defaultAuthorizationTTL,
		HttpBindAddress:    raw.HttpBindAddress,
		DbPath:             raw.DbPath,
		SentryDsn:          raw.SentryDsn,
		ServerName:         raw.ServerName,
	}
	if raw.AuthorizationTTLSeconds > 0 {
		c.AuthorizationTTL = time.Duration(raw.AuthorizationTTLSeconds) * time.Second
	}
	if c.HttpBindAddress == "" {
		c.HttpBindAddress = defaultHttpBindAddress
	}
	if c.TenderlyRpcUrl == "" {
		// the simulation endpoint defaults to the RPC endpoint
		c.TenderlyRpcUrl = c.EthHttpRpcUrl
	}

	if err := raw.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (raw ConfigRaw) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"RPC_URL", raw.EthRpcUrl},
		{"LOAN_TOKEN_ADDRESS", raw.LoanTokenAddress},
		{"PROFIT_TOKEN_ADDRESS", raw.ProfitTokenAddress},
		{"MIZAN_ADDRESS", raw.MizanAddress},
		{"BORROWER_ADDRESS", raw.BorrowerAddress},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required configuration: %s", r.name)
		}
	}

	for _, addr := range []string{raw.LoanTokenAddress, raw.ProfitTokenAddress, raw.MizanAddress, raw.BorrowerAddress} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid address in configuration: %q", addr)
		}
	}
	return nil
}
