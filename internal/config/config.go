package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"savingsCircle/internal/contract"
	"savingsCircle/internal/wallet"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL           string
	Contract         string
	Registry         string
	FeeCurrency      string
	DappName         string
	CallbackURL      string
	CallbackListen   string
	SessionFile      string
	PGDSN            string
	History          string
	LogLevel         string
	QR               bool
	SignatureTimeout time.Duration
	Members          []string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CIRCLES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("registry", contract.DefaultRegistryAddress.Hex())
	v.SetDefault("fee-currency", string(wallet.FeeCurrencyDollar))
	v.SetDefault("dapp-name", "Savings Circle")
	v.SetDefault("callback-url", "http://127.0.0.1:8787/callback")
	v.SetDefault("callback-listen", "127.0.0.1:8787")
	v.SetDefault("session-file", "./data/session.json")
	v.SetDefault("log-level", "info")
	v.SetDefault("qr", true)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc"),
		Contract:         v.GetString("contract"),
		Registry:         v.GetString("registry"),
		FeeCurrency:      v.GetString("fee-currency"),
		DappName:         v.GetString("dapp-name"),
		CallbackURL:      v.GetString("callback-url"),
		CallbackListen:   v.GetString("callback-listen"),
		SessionFile:      v.GetString("session-file"),
		PGDSN:            v.GetString("pg-dsn"),
		History:          v.GetString("history"),
		LogLevel:         v.GetString("log-level"),
		QR:               v.GetBool("qr"),
		SignatureTimeout: v.GetDuration("signature-timeout"),
		Members:          getStringSlice(v, "members"),
	}

	return cfg, nil
}

// Validate checks the values every chain-facing command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc is required")
	}
	if !common.IsHexAddress(c.Contract) {
		return fmt.Errorf("contract must be a hex address, got %q", c.Contract)
	}
	if !common.IsHexAddress(c.Registry) {
		return fmt.Errorf("registry must be a hex address, got %q", c.Registry)
	}
	if _, err := wallet.ParseFeeCurrency(c.FeeCurrency); err != nil {
		return err
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
