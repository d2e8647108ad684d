package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"penny/internal/session"
)

// Config is read from flags, PENNY_* environment variables and
// $HOME/.penny/config.yaml, in that order of precedence.
type Config struct {
	Server  string        `mapstructure:"server"`
	Email   string        `mapstructure:"email"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Declared on uploads; the server checks them against the ID.
	FirstName   string `mapstructure:"first_name"`
	LastName    string `mapstructure:"last_name"`
	AccountType string `mapstructure:"account_type"`
}

var v = viper.New()

func bindConfig(cmd *cobra.Command) error {
	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("timeout", session.DefaultTurnTimeout)
	v.SetEnvPrefix("PENNY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".penny", "config.yaml"))
	}
	v.SetConfigType("yaml")
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
		return err
	}

	for _, name := range []string{"server", "timeout", "email", "token", "first-name", "last-name", "account-type"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), f); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
