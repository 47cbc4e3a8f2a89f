package config

import (
	"flag"
	"fmt"
	"io"
)

// parseFlags overlays command line flags.
//
//	-a string   HTTP bind address
//	-d string   sqlite DSN
//	-b string   base url of mailed links
//	-k string   signing key
//	-c int      bcrypt cost, 0 picks the default
//	-s string   session store, memory or db
//	-t duration session idle timeout
//	-debug      verbose logging
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("auth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Address, "a", cfg.Address, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.BaseURL, "b", cfg.BaseURL, "base url of mailed links")
	fs.StringVar(&cfg.SigningKey, "k", cfg.SigningKey, "signing key")
	fs.IntVar(&cfg.HashCost, "c", cfg.HashCost, "bcrypt cost")
	fs.StringVar(&cfg.SessionStore, "s", cfg.SessionStore, "session store (memory|db)")
	fs.DurationVar(&cfg.SessionTimeout, "t", cfg.SessionTimeout, "session idle timeout")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "mark cookies Secure")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
