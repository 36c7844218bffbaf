package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/coffeedia/internal/flagx"
)

// parseFlags overlays cfg with -a, -i and -d. Other arguments (cobra
// subcommands, -c) are filtered out first so they do not cause parse errors.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-i", "-d"})

	fs := flag.NewFlagSet("coffeedia", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "backend base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	interval := fs.Int("i", int(cfg.ExpiryCheckInterval.Seconds()), "expiry check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.ExpiryCheckInterval = time.Duration(*interval) * time.Second
		}
	})
	return nil
}
