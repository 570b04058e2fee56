package config

import (
	"flag"
	"os"

	"github.com/avoronova/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port to listen on
//	-d string   PostgreSQL DSN
//	-k string   secret key for access token signing
//	-b string   S3 bucket for periodic backups
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to listen on")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "secret key for token signing")
	fs.StringVar(&cfg.BackupBucket, "b", cfg.BackupBucket, "S3 bucket for periodic backups")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
