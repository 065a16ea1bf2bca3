package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/flagx"
)

// serverFlags lists the short flags parseFlags understands.
var serverFlags = []string{"-a", "-l", "-d", "-m", "-s", "-t", "-e", "-n", "-k"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-l string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-m string   storage driver: postgres | memory
//	-s string   session token HMAC secret
//	-t int      session token validity, minutes
//	-e string   environment: production | development
//	-n string   notifier: log | redis | kafka
//	-k int      bcrypt cost
//
// Arguments are filtered with flagx.FilterArgs first so flags owned by other
// layers (-c/-config) do not make parsing fail.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageDriver, "m", config.StorageDriver, "storage driver (postgres|memory)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session token validity (in minutes)")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment (production|development)")
	fs.StringVar(&config.Notifier, "n", config.Notifier, "notifier (log|redis|kafka)")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	return nil
}
