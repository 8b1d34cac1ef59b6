package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/authservice/internal/flagx"
)

var serverFlags = []string{
	"-a", "-g", "-storage", "-d", "-mongo-db", "-s", "-signing", "-rsa-key", "-issuer",
	"-t", "-r", "-hasher", "-bcrypt-cost", "-default-role", "-cleanup-hour",
	"-cleanup-minute", "-redis", "-amqp", "-otlp", "-log-level",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            HTTP bind address (e.g., ":8080")
//	-g string            gRPC health bind address (e.g., ":50051")
//	-storage string      postgres, sqlite or mongo
//	-d string            database DSN / Mongo URI
//	-mongo-db string     Mongo database name
//	-s string            JWT HMAC secret key
//	-signing string      HS256 or RS256
//	-rsa-key string      PEM RSA private key path (RS256)
//	-issuer string       access token issuer
//	-t int               access token validity, minutes
//	-r int               refresh token validity, minutes
//	-hasher string       bcrypt or argon2id
//	-bcrypt-cost int     bcrypt cost factor
//	-default-role string role of newly registered users
//	-cleanup-hour int    hour of the daily sweep
//	-cleanup-minute int  minute of the daily sweep
//	-redis string        Redis address for the sweep lease
//	-amqp string         AMQP URL for auth events
//	-otlp string         OTLP/HTTP trace endpoint
//	-log-level string    debug, info, warn, error
//
// Args are filtered first with flagx.FilterArgs, so flags consumed by
// earlier stages (-c, -env) do not break parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("authserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.StorageDriver, "storage", config.StorageDriver, "storage driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MongoDatabase, "mongo-db", config.MongoDatabase, "mongo database name")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.SigningMethod, "signing", config.SigningMethod, "JWT signing method")
	fs.StringVar(&config.RSAPrivateKeyPath, "rsa-key", config.RSAPrivateKeyPath, "RSA private key path")
	fs.StringVar(&config.Issuer, "issuer", config.Issuer, "token issuer")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.PasswordHasher, "hasher", config.PasswordHasher, "password hasher")
	fs.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.DefaultRole, "default-role", config.DefaultRole, "role of new users")
	fs.IntVar(&config.CleanupHour, "cleanup-hour", config.CleanupHour, "hour of the daily token sweep")
	fs.IntVar(&config.CleanupMinute, "cleanup-minute", config.CleanupMinute, "minute of the daily token sweep")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.AMQPURL, "amqp", config.AMQPURL, "AMQP URL")
	fs.StringVar(&config.OTLPEndpoint, "otlp", config.OTLPEndpoint, "OTLP trace endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Minute precision only applies when the flag is actually given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
	return nil
}
