package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/docchat/internal/flagx"
)

var serverFlags = []string{
	"-a", "-grpc", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e",
	"-log-level", "-production", "-origins", "-bcrypt-cost", "-hash-concurrency",
	"-backend", "-revocation", "-redis", "-chat-store", "-mongo", "-mongo-db",
}

// parseFlags overlays command-line flags onto config.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-grpc string gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-s string   token signing secret
//	-t int      token validity, minutes
//	-u/-p/-b/-g/-e  S3 access key, secret, bucket, region, endpoint
//
// Only the flags listed in serverFlags are looked at; anything else in args
// (for example -c) belongs to another loader.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	validity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&config.Production, "production", config.Production, "production mode (secure cookies)")
	origins := fs.String("origins", strings.Join(config.AllowedOrigins, ","), "comma-separated CORS origins")
	fs.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt cost")
	fs.IntVar(&config.HashConcurrency, "hash-concurrency", config.HashConcurrency, "concurrent password hashes")

	fs.StringVar(&config.BackendURL, "backend", config.BackendURL, "RAG/OCR backend base URL")
	fs.StringVar(&config.RevocationStore, "revocation", config.RevocationStore, "none, postgres or redis")
	fs.StringVar(&config.RedisURL, "redis", config.RedisURL, "redis URL")
	fs.StringVar(&config.ChatStore, "chat-store", config.ChatStore, "postgres or mongo")
	fs.StringVar(&config.MongoURI, "mongo", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "mongo-db", config.MongoDatabase, "MongoDB database")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.TokenValidityDuration = time.Duration(*validity) * time.Minute
		case "origins":
			config.AllowedOrigins = parseCSV(*origins)
		}
	})
	return nil
}
