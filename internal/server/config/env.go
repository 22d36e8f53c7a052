package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays environment variables onto config. The variable names
// follow the deployment conventions of the web front end this server
// replaces (JWT_SECRET, JWT_EXPIRE, AWS_*, PYTHON_BACKEND_URL, ...).
func parseEnv(config *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("DATABASE_URL", &config.DatabaseDSN)
	str("LOG_LEVEL", &config.LogLevel)
	if v, ok := lookup("NODE_ENV"); ok {
		config.Production = v == "production"
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		config.AllowedOrigins = parseCSV(v)
	}

	str("JWT_SECRET", &config.SecretKey)
	if v, ok := lookup("JWT_EXPIRE"); ok && v != "" {
		d, err := parseExpire(v)
		if err != nil {
			panic(err)
		}
		config.TokenValidityDuration = d
	}
	if v, ok := lookup("BCRYPT_COST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("BCRYPT_COST: %w", err))
		}
		config.BcryptCost = n
	}

	str("AWS_ACCESS_KEY_ID", &config.S3RootUser)
	str("AWS_SECRET_ACCESS_KEY", &config.S3RootPassword)
	str("AWS_S3_BUCKET", &config.S3Bucket)
	str("AWS_REGION", &config.S3Region)
	str("AWS_ENDPOINT_URL_S3", &config.S3BaseEndpoint)

	str("PYTHON_BACKEND_URL", &config.BackendURL)

	str("REVOCATION_STORE", &config.RevocationStore)
	str("REDIS_URL", &config.RedisURL)

	str("CHAT_STORE", &config.ChatStore)
	str("MONGODB_URI", &config.MongoURI)
	str("MONGODB_DATABASE", &config.MongoDatabase)
}

// parseExpire accepts Go durations plus a whole-day form such as "7d".
func parseExpire(v string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid token expiry %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid token expiry %q", v)
	}
	return d, nil
}

// parseCSV splits a comma-separated list, dropping empty entries.
func parseCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
