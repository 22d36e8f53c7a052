package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docchat/internal/flagx"
	"github.com/dmitrijs2005/docchat/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "15m"-style
// strings or integer nanoseconds. Zero values leave the current setting alone.
type JsonConfig struct {
	EndpointAddrHTTP string   `json:"endpoint_addr_http"`
	EndpointAddrGRPC string   `json:"endpoint_addr_grpc"`
	DatabaseDSN      string   `json:"database_dsn"`
	LogLevel         string   `json:"log_level"`
	Production       *bool    `json:"production"`
	AllowedOrigins   []string `json:"allowed_origins"`

	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	BcryptCost            int            `json:"bcrypt_cost"`
	HashConcurrency       int            `json:"hash_concurrency"`

	MaxUploadSize     int64          `json:"max_upload_size"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	S3PresignDuration timex.Duration `json:"s3_presign_duration"`

	BackendURL          string         `json:"backend_url"`
	BackendPollInterval timex.Duration `json:"backend_poll_interval"`
	ReplyTimeout        timex.Duration `json:"reply_timeout"`

	RevocationStore string `json:"revocation_store"`
	RedisURL        string `json:"redis_url"`

	ChatStore     string `json:"chat_store"`
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`
}

// parseJson overlays the file named by -c/-config in args onto config.
// Nothing happens when no file is given; unreadable or invalid files panic.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	if c.Production != nil {
		config.Production = *c.Production
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}

	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.HashConcurrency != 0 {
		config.HashConcurrency = c.HashConcurrency
	}

	if c.MaxUploadSize != 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3PresignDuration.Duration != 0 {
		config.S3PresignDuration = c.S3PresignDuration.Duration
	}

	setString(&config.BackendURL, c.BackendURL)
	if c.BackendPollInterval.Duration != 0 {
		config.BackendPollInterval = c.BackendPollInterval.Duration
	}
	if c.ReplyTimeout.Duration != 0 {
		config.ReplyTimeout = c.ReplyTimeout.Duration
	}

	setString(&config.RevocationStore, c.RevocationStore)
	setString(&config.RedisURL, c.RedisURL)

	setString(&config.ChatStore, c.ChatStore)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
