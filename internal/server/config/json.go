package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authservice/internal/flagx"
	"github.com/dmitrijs2005/authservice/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Absent keys leave the current value untouched.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	GRPCAddr                     string         `json:"grpc_addr"`
	StorageDriver                string         `json:"storage_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	MongoDatabase                string         `json:"mongo_database"`
	SecretKey                    string         `json:"secret_key"`
	SigningMethod                string         `json:"signing_method"`
	RSAPrivateKeyPath            string         `json:"rsa_private_key_path"`
	Issuer                       string         `json:"issuer"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordHasher               string         `json:"password_hasher"`
	BcryptCost                   *int           `json:"bcrypt_cost"`
	DefaultRole                  string         `json:"default_role"`
	CleanupHour                  *int           `json:"cleanup_hour"`
	CleanupMinute                *int           `json:"cleanup_minute"`
	RedisAddr                    string         `json:"redis_addr"`
	AMQPURL                      string         `json:"amqp_url"`
	OTLPEndpoint                 string         `json:"otlp_endpoint"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays the JSON file named by -c / -config onto config.
// Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.JsonConfigFlag(args)
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SigningMethod, c.SigningMethod)
	setString(&config.RSAPrivateKeyPath, c.RSAPrivateKeyPath)
	setString(&config.Issuer, c.Issuer)
	setString(&config.PasswordHasher, c.PasswordHasher)
	setString(&config.DefaultRole, c.DefaultRole)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	if c.CleanupHour != nil {
		config.CleanupHour = *c.CleanupHour
	}
	if c.CleanupMinute != nil {
		config.CleanupMinute = *c.CleanupMinute
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
