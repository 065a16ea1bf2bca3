package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration accepts both Go duration strings ("30m") and integer nanoseconds
// in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

// JsonConfig mirrors Config for unmarshalling. Pointer fields distinguish
// "absent" from zero values so a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrGRPC   *string   `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP   *string   `json:"endpoint_addr_http"`
	Environment        *string   `json:"environment"`
	StorageDriver      *string   `json:"storage_driver"`
	DatabaseDSN        *string   `json:"database_dsn"`
	AutoMigrate        *bool     `json:"auto_migrate"`
	SecretKey          *string   `json:"secret_key"`
	SessionTTL         *Duration `json:"session_ttl"`
	EmailTokenTTL      *Duration `json:"email_token_ttl"`
	BcryptCost         *int      `json:"bcrypt_cost"`
	MinPasswordScore   *int      `json:"min_password_score"`
	LogBackend         *string   `json:"log_backend"`
	LogFormat          *string   `json:"log_format"`
	LogLevel           *string   `json:"log_level"`
	Notifier           *string   `json:"notifier"`
	NotifyTimeout      *Duration `json:"notify_timeout"`
	RedisAddr          *string   `json:"redis_addr"`
	RedisPassword      *string   `json:"redis_password"`
	RedisDB            *int      `json:"redis_db"`
	RedisStream        *string   `json:"redis_stream"`
	KafkaBrokers       []string  `json:"kafka_brokers"`
	KafkaTopic         *string   `json:"kafka_topic"`
	PublicBaseURL      *string   `json:"public_base_url"`
	CORSAllowedOrigins []string  `json:"cors_allowed_origins"`
	AdminUsers         []string  `json:"admin_users"`
}

// parseJSON overlays values from the JSON file at path. An empty path is a
// no-op; an unreadable or malformed file is an error.
func parseJSON(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.Environment, c.Environment)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.AutoMigrate != nil {
		config.AutoMigrate = *c.AutoMigrate
	}
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setDuration(&config.EmailTokenTTL, c.EmailTokenTTL)
	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.MinPasswordScore, c.MinPasswordScore)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.Notifier, c.Notifier)
	setDuration(&config.NotifyTimeout, c.NotifyTimeout)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setString(&config.RedisStream, c.RedisStream)
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaTopic, c.KafkaTopic)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	if len(c.AdminUsers) > 0 {
		config.AdminUsers = c.AdminUsers
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
