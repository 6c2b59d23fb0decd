package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/wevote/reconcile/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. Duration fields are strings in time.ParseDuration format
// (e.g. "30m").
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; its fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN                  string `json:"database_dsn"`
	SecretKey                    string `json:"secret_key"`
	SessionTokenValidityDuration string `json:"session_token_validity_duration"`
	MergePrecedence              string `json:"merge_precedence"`
	S3RootUser                   string `json:"s3_root_user"`
	S3RootPassword               string `json:"s3_root_password"`
	S3Bucket                     string `json:"s3_bucket"`
	S3Region                     string `json:"s3_region"`
	S3BaseEndpoint               string `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.SessionTokenValidityDuration != "" {
		d, err := time.ParseDuration(c.SessionTokenValidityDuration)
		if err != nil {
			panic(err)
		}
		config.SessionTokenValidityDuration = d
	}
	if c.MergePrecedence != "" {
		config.MergePrecedence = c.MergePrecedence
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
