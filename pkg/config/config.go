// Package config loads run defaults from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvMinIdentity  = "GBK2CIRCOS_MIN_IDENTITY"
	EnvQueryColor   = "GBK2CIRCOS_QUERY_COLOR"
	EnvSubjectColor = "GBK2CIRCOS_SUBJECT_COLOR"
	EnvLogLevel     = "GBK2CIRCOS_LOG_LEVEL"
	EnvDB           = "GBK2CIRCOS_DB"
	EnvAWSRegion    = "AWS_REGION"
)

// Defaults used when neither the environment nor a flag sets a value
const (
	DefaultMinIdentity  = 50.0
	DefaultQueryColor   = "green"
	DefaultSubjectColor = "blue"
	DefaultLogLevel     = "info"
)

// Env holds the values seeded from the environment. Command-line flags
// override every field.
type Env struct {
	MinIdentity  float64
	QueryColor   string
	SubjectColor string
	LogLevel     string
	DB           string
	AWSRegion    string

	// DotenvLoaded reports whether a .env file was found
	DotenvLoaded bool
}

// Load reads .env files (if any) into the process environment and returns
// the resulting settings. With no files given, ./.env is tried.
func Load(files ...string) (*Env, error) {
	env := &Env{
		MinIdentity:  DefaultMinIdentity,
		QueryColor:   DefaultQueryColor,
		SubjectColor: DefaultSubjectColor,
		LogLevel:     DefaultLogLevel,
	}

	// A missing .env is not an error, the process environment is used as is
	if err := godotenv.Load(files...); err == nil {
		env.DotenvLoaded = true
	}

	if v := os.Getenv(EnvMinIdentity); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvMinIdentity, v, err)
		}
		env.MinIdentity = f
	}
	if v := os.Getenv(EnvQueryColor); v != "" {
		env.QueryColor = v
	}
	if v := os.Getenv(EnvSubjectColor); v != "" {
		env.SubjectColor = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		env.LogLevel = v
	}
	env.DB = os.Getenv(EnvDB)
	env.AWSRegion = os.Getenv(EnvAWSRegion)

	return env, nil
}
