// Package config loads client settings from defaults, a YAML file, a .env
// file, and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the chat client.
type Config struct {
	Host string `yaml:"host" env:"CHAT_HOST" validate:"required_without=URL"`
	Port int    `yaml:"port" env:"CHAT_PORT" validate:"min=1,max=65535"`
	// URL overrides Host and Port when set.
	URL string `yaml:"url" env:"CHAT_URL" validate:"omitempty,url"`

	// Name is applied as the identity once connected. Empty means ask.
	Name      string `yaml:"name" env:"CHAT_NAME"`
	Transport string `yaml:"transport" env:"CHAT_TRANSPORT" validate:"oneof=gorilla gobwas nhooyr"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile  string `yaml:"log_file" env:"CHAT_LOG_FILE" validate:"required"`

	Plain bool `yaml:"plain" env:"CHAT_PLAIN"`

	MaxNameLength    int `yaml:"max_name_length" env:"CHAT_MAX_NAME_LENGTH" validate:"min=1"`
	MaxContentLength int `yaml:"max_content_length" env:"CHAT_MAX_CONTENT_LENGTH" validate:"min=1"`
	SendBuffer       int `yaml:"send_buffer" env:"CHAT_SEND_BUFFER" validate:"min=1"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Host:             "localhost",
		Port:             4000,
		Transport:        "gorilla",
		LogLevel:         "info",
		LogFile:          "stderr",
		MaxNameLength:    20,
		MaxContentLength: 500,
		SendBuffer:       16,
	}
}

// Endpoint returns the relay URL.
func (c Config) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return "ws://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Loader reads configuration layers. Later layers win.
type Loader struct {
	// ConfigFile is a YAML file. Empty skips it; a missing file is an error.
	ConfigFile string
	// EnvFile is a dotenv file. Empty or missing skips it.
	EnvFile string
	// Environ defaults to os.Environ().
	Environ []string
}

// Load applies every layer on top of Default. It does not validate.
func (l Loader) Load() (Config, error) {
	cfg := Default()

	if l.ConfigFile != "" {
		data, err := os.ReadFile(l.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", l.ConfigFile, err)
		}
	}

	es := env.EnvSet{}
	if l.EnvFile != "" {
		dotenv, err := godotenv.Read(l.EnvFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read env file %s: %w", l.EnvFile, err)
		default:
			for k, v := range dotenv {
				es[k] = v
			}
		}
	}

	environ := l.Environ
	if environ == nil {
		environ = os.Environ()
	}
	procEnv, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	for k, v := range procEnv {
		es[k] = v
	}

	if err := env.Unmarshal(es, &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}
