package config

import (
	"time"
)

type AppConfig struct {
	Env            string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	Port           int           `yaml:"port" env:"APP_PORT" env-default:"8080"`
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"APP_DEFAULT_TIMEOUT" env-default:"5s"`
}
