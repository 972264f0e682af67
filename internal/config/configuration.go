// Package config describes and loads the configuration of the jigsaw demo
// daemon.
package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	*d = Duration(parsed)
	return err
}

type LogLevel struct {
	l *logrus.Level
}

func (l *LogLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	lev, err := logrus.ParseLevel(s)
	if err != nil {
		return err
	}
	l.l = &lev
	return nil
}

func (l *LogLevel) LogrusLevel() logrus.Level {
	if l.l == nil {
		return logrus.InfoLevel
	}
	return *l.l
}

// Listener is one address the daemon serves on.
type Listener struct {
	Bind string
	SSL  *struct {
		Certificate string `yaml:"cert"`
		Key         string `yaml:"key"`
	}

	// Proxied trusts X-Forwarded-For and friends.
	Proxied bool
}

type Configuration struct {
	Database struct {
		// Dialect is "memory", "sqlite" or "postgres".
		Dialect    string
		Connection string
		Seed       bool
	}

	Web []Listener

	Logging struct {
		Level  LogLevel
		Format string

		// AccessLog is a file path, or "-" for standard output.
		AccessLog string `yaml:"access_log"`
	}

	Templates struct {
		Root   string
		Reload bool
	}

	Sessions struct {
		AuthenticationKey string   `yaml:"authentication_key"`
		EncryptionKey     string   `yaml:"encryption_key"`
		MaxAge            Duration `yaml:"max_age"`
	}

	Application struct {
		Name           string
		PageSize       int `yaml:"page_size"`
		StatementCache int `yaml:"statement_cache"`
	}
}

func (c *Configuration) setDefaults() {
	if c.Database.Dialect == "" {
		c.Database.Dialect = "memory"
	}
	if len(c.Web) == 0 {
		c.Web = []Listener{{Bind: ":8080"}}
	}
	if c.Templates.Root == "" {
		c.Templates.Root = "templates"
	}
	if c.Sessions.MaxAge == 0 {
		c.Sessions.MaxAge = Duration(24 * time.Hour)
	}
	if c.Application.Name == "" {
		c.Application.Name = "jigsaw"
	}
	if c.Application.PageSize == 0 {
		c.Application.PageSize = 10
	}
}
