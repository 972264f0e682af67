package main

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"howett.net/jigsaw/internal/config"
	"howett.net/jigsaw/render"
	"howett.net/jigsaw/store/memstore"
	"howett.net/jigsaw/store/sqlstore"
)

var args struct {
	Config   []string `short:"c" long:"config" description:"configuration file; later files override earlier ones"`
	Bind     string   `short:"b" long:"bind" description:"listen address, replacing every configured one"`
	Database string   `long:"db" description:"database dialect" choice:"memory" choice:"sqlite" choice:"postgres"`
	Debug    bool     `short:"d" long:"debug" description:"log at debug level and reload templates on every request"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg *config.Configuration, logger logrus.FieldLogger) (recordStore, io.Closer, error) {
	dialect := cfg.Database.Dialect
	if dialect == "memory" {
		return memstore.New(memstore.FieldLoggingOption(logger)), nopCloser{}, nil
	}

	opts := []sqlstore.Option{sqlstore.FieldLoggingOption(logger)}
	if n := cfg.Application.StatementCache; n > 0 {
		opts = append(opts, sqlstore.StatementCacheOption(n))
	}
	s, err := sqlstore.Open(dialect, cfg.Database.Connection, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Exec(ctx, schemas[dialect]...); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, s, nil
}

func configureLogger(logger *logrus.Logger, cfg *config.Configuration) {
	logger.SetLevel(cfg.Logging.Level.LogrusLevel())
	if args.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if cfg.Logging.Format == "json" {
		logger.Formatter = &logrus.JSONFormatter{}
	}
}

func accessLog(cfg *config.Configuration) (io.Writer, error) {
	switch cfg.Logging.AccessLog {
	case "":
		return nil, nil
	case "-":
		return os.Stdout, nil
	}
	return os.OpenFile(cfg.Logging.AccessLog, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
}

func main() {
	if _, err := flags.Parse(&args); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger := logrus.New()
	cfg, err := config.NewFileConfigurationService(args.Config).LoadConfiguration()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if args.Database != "" {
		cfg.Database.Dialect = args.Database
	}
	if args.Debug {
		cfg.Templates.Reload = true
	}
	configureLogger(logger, cfg)

	ctx := context.Background()
	rs, closer, err := openStore(ctx, cfg, logger.WithField("dialect", cfg.Database.Dialect))
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer closer.Close()

	if cfg.Database.Seed {
		if err := seed(ctx, rs); err != nil {
			logger.WithError(err).Fatal("failed to seed store")
		}
	}

	html, err := render.New(os.DirFS(cfg.Templates.Root),
		render.GlobalFunctionsOption(&siteFunctions{name: cfg.Application.Name}),
		render.ReloadAlwaysOption(cfg.Templates.Reload),
		render.FieldLoggingOption(logger.WithField("component", "render")),
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to load templates")
	}

	srv, err := newServer(cfg, rs, html, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build views")
	}

	out, err := accessLog(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to open access log")
	}

	errs := make(chan error, len(cfg.Web))
	for _, web := range cfg.Web {
		bind := web.Bind
		if args.Bind != "" {
			bind = args.Bind
		}

		var h http.Handler = srv
		if web.Proxied {
			h = handlers.ProxyHeaders(h)
		}
		if out != nil {
			h = handlers.CombinedLoggingHandler(out, h)
		}

		logger.WithFields(logrus.Fields{
			"bind": bind,
			"tls":  web.SSL != nil,
		}).Info("listening")

		ssl := web.SSL
		go func() {
			if ssl != nil {
				errs <- http.ListenAndServeTLS(bind, ssl.Certificate, ssl.Key, h)
				return
			}
			errs <- http.ListenAndServe(bind, h)
		}()
		if args.Bind != "" {
			break
		}
	}
	logger.WithError(<-errs).Fatal("server stopped")
}
