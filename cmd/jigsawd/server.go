package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"

	"howett.net/jigsaw"
	"howett.net/jigsaw/internal/config"
	"howett.net/jigsaw/internal/rayman"
	"howett.net/jigsaw/render"
)

type siteFunctions struct {
	name string
}

func (s *siteFunctions) GetViewFunctions() render.FuncMap {
	return render.FuncMap{
		"site_name": func() string { return s.name },
		"dict":      dict,
	}
}

// dict builds a map from alternating keys and values, for passing more
// than one value to a nested template.
func dict(kv ...interface{}) (map[string]interface{}, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func subrouter(r *mux.Router, prefix string) *mux.Router {
	n := mux.NewRouter()
	r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, n))
	return n
}

func sessionStore(cfg *config.Configuration) sessions.Store {
	authKey := []byte(cfg.Sessions.AuthenticationKey)
	if len(authKey) == 0 {
		// sessions will not survive a restart.
		authKey = securecookie.GenerateRandomKey(64)
	}
	keys := [][]byte{authKey}
	if cfg.Sessions.EncryptionKey != "" {
		keys = append(keys, []byte(cfg.Sessions.EncryptionKey))
	}

	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(time.Duration(cfg.Sessions.MaxAge) / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// newServer wires the tracker's views into a router behind the common
// middleware.
func newServer(cfg *config.Configuration, rs recordStore, html jigsaw.Renderer, logger logrus.FieldLogger) (http.Handler, error) {
	f := &flashes{store: sessionStore(cfg)}
	t, err := newTracker(rs, f, cfg.Application.PageSize)
	if err != nil {
		return nil, err
	}
	reg := jigsaw.NewRegistry()
	if err := t.register(reg); err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle("/", http.RedirectHandler("/projects/", http.StatusFound))
	bindRoutes(router, reg, html, true)
	bindRoutes(subrouter(router, "/api"), reg, &render.JSON{Logger: logger}, false)

	logger.WithField("classes", reg.Names()).Debug("views registered")

	stack := alice.New(rayman.Middleware(logger), f.Middleware)
	return stack.Then(router), nil
}

func bindRoutes(r *mux.Router, reg *jigsaw.Registry, renderer jigsaw.Renderer, editable bool) {
	handler := func(class string, mode jigsaw.Mode) http.Handler {
		return reg.MustLookup(class).Handler(mode, jigsaw.RendererOption(renderer))
	}

	r.Handle("/projects/", handler("project", jigsaw.ModeList))
	r.Handle("/projects/{slug}/", handler("project_page", jigsaw.ModeDetail))
	r.Handle("/bugs/", handler("bug", jigsaw.ModeList))
	r.Handle("/bugs/{pk:[0-9]+}/", handler("bug", jigsaw.ModeDetail))
	if !editable {
		return
	}

	r.Handle("/projects/new", handler("project", jigsaw.ModeNew))
	r.Handle("/projects/{slug}/edit", handler("project", jigsaw.ModeUpdate))
	r.Handle("/projects/{slug}/milestones", handler("milestones", jigsaw.ModeUpdate))
	r.Handle("/bugs/new", handler("bug", jigsaw.ModeNew))
	r.Handle("/bugs/{pk:[0-9]+}/edit", handler("bug", jigsaw.ModeUpdate))
}
