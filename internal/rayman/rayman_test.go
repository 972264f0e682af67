package rayman

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()

	var seen ID
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromRequest(r)
		if !ok {
			t.Fatal("request carries no ray")
		}
		seen = id
		RequestLogger(r).Info("hello")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/bug/1", nil))

	if got := rr.Header().Get(Header); got == "" || ID(got) != seen {
		t.Fatalf("unexpected %s header %q (ray %q)", Header, got, seen)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("nothing was logged")
	}
	if entry.Data["ray"] != seen || entry.Data["path"] != "/bug/1" {
		t.Errorf("unexpected log fields: %v", entry.Data)
	}
}

func TestContextLoggerFallback(t *testing.T) {
	if ContextLogger(context.Background()) != logrus.StandardLogger() {
		t.Error("expected the standard logger for a bare context")
	}
}
