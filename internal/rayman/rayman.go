// Package rayman tags every request with a ray: a unique ID carried in the
// request context, echoed in a response header, and attached to a
// request-scoped logger.
package rayman

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Header is the response header the ray ID is echoed in.
const Header = "X-Ray-ID"

type ID string

type key int

const (
	rayKey key = iota
	loggerKey
)

func newRayID() ID {
	return ID(uuid.New().String())
}

// ContextWithRay returns ctx carrying a fresh ray ID.
func ContextWithRay(ctx context.Context) context.Context {
	return context.WithValue(ctx, rayKey, newRayID())
}

// FromContext returns the ray ID carried by ctx.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(rayKey).(ID)
	return id, ok
}

// FromRequest returns the ray ID of r.
func FromRequest(r *http.Request) (ID, bool) {
	return FromContext(r.Context())
}

func contextWithLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// ContextLogger returns the logger bound to ctx, or the standard logger.
func ContextLogger(ctx context.Context) logrus.FieldLogger {
	if l, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return l
	}
	return logrus.StandardLogger()
}

// RequestLogger returns the logger bound to r.
func RequestLogger(r *http.Request) logrus.FieldLogger {
	return ContextLogger(r.Context())
}

// Middleware returns an alice-compatible constructor that assigns a ray to
// every request and binds a logger carrying it.
func Middleware(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ContextWithRay(r.Context())
			rid, _ := FromContext(ctx)
			rayed := logger.WithFields(logrus.Fields{
				"ray":    rid,
				"method": r.Method,
				"path":   r.URL.Path,
			})
			w.Header().Set(Header, string(rid))
			h.ServeHTTP(w, r.WithContext(contextWithLogger(ctx, rayed)))
		})
	}
}
