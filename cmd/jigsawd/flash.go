package main

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"

	"howett.net/jigsaw"
	"howett.net/jigsaw/internal/rayman"
)

const sessionName = "jigsaw"

type flashKey struct{}

// flashes carries one-shot messages across a redirect in a session cookie.
type flashes struct {
	store sessions.Store
}

// Middleware moves pending messages from the session into the request
// context, clearing them from the session.
func (f *flashes) Middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := f.store.Get(r, sessionName)
		if err != nil {
			// a session we cannot decode is replaced by a fresh one.
			rayman.RequestLogger(r).WithError(err).Warn("discarding session")
		}
		if msgs := sess.Flashes(); len(msgs) > 0 {
			if err := sess.Save(r, w); err != nil {
				rayman.RequestLogger(r).WithError(err).Error("failed to save session")
			}
			r = r.WithContext(context.WithValue(r.Context(), flashKey{}, msgs))
		}
		h.ServeHTTP(w, r)
	})
}

// After wraps a result so that message is shown on the next page.
func (f *flashes) After(res jigsaw.Result, message string) jigsaw.Result {
	if res == nil {
		return nil
	}
	return &flashResult{Result: res, store: f.store, message: message}
}

type flashResult struct {
	jigsaw.Result
	store   sessions.Store
	message string
}

func (fr *flashResult) Respond(w http.ResponseWriter, r *http.Request) {
	sess, _ := fr.store.Get(r, sessionName)
	sess.AddFlash(fr.message)
	if err := sess.Save(r, w); err != nil {
		rayman.RequestLogger(r).WithFields(logrus.Fields{
			"error":   err,
			"message": fr.message,
		}).Error("failed to save flash")
	}
	fr.Result.Respond(w, r)
}

type messagesPiece struct {
	*jigsaw.BasePiece
}

// Contribute exposes the request's messages under the piece's name.
func (p *messagesPiece) Contribute(ctx *jigsaw.Context, req *jigsaw.Request) (*jigsaw.Context, error) {
	var msgs []string
	if pending, ok := req.Context().Value(flashKey{}).([]interface{}); ok {
		for _, m := range pending {
			if s, ok := m.(string); ok {
				msgs = append(msgs, s)
			}
		}
	}
	ctx.Set(jigsaw.K(p.Name()), msgs)
	return ctx, nil
}

var messages = jigsaw.FactoryFunc(func(b jigsaw.Binding) (jigsaw.Piece, error) {
	return &messagesPiece{BasePiece: jigsaw.NewBasePiece(b)}, nil
})
