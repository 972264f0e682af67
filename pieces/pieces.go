// Package pieces provides the stock pieces: objects and lists of a model,
// plain forms, model formsets and inline formsets.
//
// Each piece is declared with a configuration struct that doubles as its
// jigsaw.Factory:
//
//	var BugView = jigsaw.MustClass("bug",
//		jigsaw.Slot("bug", jigsaw.Declare(&pieces.Object{QuerySet: bugs, Form: bugForm})),
//	)
package pieces

import (
	"fmt"

	"howett.net/jigsaw"
)

func misconfigured(p *jigsaw.BasePiece, format string, args ...interface{}) error {
	err := &jigsaw.ConfigurationError{
		Piece:  p.Name(),
		Reason: fmt.Sprintf(format, args...),
	}
	if p.View != nil {
		err.Class = p.View.Class().Name()
	}
	return err
}

// formArgs fills in the submitted data when the request carries any.
func formArgs(req *jigsaw.Request, prefix string, initial map[string]interface{}) jigsaw.FormArgs {
	args := jigsaw.FormArgs{
		Prefix:  prefix,
		Initial: make(map[string]interface{}, len(initial)),
	}
	for k, v := range initial {
		args.Initial[k] = v
	}
	if req != nil && req.Submitted() {
		args.Data = req.Data
		args.Files = req.Files
	}
	return args
}

// formFromContext prefers the form already placed in ctx under k.
func formFromContext(ctx *jigsaw.Context, k jigsaw.Key, fallback jigsaw.Form) jigsaw.Form {
	if ctx != nil {
		if f, ok := ctx.Get(k).(jigsaw.Form); ok {
			return f
		}
	}
	return fallback
}
