package jigsaw

import (
	"context"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

const maxMultipartMemory = 32 << 20

// Request is the request-scoped input handed to pieces: the method, the
// submitted body, the query string and the keyword arguments extracted from
// the URL by the router.
type Request struct {
	Method string
	Data   url.Values
	Files  map[string][]*multipart.FileHeader
	Query  url.Values
	Vars   map[string]string

	// HTTP is the originating request, if any.
	HTTP *http.Request
}

// NewRequest builds a Request from r, parsing its body and picking up URL
// variables captured by gorilla/mux.
func NewRequest(r *http.Request) (*Request, error) {
	req := &Request{
		Method: r.Method,
		Query:  r.URL.Query(),
		Vars:   mux.Vars(r),
		HTTP:   r,
	}

	if req.Submitted() {
		var err error
		if r.MultipartForm == nil && isMultipart(r) {
			err = r.ParseMultipartForm(maxMultipartMemory)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return nil, err
		}
		req.Data = r.PostForm
		if r.MultipartForm != nil {
			req.Files = r.MultipartForm.File
		}
	}

	if req.Vars == nil {
		req.Vars = map[string]string{}
	}
	return req, nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// Submitted reports whether the request carries data pieces should act on.
func (r *Request) Submitted() bool {
	return r.Method == http.MethodPost || r.Method == http.MethodPut
}

// Context returns the context of the originating HTTP request.
func (r *Request) Context() context.Context {
	if r == nil || r.HTTP == nil {
		return context.Background()
	}
	return r.HTTP.Context()
}

// Var returns the URL keyword argument named name.
func (r *Request) Var(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.Vars[name]
	return v, ok
}
