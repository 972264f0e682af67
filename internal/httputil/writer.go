// Package httputil holds response plumbing shared by jigsaw handlers.
package httputil

import (
	"bytes"
	"errors"
	"net/http"
)

// ErrFlushed is returned by Discard once the response has gone out.
var ErrFlushed = errors.New("httputil: response already flushed")

// BufferedResponseWriter holds the status, headers and body of a response
// until Flush, so a handler that fails half way through rendering can
// Discard what it wrote and start over.
type BufferedResponseWriter struct {
	w      http.ResponseWriter
	header http.Header
	buf    bytes.Buffer

	code    int
	flushed bool
}

// NewBufferedResponseWriter wraps w.
func NewBufferedResponseWriter(w http.ResponseWriter) *BufferedResponseWriter {
	return &BufferedResponseWriter{
		w:      w,
		header: make(http.Header),
	}
}

func (w *BufferedResponseWriter) Header() http.Header {
	return w.header
}

func (w *BufferedResponseWriter) WriteHeader(code int) {
	w.code = code
}

func (w *BufferedResponseWriter) Write(p []byte) (int, error) {
	if w.flushed {
		return w.w.Write(p)
	}
	return w.buf.Write(p)
}

// Status returns the status that will be sent.
func (w *BufferedResponseWriter) Status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}

// Discard drops everything written so far.
func (w *BufferedResponseWriter) Discard() error {
	if w.flushed {
		return ErrFlushed
	}
	w.buf.Reset()
	w.header = make(http.Header)
	w.code = 0
	return nil
}

// Flush sends the buffered response. Later writes go straight through.
func (w *BufferedResponseWriter) Flush() {
	if w.flushed {
		return
	}
	w.flushed = true

	dst := w.w.Header()
	for k, v := range w.header {
		dst[k] = v
	}
	if w.code != 0 {
		w.w.WriteHeader(w.code)
	}
	w.buf.WriteTo(w.w)
}
