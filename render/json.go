package render

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"howett.net/jigsaw"
)

// JSON renders pages as a JSON object of their context, and errors as
// {"error": ..., "status": ...}.
type JSON struct {
	Logger logrus.FieldLogger
}

var _ jigsaw.Renderer = &JSON{}

func (j *JSON) logger() logrus.FieldLogger {
	if j.Logger == nil {
		return logrus.StandardLogger()
	}
	return j.Logger
}

func (j *JSON) write(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		j.logger().WithField("error", err).Error("failed to encode response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	w.Write([]byte{'\n'})
}

func (j *JSON) Render(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if page, ok := v.(*jigsaw.Page); ok {
		v = map[string]interface{}{
			"template": page.Template,
			"mode":     page.Mode,
			"context":  page.Context.Map(),
		}
	}
	j.write(w, status, v)
}

func (j *JSON) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := jigsaw.StatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	j.write(w, status, map[string]interface{}{
		"error":  msg,
		"status": status,
	})
}
