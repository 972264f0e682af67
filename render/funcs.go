package render

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday"
)

var sanitationPolicy *bluemonday.Policy

func init() {
	sanitationPolicy = bluemonday.UGCPolicy()
	sanitationPolicy.AllowAttrs("class").OnElements("div", "i", "span", "code")
}

// Markdown renders src as sanitized HTML.
func Markdown(src string) template.HTML {
	renderer := blackfriday.HtmlRenderer(blackfriday.HTML_SAFELINK|blackfriday.HTML_NOFOLLOW_LINKS, "", "")
	md := blackfriday.Markdown([]byte(src), renderer,
		blackfriday.EXTENSION_NO_INTRA_EMPHASIS|
			blackfriday.EXTENSION_TABLES|
			blackfriday.EXTENSION_AUTOLINK|
			blackfriday.EXTENSION_FENCED_CODE|
			blackfriday.EXTENSION_STRIKETHROUGH)
	return template.HTML(sanitationPolicy.SanitizeBytes(md))
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

type fielder interface {
	String(name string) string
}

func field(obj interface{}, name string) string {
	switch o := obj.(type) {
	case fielder:
		return o.String(name)
	case map[string]interface{}:
		if v, ok := o[name]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func query(r *http.Request, key string, value interface{}) string {
	if r == nil {
		return ""
	}
	q := r.URL.Query()
	q.Set(key, fmt.Sprint(value))
	return "?" + q.Encode()
}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"now":      time.Now,
		"markdown": Markdown,
		"humanize_time": func(t time.Time) string {
			return humanize.Time(t)
		},
		"comma": func(v interface{}) string {
			return humanize.Comma(toInt64(v))
		},
		"bytes": func(v interface{}) string {
			return humanize.IBytes(uint64(toInt64(v)))
		},
		"ordinal": func(v interface{}) string {
			return humanize.Ordinal(int(toInt64(v)))
		},
		"field": field,
		"query": query,
	}
}
