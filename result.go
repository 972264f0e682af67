package jigsaw

import "net/http"

// Result short-circuits rendering: when a piece's dispatch yields one, it
// becomes the response.
type Result interface {
	Respond(w http.ResponseWriter, r *http.Request)
}

// Redirect is a Result that sends the client elsewhere.
type Redirect struct {
	URL    string
	Status int
}

// NewRedirect returns a 302 redirect to url.
func NewRedirect(url string) *Redirect {
	return &Redirect{URL: url, Status: http.StatusFound}
}

func (rd *Redirect) Respond(w http.ResponseWriter, r *http.Request) {
	status := rd.Status
	if status == 0 {
		status = http.StatusFound
	}
	http.Redirect(w, r, rd.URL, status)
}

// Page is what a Renderer receives when no piece short-circuits.
type Page struct {
	Template string
	Mode     Mode
	Context  *Context
	Request  *Request
}

// Renderer turns pages and errors into responses.
type Renderer interface {
	Error(w http.ResponseWriter, r *http.Request, err error)
	Render(w http.ResponseWriter, r *http.Request, status int, v interface{})
}
