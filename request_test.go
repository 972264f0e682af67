package jigsaw

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func TestNewRequest(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		r := mux.SetURLVars(httptest.NewRequest("GET", "/bugs/3/?page=2", nil), map[string]string{"pk": "3"})
		req, err := NewRequest(r)
		if err != nil {
			t.Fatal(err)
		}
		if req.Submitted() || req.Data != nil {
			t.Error("GET treated as a submission")
		}
		if pk, ok := req.Var("pk"); !ok || pk != "3" {
			t.Errorf("pk %q", pk)
		}
		if req.Query.Get("page") != "2" {
			t.Errorf("query %v", req.Query)
		}
	})

	t.Run("Form", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/bugs/new?next=x", strings.NewReader(url.Values{"title": {"crash"}}.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req, err := NewRequest(r)
		if err != nil {
			t.Fatal(err)
		}
		if !req.Submitted() || req.Data.Get("title") != "crash" || req.Data.Get("next") != "" {
			t.Errorf("data %v", req.Data)
		}
		if req.Vars == nil {
			t.Error("nil vars")
		}
	})

	t.Run("Multipart", func(t *testing.T) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		mw.WriteField("title", "crash")
		fw, _ := mw.CreateFormFile("attachment", "trace.txt")
		fw.Write([]byte("panic: oops"))
		mw.Close()

		r := httptest.NewRequest("PUT", "/bugs/3/", body)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		req, err := NewRequest(r)
		if err != nil {
			t.Fatal(err)
		}
		if req.Data.Get("title") != "crash" || len(req.Files["attachment"]) != 1 {
			t.Errorf("data %v files %v", req.Data, req.Files)
		}
	})

	var nilReq *Request
	if _, ok := nilReq.Var("pk"); ok {
		t.Error("nil request has vars")
	}
	if nilReq.Context() == nil {
		t.Error("nil request has no context")
	}
}
