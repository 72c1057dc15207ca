package rpc

import (
	"net/http"
	"net/url"
)

// Request describes one logical judge API call. Operation names the call in
// logs, metrics and errors.
type Request struct {
	Operation string
	Method    string
	Path      string
	Query     url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// Get builds a GET request.
func Get(operation, path string, query url.Values) Request {
	return Request{Operation: operation, Method: http.MethodGet, Path: path, Query: query}
}

// Post builds a POST request with a JSON body.
func Post(operation, path string, body any) Request {
	return Request{Operation: operation, Method: http.MethodPost, Path: path, Body: body}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}
