package chain

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// Request is an inbound HTTP request whose body has already been read,
// so that classifiers can peek at the payload any number of times,
// and verifiers can compute signatures over the exact raw bytes.
type Request struct {
	*http.Request
	Body []byte

	form url.Values
}

// NewRequest reads the body of the given HTTP request, up to maxSize bytes.
// The returned error is an [*http.MaxBytesError] if the body is too large.
func NewRequest(w http.ResponseWriter, r *http.Request, maxSize int64) (*Request, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxSize))
		if err != nil {
			return nil, err
		}
	}

	return &Request{Request: r, Body: body}, nil
}

// MediaType returns the request's content type, without parameters.
func (r *Request) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func (r *Request) IsJSON() bool {
	return r.MediaType() == "application/json"
}

// Form returns the parsed body of a URL-encoded web form,
// or an empty map if the request doesn't contain one.
func (r *Request) Form() url.Values {
	if r.form != nil {
		return r.form
	}

	r.form = url.Values{}
	if r.MediaType() == "application/x-www-form-urlencoded" {
		if v, err := url.ParseQuery(string(r.Body)); err == nil {
			r.form = v
		}
	}
	return r.form
}

// Clone returns a copy of the original HTTP request, with a fresh body reader.
func (r *Request) Clone(ctx context.Context) *http.Request {
	c := r.Request.Clone(ctx)
	c.Body = io.NopCloser(bytes.NewReader(r.Body))
	c.ContentLength = int64(len(r.Body))
	return c
}
