package chain

import (
	"encoding/json"
	"net/http"
)

// Response is the synchronous result of a successful event handler.
type Response struct {
	StatusCode int // Default: [http.StatusOK].
	Header     http.Header
	Body       []byte
}

// OK is an empty 200 response.
func OK() *Response {
	return &Response{}
}

func Text(s string) *Response {
	return &Response{
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   []byte(s),
	}
}

func JSON(v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return &Response{
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   b,
	}, nil
}

// Redirect is a 302 response.
func Redirect(url string) *Response {
	return &Response{
		StatusCode: http.StatusFound,
		Header:     http.Header{"Location": {url}},
	}
}

func (r *Response) write(w http.ResponseWriter) error {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}
