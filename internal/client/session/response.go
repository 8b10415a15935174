package session

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns nil for 2xx and a *RequestError otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}

	var body struct {
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(r.Body, &body); err == nil {
		msg = body.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", r.StatusCode)
	}
	return &RequestError{StatusCode: r.StatusCode, Message: msg}
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
