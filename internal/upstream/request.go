package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes one call to the user-account API. It never carries credentials,
// the dispatcher attaches them.
type Request struct {
	Method string
	// Path is relative to the configured base URL, path segments have to be escaped already
	Path  string
	Query url.Values
	// Body is encoded as JSON when not nil
	Body any
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.Path)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into output. An empty body leaves output untouched.
func (r Response) Decode(output any) error {
	if len(r.Body) == 0 {
		return nil
	}
	err := json.Unmarshal(r.Body, output)
	if err != nil {
		return fmt.Errorf("cannot decode the response of the user-account API: %w", err)
	}
	return nil
}
