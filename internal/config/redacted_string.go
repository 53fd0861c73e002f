package config

import (
	"encoding/json"
	"fmt"
)

// RedactedString is a string that never prints its value, used for secrets in the config
type RedactedString string

func (r RedactedString) String() string {
	return fmt.Sprintf("<redacted-%d-chars>", len(r))
}

func (r RedactedString) GoString() string {
	return r.String()
}

func (r RedactedString) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r RedactedString) MarshalBinary() ([]byte, error) {
	return []byte(r.String()), nil
}
