// Package tickets turns ticketing-provider webhooks into identity and
// token-account changes.
package tickets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// fields holds the raw members of one JSON object. Members are only decoded
// when a check asks for them.
type fields map[string]json.RawMessage

// text reads a string or number member. Absent, null and any other JSON type
// report ok=false.
func (f fields) text(key string) (string, bool) {
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}

// optionalText is text with the failure collapsed to "".
func (f fields) optionalText(key string) string {
	s, _ := f.text(key)
	return s
}

// object reads a nested JSON object member.
func (f fields) object(key string) (fields, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var nested fields
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, false
	}
	return nested, true
}

// WebhookPayload is a Flicket webhook body that is known to be a JSON object.
// Unknown members are ignored and known ones may hold any JSON type.
type WebhookPayload struct {
	members fields
}

// EventID returns the trimmed event_id, or "" when it is absent or not text.
func (p WebhookPayload) EventID() string {
	return strings.TrimSpace(p.members.optionalText("event_id"))
}

var errNotObject = errors.New("payload must be a JSON object")

// ParsePayload accepts any single JSON object. Only bodies that are not JSON,
// or are JSON of another shape, are errors.
func ParsePayload(body []byte) (WebhookPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return WebhookPayload{}, errNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var members fields
	if err := dec.Decode(&members); err != nil {
		return WebhookPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if dec.More() {
		return WebhookPayload{}, errors.New("trailing data after payload")
	}
	return WebhookPayload{members: members}, nil
}
