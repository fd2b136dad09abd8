package rpc

import (
	"encoding/json"
	"strings"
)

// decodeServerMessages unpacks the backend's _server_messages field: a JSON string holding a list
// of JSON strings, each either a bare message or an object with a "message" key.
func decodeServerMessages(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []string{raw}
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if msg := strings.TrimSpace(decodeServerMessage(entry)); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

func decodeServerMessage(entry string) string {
	var obj struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal([]byte(entry), &obj); err == nil && obj.Message != nil {
		var text string
		if err := json.Unmarshal(obj.Message, &text); err == nil {
			return text
		}
		return string(obj.Message)
	}

	var text string
	if err := json.Unmarshal([]byte(entry), &text); err == nil {
		return text
	}
	return entry
}
