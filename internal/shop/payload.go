package shop

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexBool accepts the backend's 0/1, "0"/"1" and true/false flags.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "0", "false", "no":
			*b = false
		default:
			*b = true
		}
		return nil
	}
	*b = flexBool(Truthy(data))
	return nil
}

// flexInt accepts integers encoded as JSON numbers (including 2.0) or numeric strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*n = flexInt(math.Round(f))
	return nil
}

// Truthy reports whether a JSON payload would count as true in the storefront's browser
// scripts: null, false, 0 and "" are false; any other value, including empty objects and
// arrays, is true.
func Truthy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case 'n':
		return false
	case 't':
		return true
	case 'f':
		return false
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return false
		}
		return s != ""
	case '{', '[':
		return true
	default:
		f, err := strconv.ParseFloat(string(trimmed), 64)
		return err == nil && f != 0 && !math.IsNaN(f)
	}
}
