package xcodetools

import (
	"encoding/json"
	"fmt"
	"strings"

	"xcodebridge/internal/security"
)

// Argument coercion. JSON-RPC clients send numbers as float64 and are
// inconsistent about optional list parameters, so coercion is deliberately
// tolerant: absent and empty both mean "use the default".

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &parsed); err == nil {
			return parsed, nil
		}
	}
	return 0, fmt.Errorf("%w: %s must be an integer", security.ErrInvalidParameter, key)
}

// boolPtrArg distinguishes "not provided" (nil) from an explicit value.
func boolPtrArg(args map[string]any, key string) (*bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch b := v.(type) {
	case bool:
		return &b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			t := true
			return &t, nil
		case "false", "no", "0":
			f := false
			return &f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be a boolean", security.ErrInvalidParameter, key)
}

// testListArg normalizes the tests_to_run parameter. Clients variously send
// a real array, a JSON-encoded array as a string, a comma-separated string,
// or the literals "[]"/"null"/"" for "run everything"; all are accepted.
func testListArg(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch list := v.(type) {
	case []any:
		var out []string
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s entries must be strings", security.ErrInvalidParameter, key)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []string:
		return list, nil
	case string:
		s := strings.TrimSpace(list)
		if s == "" || s == "[]" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") {
			var parsed []string
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				return parsed, nil
			}
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s must be a list of test identifiers", security.ErrInvalidParameter, key)
}
