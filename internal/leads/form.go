package leads

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CaptchaField is the key the intake form uses for the bot-check token.
const CaptchaField = "captcha"

// Form is the raw lead as submitted by the seller. Values are whatever the
// browser sent (usually strings, sometimes numbers or booleans).
type Form map[string]any

// Value returns the raw value for key. Nil values and blank strings count as
// absent.
func (f Form) Value(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

// String renders the value for key as trimmed text, or "" when absent.
func (f Form) String(key string) string {
	v, ok := f.Value(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Without returns a copy of the form minus the named keys.
func (f Form) Without(keys ...string) Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Address joins street, apartment, city, state and zip, skipping blanks.
func (f Form) Address() string {
	parts := make([]string, 0, 5)
	for _, key := range []string{"address", "apartment", "city", "state", "zip"} {
		if s := f.String(key); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
