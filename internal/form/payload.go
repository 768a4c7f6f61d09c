package form

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Pair is one name/value of an urlencoded body.
type Pair struct {
	Name  string
	Value string
}

// Payload is an ordered urlencoded body. It exists because url.Values is a
// map and the console expects fields in form order.
type Payload []Pair

// Encode renders the payload as application/x-www-form-urlencoded in order.
func (p Payload) Encode() string {
	var b strings.Builder
	for i, pair := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair.Value))
	}
	return b.String()
}

// EncodeCharset renders the payload like Encode but first converts names and
// values into the named page charset, as a browser submitting that page would.
// Unknown charsets and unrepresentable values fall back to UTF-8.
func (p Payload) EncodeCharset(charset string) string {
	charset = strings.TrimSpace(charset)
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return p.Encode()
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return p.Encode()
	}
	encoder := enc.NewEncoder()
	convert := func(s string) string {
		out, err := encoder.String(s)
		if err != nil {
			return s
		}
		return out
	}
	converted := make(Payload, len(p))
	for i, pair := range p {
		converted[i] = Pair{Name: convert(pair.Name), Value: convert(pair.Value)}
	}
	return converted.Encode()
}

// ParsePayload decodes an urlencoded body, keeping order and duplicates.
func ParsePayload(body string) (Payload, error) {
	if body == "" {
		return Payload{}, nil
	}
	parts := strings.Split(body, "&")
	out := make(Payload, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		rawName, rawValue, _ := strings.Cut(part, "=")
		name, err := url.QueryUnescape(rawName)
		if err != nil {
			return nil, fmt.Errorf("decode field name %q: %w", rawName, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", name, err)
		}
		out = append(out, Pair{Name: name, Value: value})
	}
	return out, nil
}

// Get returns the first value for name.
func (p Payload) Get(name string) (string, bool) {
	for _, pair := range p {
		if pair.Name == name {
			return pair.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order, duplicates included.
func (p Payload) Names() []string {
	names := make([]string, len(p))
	for i, pair := range p {
		names[i] = pair.Name
	}
	return names
}

// Serialize returns what a browser would submit for the form when the named
// button is pressed: disabled and nameless controls are skipped, unchecked
// checkboxes and radios are omitted, and of the button controls only the
// pressed one is sent. If the form has no such button it is appended with
// buttonValue, matching the console's own submit.
func (f Form) Serialize(button, buttonValue string) Payload {
	out := make(Payload, 0, len(f.Fields)+1)
	pressed := false
	for _, field := range f.Fields {
		if field.Name == "" || field.Disabled {
			continue
		}
		switch field.Type {
		case "checkbox", "radio":
			if !field.Checked {
				continue
			}
			value := field.Value
			if value == "" {
				value = "on"
			}
			out = append(out, Pair{Name: field.Name, Value: value})
		case "submit", "button", "reset":
			if pressed || button == "" || field.Name != button {
				continue
			}
			pressed = true
			out = append(out, Pair{Name: field.Name, Value: field.Value})
		case "image", "file":
			continue
		default:
			out = append(out, Pair{Name: field.Name, Value: field.Value})
		}
	}
	if button != "" && !pressed {
		out = append(out, Pair{Name: button, Value: buttonValue})
	}
	return out
}
