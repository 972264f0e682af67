// Package forms implements schema-driven model forms and formsets over
// store records.
package forms

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind selects how a field's submitted text is cleaned.
type Kind int

const (
	String Kind = iota
	Text
	Int
	Bool
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Int:
		return "int"
	case Bool:
		return "bool"
	}
	return "string"
}

const (
	msgRequired  = "This field is required."
	msgInt       = "Enter a whole number."
	msgMaxLength = "Ensure this value has at most %d characters (it has %d)."
)

// Field describes one editable column.
type Field struct {
	Name      string
	Label     string
	Kind      Kind
	Required  bool
	MaxLength int
}

// DisplayLabel returns Label, or a label derived from Name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	l := strings.ReplaceAll(f.Name, "_", " ")
	if l == "" {
		return l
	}
	return strings.ToUpper(l[:1]) + l[1:]
}

// clean converts submitted text into the field's value. An empty optional
// field cleans to nil.
func (f Field) clean(raw string) (interface{}, []string) {
	if f.Kind != Text {
		raw = strings.TrimSpace(raw)
	}

	if f.Kind == Bool {
		switch strings.ToLower(raw) {
		case "", "0", "false", "off", "no":
			if f.Required {
				return nil, []string{msgRequired}
			}
			return false, nil
		}
		return true, nil
	}

	if raw == "" {
		if f.Required {
			return nil, []string{msgRequired}
		}
		return nil, nil
	}

	switch f.Kind {
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, []string{msgInt}
		}
		return n, nil
	default:
		if n := utf8.RuneCountInString(raw); f.MaxLength > 0 && n > f.MaxLength {
			return nil, []string{fmt.Sprintf(msgMaxLength, f.MaxLength, n)}
		}
		return raw, nil
	}
}

// format renders a stored value back into form text.
func (f Field) format(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "on"
		}
		return ""
	case []byte:
		return string(v)
	}
	return fmt.Sprint(v)
}
