// Package schema turns the JSON encoded form definitions served by the
// backend into model.Schema values.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/dynaform/model"
)

// ErrSchemaParse matches every error returned by Normalize.
var ErrSchemaParse = errors.New("unable to load form")

type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "schema: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrSchemaParse }

type UnknownFieldTypeError struct {
	Section string
	Label   string
	Type    model.FieldType
}

func (e *UnknownFieldTypeError) Error() string {
	return fmt.Sprintf("schema: field %q in section %q has unknown type %q", e.Label, e.Section, e.Type)
}

func (e *UnknownFieldTypeError) Is(target error) bool { return target == ErrSchemaParse }

var (
	reTrailingBracket = regexp.MustCompile(`,\s*]`)
	reTrailingBrace   = regexp.MustCompile(`,\s*}`)
)

// Repair applies the fixed sequence of textual fixes used when a schema
// does not decode as is.
func Repair(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\t", "")
	s = reTrailingBracket.ReplaceAllString(s, "]")
	s = reTrailingBrace.ReplaceAllString(s, "}")
	return s
}

// Normalize accepts an already structured schema, or a string (or bytes)
// believed to hold one as JSON. Strings that fail to decode are repaired
// once and decoded again. The result is checked: every field must have a
// known type, choice fields must have options, and lookup keys must be
// unique.
func Normalize(v any) (model.Schema, error) {
	var s model.Schema
	switch src := v.(type) {
	case model.Schema:
		s = src
	case *model.Schema:
		if src == nil {
			return s, &ParseError{errors.New("nil schema")}
		}
		s = *src
	case string:
		return Parse(src)
	case []byte:
		return Parse(string(src))
	case json.RawMessage:
		return parseRaw(src)
	case nil:
		return s, &ParseError{errors.New("missing schema")}
	default:
		// already decoded JSON, e.g. map[string]any
		data, err := json.Marshal(src)
		if err != nil {
			return s, &ParseError{errors.Wrap(err, "re-encode")}
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return s, &ParseError{errors.Wrap(err, "decode")}
		}
	}

	if err := check(s); err != nil {
		return model.Schema{}, err
	}
	return s, nil
}

// Parse decodes a JSON encoded schema, repairing it once if needed.
func Parse(text string) (model.Schema, error) {
	var s model.Schema
	err := json.Unmarshal([]byte(text), &s)
	if err != nil {
		s = model.Schema{}
		if retryErr := json.Unmarshal([]byte(Repair(text)), &s); retryErr != nil {
			return model.Schema{}, &ParseError{errors.Wrap(retryErr, "decode")}
		}
	}

	if err := check(s); err != nil {
		return model.Schema{}, err
	}
	return s, nil
}

// A raw message may itself hold a JSON string, which is how the backend
// serves the schema column.
func parseRaw(raw json.RawMessage) (model.Schema, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return Parse(text)
	}
	return Parse(string(raw))
}

func check(s model.Schema) error {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if !f.Type.Valid() {
				return &UnknownFieldTypeError{Section: sec.Key(), Label: f.Key(), Type: f.Type}
			}
			if f.Key() == "" {
				return &ParseError{errors.Errorf("field without label in section %q", sec.Key())}
			}
			if f.Type.HasOptions() && len(f.Options) == 0 {
				return &ParseError{errors.Errorf("field %q in section %q has no options", f.Key(), sec.Key())}
			}
		}
	}
	if err := s.Check(); err != nil {
		return &ParseError{err}
	}
	return nil
}

// Encode produces the JSON string stored in the schema column.
func Encode(s model.Schema) (string, error) {
	if err := check(s); err != nil {
		return "", err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "schema.encode")
	}
	return string(data), nil
}
