package model

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

type FieldType string

const (
	FieldText          FieldType = "text"
	FieldNumber        FieldType = "number"
	FieldEmail         FieldType = "email"
	FieldDate          FieldType = "date"
	FieldSelect        FieldType = "select"
	FieldRadioGroup    FieldType = "radio-group"
	FieldCheckboxGroup FieldType = "checkbox-group"
)

var fieldTypes = []FieldType{
	FieldText,
	FieldNumber,
	FieldEmail,
	FieldDate,
	FieldSelect,
	FieldRadioGroup,
	FieldCheckboxGroup,
}

// FieldTypes returns every supported field type, in builder order.
func FieldTypes() []FieldType {
	return append([]FieldType(nil), fieldTypes...)
}

func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// HasOptions reports whether answers must be picked from Field.Options.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadioGroup || t == FieldCheckboxGroup
}

// Multi reports whether the answer is a sequence of options.
func (t FieldType) Multi() bool {
	return t == FieldCheckboxGroup
}

// Options is the ordered list of choices of a select, radio-group or
// checkbox-group field. The form builder stores them either as a JSON array
// or as a single comma separated string; both decode to the same list.
type Options []string

func (o *Options) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*o = nil
	case string:
		*o = splitOptions(strings.Split(v, ","))
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("option %v is not a string", item)
			}
			items = append(items, s)
		}
		*o = splitOptions(items)
	default:
		return fmt.Errorf("options must be a list or a comma separated string, got %T", raw)
	}
	return nil
}

func splitOptions(items []string) Options {
	opts := Options{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			opts = append(opts, item)
		}
	}
	return opts
}

type Field struct {
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Options     Options   `json:"options,omitempty"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// Key is the label used to address the field's answer.
func (f Field) Key() string {
	return strings.TrimSpace(f.Label)
}

type Section struct {
	Name   string  `json:"sectionname"`
	Fields []Field `json:"fields"`
}

func (s Section) Key() string {
	return strings.TrimSpace(s.Name)
}

type Schema struct {
	Sections []Section `json:"sections"`
}

// Check verifies the lookup-key invariants: section names are unique within
// the schema, trimmed field labels are unique within their section.
func (s Schema) Check() error {
	sections := make(map[string]bool, len(s.Sections))
	for _, sec := range s.Sections {
		if sections[sec.Key()] {
			return fmt.Errorf("duplicate section %q", sec.Key())
		}
		sections[sec.Key()] = true

		labels := make(map[string]bool, len(sec.Fields))
		for _, f := range sec.Fields {
			if labels[f.Key()] {
				return fmt.Errorf("duplicate field %q in section %q", f.Key(), sec.Key())
			}
			labels[f.Key()] = true
		}
	}
	return nil
}

// Field looks a field up by section name and label, both compared trimmed.
func (s Schema) Field(section, label string) (Field, bool) {
	section = strings.TrimSpace(section)
	label = strings.TrimSpace(label)
	for _, sec := range s.Sections {
		if sec.Key() != section {
			continue
		}
		for _, f := range sec.Fields {
			if f.Key() == label {
				return f, true
			}
		}
	}
	return Field{}, false
}
