// Package formstate holds the answers entered while filling a form.
//
// A Store is owned by a single writer: the code driving one form fill.
// It is not safe for concurrent use.
package formstate

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/dynaform/model"
)

var (
	ErrUnknownField = errors.New("field not declared in schema")
	ErrKindMismatch = errors.New("answer kind does not match field type")
)

// Answer is the current value of one field: a single string, or an ordered
// set of options for checkbox groups.
type Answer struct {
	Multi   bool
	Text    string
	Choices []string
}

func (a Answer) Empty() bool {
	if a.Multi {
		return len(a.Choices) == 0
	}
	return strings.TrimSpace(a.Text) == ""
}

// Value returns the answer as it appears in response data.
func (a Answer) Value() any {
	if a.Multi {
		return append([]string{}, a.Choices...)
	}
	return a.Text
}

func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value())
}

func (a Answer) clone() Answer {
	if a.Multi {
		a.Choices = append([]string{}, a.Choices...)
	}
	return a
}

type Store struct {
	values map[string]map[string]Answer
}

// New seeds a store from s: one entry per section and field, an empty
// string for single value fields and an empty list for checkbox groups.
func New(s model.Schema) *Store {
	st := &Store{values: make(map[string]map[string]Answer, len(s.Sections))}
	for _, sec := range s.Sections {
		fields := make(map[string]Answer, len(sec.Fields))
		for _, f := range sec.Fields {
			if f.Type.Multi() {
				fields[f.Key()] = Answer{Multi: true, Choices: []string{}}
			} else {
				fields[f.Key()] = Answer{}
			}
		}
		st.values[sec.Key()] = fields
	}
	return st
}

// Load seeds a store from s and fills it with a previously stored response.
// Entries of data that s does not declare are dropped.
func Load(s model.Schema, data model.ResponseData) (*Store, error) {
	st := New(s)
	for section, fields := range data {
		for label, value := range fields {
			cur, ok := st.Get(section, label)
			if !ok {
				continue
			}
			var err error
			switch v := value.(type) {
			case nil:
			case string:
				err = st.Set(section, label, v)
			case []string:
				err = st.SetChoices(section, label, v)
			case []any:
				choices := make([]string, 0, len(v))
				for _, c := range v {
					if str, ok := c.(string); ok {
						choices = append(choices, str)
					}
				}
				err = st.SetChoices(section, label, choices)
			default:
				if cur.Multi {
					err = ErrKindMismatch
				} else {
					err = st.Set(section, label, toString(v))
				}
			}
			if err != nil {
				return nil, errors.Wrapf(err, "load %s/%s", section, label)
			}
		}
	}
	return st, nil
}

func toString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func (st *Store) entry(section, label string) (map[string]Answer, string, Answer, bool) {
	fields, ok := st.values[strings.TrimSpace(section)]
	if !ok {
		return nil, "", Answer{}, false
	}
	key := strings.TrimSpace(label)
	a, ok := fields[key]
	return fields, key, a, ok
}

// Get returns the answer for a field. Labels are compared trimmed.
func (st *Store) Get(section, label string) (Answer, bool) {
	_, _, a, ok := st.entry(section, label)
	return a.clone(), ok
}

// Set replaces the value of a single value field.
func (st *Store) Set(section, label, value string) error {
	fields, key, a, ok := st.entry(section, label)
	if !ok {
		return errors.Wrapf(ErrUnknownField, "%s/%s", section, label)
	}
	if a.Multi {
		return errors.Wrapf(ErrKindMismatch, "%s/%s", section, label)
	}
	fields[key] = Answer{Text: value}
	return nil
}

// SetChoices replaces the whole option list of a checkbox group. Duplicates
// are dropped, first occurrence wins.
func (st *Store) SetChoices(section, label string, choices []string) error {
	fields, key, a, ok := st.entry(section, label)
	if !ok {
		return errors.Wrapf(ErrUnknownField, "%s/%s", section, label)
	}
	if !a.Multi {
		return errors.Wrapf(ErrKindMismatch, "%s/%s", section, label)
	}
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		if !contains(out, c) {
			out = append(out, c)
		}
	}
	fields[key] = Answer{Multi: true, Choices: out}
	return nil
}

// Toggle adds option to a checkbox group when included is true and it is
// not there yet, or removes every occurrence of it otherwise. Surviving
// options keep their insertion order.
func (st *Store) Toggle(section, label, option string, included bool) error {
	fields, key, a, ok := st.entry(section, label)
	if !ok {
		return errors.Wrapf(ErrUnknownField, "%s/%s", section, label)
	}
	if !a.Multi {
		return errors.Wrapf(ErrKindMismatch, "%s/%s", section, label)
	}

	var choices []string
	if included {
		if contains(a.Choices, option) {
			return nil
		}
		choices = make([]string, 0, len(a.Choices)+1)
		choices = append(choices, a.Choices...)
		choices = append(choices, option)
	} else {
		choices = make([]string, 0, len(a.Choices))
		for _, c := range a.Choices {
			if c != option {
				choices = append(choices, c)
			}
		}
	}
	fields[key] = Answer{Multi: true, Choices: choices}
	return nil
}

// Values returns a deep copy of the store content.
func (st *Store) Values() map[string]map[string]Answer {
	out := make(map[string]map[string]Answer, len(st.values))
	for section, fields := range st.values {
		cp := make(map[string]Answer, len(fields))
		for label, a := range fields {
			cp[label] = a.clone()
		}
		out[section] = cp
	}
	return out
}

func (st *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(st.values)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
