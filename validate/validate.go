// Package validate decides whether a filled form may be submitted.
package validate

import (
	"fmt"
	"strings"

	"github.com/mbolis/dynaform/formstate"
	"github.com/mbolis/dynaform/model"
)

// ValidationError names the first required field left empty.
type ValidationError struct {
	Section string
	Field   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fill required fields: %q in section %q is empty", e.Field, e.Section)
}

// Check walks s in order and returns a *ValidationError for the first
// required field whose answer is empty or absent. Whitespace-only text
// counts as empty. Optional fields never block submission.
func Check(s model.Schema, st *formstate.Store) error {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if !f.Required {
				continue
			}
			a, ok := st.Get(sec.Key(), f.Key())
			if !ok || a.Multi != f.Type.Multi() || a.Empty() {
				return &ValidationError{Section: sec.Key(), Field: f.Key()}
			}
		}
	}
	return nil
}

func IsSubmittable(s model.Schema, st *formstate.Store) bool {
	return Check(s, st) == nil
}

// CheckResponse applies the required field rule to transformed response
// data, as received by the backend.
func CheckResponse(s model.Schema, data model.ResponseData) error {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if !f.Required {
				continue
			}
			if empty(data[sec.Key()][f.Key()], f.Type.Multi()) {
				return &ValidationError{Section: sec.Key(), Field: f.Key()}
			}
		}
	}
	return nil
}

func empty(v any, multi bool) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return multi || strings.TrimSpace(val) == ""
	case []any:
		return !multi || len(val) == 0
	case []string:
		return !multi || len(val) == 0
	default:
		return multi
	}
}
