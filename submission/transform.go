// Package submission builds wire payloads from filled forms and drives the
// submit flow.
package submission

import (
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/mbolis/dynaform/formstate"
	"github.com/mbolis/dynaform/model"
)

// Meta carries the payload attributes that do not come from the answers.
type Meta struct {
	FormID    int
	FormTitle string
	Sender    string
}

// Transform reshapes the answers of st into a submission payload.
//
// Only fields declared in s are read. Empty text answers and empty option
// lists are left out, and so are sections left with no answers, so an
// untouched form yields empty response data.
func Transform(s model.Schema, st *formstate.Store, meta Meta) model.Submission {
	data := model.ResponseData{}
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			a, ok := st.Get(sec.Key(), f.Key())
			if !ok || a.Multi != f.Type.Multi() {
				continue
			}
			if (a.Multi && len(a.Choices) == 0) || (!a.Multi && a.Text == "") {
				continue
			}

			fields, ok := data[sec.Key()]
			if !ok {
				fields = map[string]any{}
				data[sec.Key()] = fields
			}
			fields[f.Key()] = a.Value()
		}
	}

	return model.Submission{
		Form:         meta.FormID,
		FormTitle:    meta.FormTitle,
		ResponseData: data,
		Sender:       meta.Sender,
	}
}

// Stamp gives sub a fresh idempotency key, unless it already has one.
func Stamp(sub *model.Submission) error {
	if sub.IdempotencyKey != "" {
		return nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return errors.Wrap(err, "submission.stamp")
	}
	sub.IdempotencyKey = id.String()
	return nil
}
