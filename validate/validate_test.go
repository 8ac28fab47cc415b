package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/dynaform/formstate"
	"github.com/mbolis/dynaform/model"
)

var patient = model.Schema{Sections: []model.Section{{
	Name: "Patient Information",
	Fields: []model.Field{
		{Label: "Name", Type: model.FieldText, Required: true},
		{Label: "Allergies", Type: model.FieldCheckboxGroup, Options: model.Options{"Peanuts", "Latex"}},
	},
}}}

func TestRequiredTextField(t *testing.T) {
	st := formstate.New(patient)
	assert.False(t, IsSubmittable(patient, st))

	err := Check(patient, st)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Name", verr.Field)
	assert.Equal(t, "Patient Information", verr.Section)
	assert.Contains(t, err.Error(), "fill required fields")

	require.NoError(t, st.Set("Patient Information", "Name", "   "))
	assert.False(t, IsSubmittable(patient, st))

	require.NoError(t, st.Set("Patient Information", "Name", "Jane Doe"))
	assert.True(t, IsSubmittable(patient, st))
}

func TestRequiredCheckboxGroup(t *testing.T) {
	s := model.Schema{Sections: []model.Section{{
		Name: "History",
		Fields: []model.Field{
			{Label: "Conditions", Type: model.FieldCheckboxGroup, Options: model.Options{"Asthma", "Diabetes"}, Required: true},
		},
	}}}
	st := formstate.New(s)
	assert.False(t, IsSubmittable(s, st))

	require.NoError(t, st.Toggle("History", "Conditions", "Asthma", true))
	assert.True(t, IsSubmittable(s, st))

	require.NoError(t, st.Toggle("History", "Conditions", "Asthma", false))
	assert.False(t, IsSubmittable(s, st))
}

func TestFirstFailureWins(t *testing.T) {
	s := model.Schema{Sections: []model.Section{
		{Name: "A", Fields: []model.Field{{Label: "One", Type: model.FieldText, Required: true}}},
		{Name: "B", Fields: []model.Field{{Label: "Two", Type: model.FieldEmail, Required: true}}},
	}}
	st := formstate.New(s)

	var verr *ValidationError
	require.True(t, errors.As(Check(s, st), &verr))
	assert.Equal(t, "One", verr.Field)

	require.NoError(t, st.Set("A", "One", "x"))
	require.True(t, errors.As(Check(s, st), &verr))
	assert.Equal(t, "Two", verr.Field)
}

func TestMissingEntryFails(t *testing.T) {
	st := formstate.New(model.Schema{})
	assert.False(t, IsSubmittable(patient, st))
}

func TestCheckResponse(t *testing.T) {
	assert.Error(t, CheckResponse(patient, model.ResponseData{}))
	assert.Error(t, CheckResponse(patient, model.ResponseData{
		"Patient Information": {"Name": " "},
	}))
	assert.NoError(t, CheckResponse(patient, model.ResponseData{
		"Patient Information": {"Name": "Jane Doe"},
	}))

	s := model.Schema{Sections: []model.Section{{
		Name:   "H",
		Fields: []model.Field{{Label: "C", Type: model.FieldCheckboxGroup, Options: model.Options{"x"}, Required: true}},
	}}}
	assert.Error(t, CheckResponse(s, model.ResponseData{"H": {"C": []any{}}}))
	assert.Error(t, CheckResponse(s, model.ResponseData{"H": {"C": "x"}}))
	assert.NoError(t, CheckResponse(s, model.ResponseData{"H": {"C": []any{"x"}}}))
}
