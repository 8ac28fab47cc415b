package formstate

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/dynaform/model"
)

func testSchema() model.Schema {
	return model.Schema{Sections: []model.Section{
		{
			Name: "Patient Information",
			Fields: []model.Field{
				{Label: "Name", Type: model.FieldText, Required: true},
				{Label: "Allergies", Type: model.FieldCheckboxGroup, Options: model.Options{"Peanuts", "Latex"}},
			},
		},
		{
			Name: "Vitals",
			Fields: []model.Field{
				{Label: "  Pulse ", Type: model.FieldNumber},
				{Label: "Visit date", Type: model.FieldDate},
				{Label: "Sex", Type: model.FieldRadioGroup, Options: model.Options{"F", "M"}},
			},
		},
	}}
}

func TestNewSeedsEveryField(t *testing.T) {
	s := testSchema()
	st := New(s)

	values := st.Values()
	require.Len(t, values, len(s.Sections))
	for _, sec := range s.Sections {
		fields, ok := values[sec.Name]
		require.True(t, ok, sec.Name)
		require.Len(t, fields, len(sec.Fields))

		for _, f := range sec.Fields {
			a, ok := fields[f.Key()]
			require.True(t, ok, f.Label)
			assert.Equal(t, f.Type.Multi(), a.Multi, f.Label)
			assert.True(t, a.Empty(), f.Label)
			if f.Type.Multi() {
				assert.NotNil(t, a.Choices)
			}
		}
	}
}

func TestLabelsAreTrimmed(t *testing.T) {
	st := New(testSchema())

	require.NoError(t, st.Set("Vitals", "Pulse", "72"))
	a, ok := st.Get("Vitals", "  Pulse ")
	require.True(t, ok)
	assert.Equal(t, "72", a.Text)

	require.NoError(t, st.Set(" Vitals", "  Pulse ", "80"))
	a, ok = st.Get("Vitals", "Pulse")
	require.True(t, ok)
	assert.Equal(t, "80", a.Text)
}

func TestSetTouchesOneEntry(t *testing.T) {
	st := New(testSchema())
	before := st.Values()

	require.NoError(t, st.Set("Patient Information", "Name", "Jane Doe"))

	after := st.Values()
	after["Patient Information"]["Name"] = before["Patient Information"]["Name"]
	assert.Equal(t, before, after)
}

func TestSetErrors(t *testing.T) {
	st := New(testSchema())

	err := st.Set("Patient Information", "Age", "40")
	assert.True(t, errors.Is(err, ErrUnknownField))

	err = st.Set("Patient Information", "Allergies", "Latex")
	assert.True(t, errors.Is(err, ErrKindMismatch))

	err = st.Toggle("Patient Information", "Name", "x", true)
	assert.True(t, errors.Is(err, ErrKindMismatch))
}

func TestToggleIsIdempotent(t *testing.T) {
	st := New(testSchema())

	require.NoError(t, st.Toggle("Patient Information", "Allergies", "Latex", true))
	once, _ := st.Get("Patient Information", "Allergies")

	require.NoError(t, st.Toggle("Patient Information", "Allergies", "Latex", true))
	twice, _ := st.Get("Patient Information", "Allergies")

	assert.Equal(t, []string{"Latex"}, once.Choices)
	assert.Equal(t, once, twice)
}

func TestToggleKeepsInsertionOrder(t *testing.T) {
	st := New(testSchema())

	require.NoError(t, st.Toggle("Patient Information", "Allergies", "Latex", true))
	require.NoError(t, st.Toggle("Patient Information", "Allergies", "Peanuts", true))
	a, _ := st.Get("Patient Information", "Allergies")
	assert.Equal(t, []string{"Latex", "Peanuts"}, a.Choices)

	require.NoError(t, st.Toggle("Patient Information", "Allergies", "Latex", false))
	a, _ = st.Get("Patient Information", "Allergies")
	assert.Equal(t, []string{"Peanuts"}, a.Choices)

	require.NoError(t, st.Toggle("Patient Information", "Allergies", "Latex", false))
	a, _ = st.Get("Patient Information", "Allergies")
	assert.Equal(t, []string{"Peanuts"}, a.Choices)
}

func TestGetReturnsCopy(t *testing.T) {
	st := New(testSchema())
	require.NoError(t, st.Toggle("Patient Information", "Allergies", "Latex", true))

	a, _ := st.Get("Patient Information", "Allergies")
	a.Choices[0] = "changed"

	b, _ := st.Get("Patient Information", "Allergies")
	assert.Equal(t, []string{"Latex"}, b.Choices)
}

func TestLoad(t *testing.T) {
	var data model.ResponseData
	require.NoError(t, json.Unmarshal([]byte(`{
		"Patient Information": {"Name": "Jane Doe", "Allergies": ["Latex", "Latex"], "Unknown": "x"},
		"Vitals": {"Pulse": 72},
		"Gone": {"x": "y"}
	}`), &data))

	st, err := Load(testSchema(), data)
	require.NoError(t, err)

	a, _ := st.Get("Patient Information", "Name")
	assert.Equal(t, "Jane Doe", a.Text)
	a, _ = st.Get("Patient Information", "Allergies")
	assert.Equal(t, []string{"Latex"}, a.Choices)
	a, _ = st.Get("Vitals", "Pulse")
	assert.Equal(t, "72", a.Text)

	_, ok := st.Get("Patient Information", "Unknown")
	assert.False(t, ok)
}

func TestMarshalJSON(t *testing.T) {
	st := New(model.Schema{Sections: []model.Section{{
		Name: "A",
		Fields: []model.Field{
			{Label: "T", Type: model.FieldText},
			{Label: "C", Type: model.FieldCheckboxGroup, Options: model.Options{"x"}},
		},
	}}})

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":{"T":"","C":[]}}`, string(data))
}
