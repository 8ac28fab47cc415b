package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/schema"
)

func TestGetFormNormalizesSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/forms/3/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		io.WriteString(w, `{"id":3,"title":"Intake","status":"In Progress","schema":"{\"sections\":[{\"sectionname\":\"A\",\"fields\":[],},]}"}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", nil)
	form, s, err := c.GetForm(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Intake", form.Title)
	assert.Equal(t, model.StatusInProgress, form.Status)
	require.Len(t, s.Sections, 1)
	assert.Equal(t, "A", s.Sections[0].Name)
}

func TestGetFormBrokenSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":3,"title":"Intake","schema":"{\"sections\":["}`)
	}))
	defer srv.Close()

	form, _, err := New(srv.URL, nil).GetForm(context.Background(), 3)
	assert.True(t, errors.Is(err, schema.ErrSchemaParse))
	assert.Equal(t, "Intake", form.Title)
}

func TestMutationWithoutTokenMakesNoRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken(""))
	_, err := c.Submit(context.Background(), model.Submission{Form: 1})
	assert.True(t, IsAuth(err))
	assert.True(t, errors.Is(err, ErrNotLoggedIn))
	assert.False(t, IsNetwork(err))

	_, err = c.SetStatus(context.Background(), 1, model.StatusCompleted)
	assert.True(t, IsAuth(err))
	assert.Zero(t, hits)
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/forms/7/submit/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{
			"response_data": {"Patient Information": {"Name": "Jane Doe"}},
			"sender": "Nurse Joy",
			"idempotency_key": "k1"
		}`, string(body))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"message":"Form submitted successfully","data":{"id":11,"form":7,"sender":"Nurse Joy","response_data":{}}}`)
	}))
	defer srv.Close()

	resp, err := New(srv.URL, StaticToken("tok")).Submit(context.Background(), model.Submission{
		Form:           7,
		FormTitle:      "Intake",
		Sender:         "Nurse Joy",
		IdempotencyKey: "k1",
		ResponseData:   model.ResponseData{"Patient Information": {"Name": "Jane Doe"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, resp.ID)
	assert.Equal(t, 7, resp.Form)
}

func TestErrorMapping(t *testing.T) {
	status := http.StatusInternalServerError
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", status)
	}))
	defer srv.Close()
	c := New(srv.URL, StaticToken("tok"))

	_, err := c.ListForms(context.Background())
	var nerr *NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, 500, nerr.Status)
	assert.Equal(t, "boom", nerr.Body)

	status = http.StatusUnauthorized
	err = c.DeleteForm(context.Background(), 1)
	var aerr *AuthError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 401, aerr.Status)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).ListTemplates(context.Background())
	var nerr *NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Zero(t, nerr.Status)
}

func TestCreateFormEncodesSchema(t *testing.T) {
	s := model.Schema{Sections: []model.Section{{
		Name:   "A",
		Fields: []model.Field{{Label: "Name", Type: model.FieldText, Required: true}},
	}}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createForm
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Intake", req.Title)

		got, err := schema.Parse(req.Schema)
		assert.NoError(t, err)
		assert.Equal(t, s, got)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Form{ID: 5, Title: req.Title, Schema: req.Schema, Status: model.StatusNotStarted})
	}))
	defer srv.Close()

	form, err := New(srv.URL, StaticToken("tok")).CreateForm(context.Background(), "Intake", "", s, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, form.ID)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "joy@clinic.test", user)
		assert.Equal(t, "secret", pass)
		io.WriteString(w, `{"access_token":"a","token_type":"Bearer","expires_in":120,"refresh_token":"r","properties":{"name":"Nurse Joy"}}`)
	}))
	defer srv.Close()

	tok, err := New(srv.URL, StaticToken("old")).Login(context.Background(), "joy@clinic.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "Nurse Joy", tok.Name())
	assert.False(t, tok.Expiration(time.Now()).IsZero())
}
