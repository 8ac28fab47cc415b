package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/schema"
)

func (c *Client) ListForms(ctx context.Context) ([]model.Form, error) {
	forms := []model.Form{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/forms/", out: &forms})
	return forms, err
}

// GetForm fetches a form and normalizes its schema. A schema that cannot be
// repaired yields an error matching schema.ErrSchemaParse, together with
// the form itself.
func (c *Client) GetForm(ctx context.Context, id int) (model.Form, model.Schema, error) {
	var form model.Form
	err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/forms/%d/", id), out: &form})
	if err != nil {
		return form, model.Schema{}, err
	}
	s, err := schema.Normalize(form.Schema)
	return form, s, err
}

type createForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
	Template    *int   `json:"template,omitempty"`
}

// CreateForm saves a new form. template is the id of the template it was
// built from, or nil.
func (c *Client) CreateForm(ctx context.Context, title, description string, s model.Schema, template *int) (model.Form, error) {
	text, err := schema.Encode(s)
	if err != nil {
		return model.Form{}, err
	}
	var form model.Form
	err = c.do(ctx, call{
		method: http.MethodPost,
		path:   "/forms/",
		body:   createForm{title, description, text, template},
		auth:   true,
		out:    &form,
	})
	return form, err
}

func (c *Client) UpdateForm(ctx context.Context, id int, patch model.FormPatch) (model.Form, error) {
	var form model.Form
	err := c.do(ctx, call{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/forms/%d/", id),
		body:   patch,
		auth:   true,
		out:    &form,
	})
	return form, err
}

func (c *Client) SetStatus(ctx context.Context, id int, status model.Status) (model.Form, error) {
	return c.UpdateForm(ctx, id, model.FormPatch{Status: &status})
}

func (c *Client) DeleteForm(ctx context.Context, id int) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/forms/%d/", id), auth: true})
}

type submitRequest struct {
	ResponseData   model.ResponseData `json:"response_data"`
	Sender         string             `json:"sender"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
}

type envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Submit posts a filled form. It satisfies queue.Submitter.
func (c *Client) Submit(ctx context.Context, sub model.Submission) (model.FormResponse, error) {
	var reply envelope[model.FormResponse]
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   fmt.Sprintf("/forms/%d/submit/", sub.Form),
		body:   submitRequest{sub.ResponseData, sub.Sender, sub.IdempotencyKey},
		auth:   true,
		out:    &reply,
	})
	return reply.Data, err
}

func (c *Client) ListResponses(ctx context.Context) ([]model.FormResponse, error) {
	responses := []model.FormResponse{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/responses/", out: &responses})
	return responses, err
}

func (c *Client) ListResponsesForForm(ctx context.Context, formID int) ([]model.FormResponse, error) {
	responses := []model.FormResponse{}
	err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/responses/%d", formID), out: &responses})
	return responses, err
}

func (c *Client) ListTemplates(ctx context.Context) ([]model.Template, error) {
	templates := []model.Template{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/templates/", out: &templates})
	return templates, err
}

func (c *Client) CreateTemplate(ctx context.Context, name, title, description string, s model.Schema) (model.Template, error) {
	text, err := schema.Encode(s)
	if err != nil {
		return model.Template{}, err
	}
	var tpl model.Template
	err = c.do(ctx, call{
		method: http.MethodPost,
		path:   "/templates/",
		body:   model.Template{Name: name, Title: title, Description: description, Schema: text},
		auth:   true,
		out:    &tpl,
	})
	return tpl, err
}

func (c *Client) DeleteTemplate(ctx context.Context, id int) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/templates/%d/", id), auth: true})
}
