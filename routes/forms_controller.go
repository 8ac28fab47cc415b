package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/dynaform/app"
	"github.com/mbolis/dynaform/httpx"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/schema"
)

const formColumns = `id, title, description, status, schema_json, template_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (f model.Form, err error) {
	var template sql.NullInt64
	err = row.Scan(&f.ID, &f.Title, &f.Description, &f.Status, &f.Schema, &template, &f.CreatedAt, &f.UpdatedAt)
	if template.Valid {
		id := int(template.Int64)
		f.Template = &id
	}
	return
}

func urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return 0, false
	}
	return id, true
}

// schemaText normalizes a schema received as a JSON string or as a JSON
// object, and returns the string to store.
func schemaText(v any) (string, error) {
	s, err := schema.Normalize(v)
	if err != nil {
		return "", err
	}
	return schema.Encode(s)
}

type formRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Status      *model.Status `json:"status"`
	Schema      any           `json:"schema"`
	Template    *int          `json:"template"`
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := formRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "title is required")
			return
		}
		status := model.StatusNotStarted
		if req.Status != nil {
			if !req.Status.Valid() {
				httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "Invalid status value")
				return
			}
			status = *req.Status
		}
		text, err := schemaText(req.Schema)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate.schema", "%s", err)
			return
		}
		var description string
		if req.Description != nil {
			description = *req.Description
		}

		now := time.Now().UTC()
		var formId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO form (title, description, status, schema_json, template_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			strings.TrimSpace(*req.Title),
			description,
			status,
			text,
			req.Template,
			now,
			now,
		).Scan(&formId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		form, err := scanForm(app.QueryRowContext(r.Context(), `
			SELECT `+formColumns+` FROM form WHERE id = ?`,
			formId,
		))
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.reload", err)
			return
		}

		log.Infof("form %d created: %q", form.ID, form.Title)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, form)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT `+formColumns+`
			FROM form
			ORDER BY id`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}
		defer rows.Close()

		forms := []model.Form{}
		for rows.Next() {
			f, err := scanForm(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_forms.scan", err)
				return
			}
			forms = append(forms, f)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.get_forms.rows", err)
			return
		}

		render.JSON(w, r, forms)
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlID(w, r)
		if !ok {
			return
		}

		form, err := scanForm(app.QueryRowContext(r.Context(), `
			SELECT `+formColumns+` FROM form WHERE id = ?`,
			formId,
		))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			httpx.LogNotFound(w, r, "get_form", "Form", formId)
			return
		case err != nil:
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

// UpdateForm applies a partial update: fields left out of the body keep
// their value.
func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlID(w, r)
		if !ok {
			return
		}

		req := formRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "title cannot be empty")
			return
		}
		if req.Status != nil && !req.Status.Valid() {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "Invalid status value")
			return
		}
		var text *string
		if req.Schema != nil {
			s, err := schemaText(req.Schema)
			if err != nil {
				httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate.schema", "%s", err)
				return
			}
			text = &s
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE form
			SET
				title = COALESCE(?, title),
				description = COALESCE(?, description),
				status = COALESCE(?, status),
				schema_json = COALESCE(?, schema_json),
				updated_at = ?
			WHERE id = ?`,
			req.Title,
			req.Description,
			req.Status,
			text,
			time.Now().UTC(),
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "update_form", "Form", formId)
			return
		}

		form, err := scanForm(app.QueryRowContext(r.Context(), `
			SELECT `+formColumns+` FROM form WHERE id = ?`,
			formId,
		))
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.reload", err)
			return
		}

		render.JSON(w, r, form)
	}
}

// UpdateFormStatus only accepts {"status": ...}.
func UpdateFormStatus(app app.App) http.HandlerFunc {
	update := UpdateForm(app)
	return func(w http.ResponseWriter, r *http.Request) {
		req := struct {
			Status *model.Status `json:"status"`
		}{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if req.Status == nil || !req.Status.Valid() {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "Invalid status value")
			return
		}

		r.Body = jsonBody(map[string]any{"status": *req.Status})
		update(w, r)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlID(w, r)
		if !ok {
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM form WHERE id = ?`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_form", "Form", formId)
			return
		}

		log.Infof("form %d deleted", formId)
		w.WriteHeader(http.StatusNoContent)
	}
}
