package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/mbolis/dynaform/app"
	"github.com/mbolis/dynaform/httpx"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/model"
)

const templateColumns = `id, templatename, title, description, schema_json`

type templateRequest struct {
	Name        string `json:"templatename"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Schema      any    `json:"schema"`
}

func CreateTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := templateRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		name := strings.TrimSpace(req.Name)
		title := strings.TrimSpace(req.Title)
		if name == "" || title == "" {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate", "templatename and title are required")
			return
		}
		text, err := schemaText(req.Schema)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.validate.schema", "%s", err)
			return
		}

		now := time.Now().UTC()
		tpl := model.Template{Name: name, Title: title, Description: req.Description, Schema: text}
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO template (templatename, title, description, schema_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			tpl.Name,
			tpl.Title,
			tpl.Description,
			tpl.Schema,
			now,
			now,
		).Scan(&tpl.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_template", err)
			return
		}

		log.Infof("template %d created: %q", tpl.ID, tpl.Name)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, tpl)
	}
}

func ListTemplates(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT `+templateColumns+`
			FROM template
			ORDER BY id`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_templates", err)
			return
		}
		defer rows.Close()

		templates := []model.Template{}
		for rows.Next() {
			t := model.Template{}
			err = rows.Scan(&t.ID, &t.Name, &t.Title, &t.Description, &t.Schema)
			if err != nil {
				httpx.LogInternalError(w, "db.get_templates.scan", err)
				return
			}
			templates = append(templates, t)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.get_templates.rows", err)
			return
		}

		render.JSON(w, r, templates)
	}
}

// ListTemplateForms lists the forms created from a template.
func ListTemplateForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		var exists bool
		err := app.QueryRowContext(r.Context(), `
			SELECT EXISTS (SELECT 1 FROM template WHERE id = ?)`,
			templateId,
		).Scan(&exists)
		if err != nil {
			httpx.LogInternalError(w, "db.get_template_forms.template", err)
			return
		}
		if !exists {
			httpx.LogNotFound(w, r, "get_template_forms", "Template", templateId)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT `+formColumns+`
			FROM form
			WHERE template_id = ?
			ORDER BY id`,
			templateId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_template_forms", err)
			return
		}
		defer rows.Close()

		forms := []model.Form{}
		for rows.Next() {
			f, err := scanForm(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_template_forms.scan", err)
				return
			}
			forms = append(forms, f)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.get_template_forms.rows", err)
			return
		}

		render.JSON(w, r, forms)
	}
}

// DeleteTemplate keeps the forms built from the template, unlinking them.
func DeleteTemplate(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateId, ok := urlID(w, r)
		if !ok {
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM template WHERE id = ?`,
			templateId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_template.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_template", "Template", templateId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
