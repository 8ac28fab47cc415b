package routes

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/goccy/go-json"

	"github.com/mbolis/dynaform/app"
	"github.com/mbolis/dynaform/httpx"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/metrics"
	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/routes/middlewares"
	"github.com/mbolis/dynaform/schema"
	"github.com/mbolis/dynaform/validate"
)

const responseColumns = `id, form_id, response_data, date_submitted, sender`

func scanResponse(row scanner) (fr model.FormResponse, err error) {
	var data string
	err = row.Scan(&fr.ID, &fr.Form, &data, &fr.DateSubmitted, &fr.Sender)
	if err != nil {
		return
	}
	err = json.Unmarshal([]byte(data), &fr.ResponseData)
	return
}

func jsonBody(v any) io.ReadCloser {
	body, _ := json.Marshal(v)
	return io.NopCloser(bytes.NewReader(body))
}

type submitRequest struct {
	ResponseData   model.ResponseData `json:"response_data"`
	Sender         string             `json:"sender"`
	IdempotencyKey string             `json:"idempotency_key"`
}

// formSchema loads the schema of a form; ok is false when the reply was
// already written.
func formSchema(ctx context.Context, w http.ResponseWriter, r *http.Request, db *sql.DB, formId int, code string) (s model.Schema, ok bool) {
	var text string
	err := db.QueryRowContext(ctx, `
		SELECT schema_json FROM form WHERE id = ?`,
		formId,
	).Scan(&text)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		httpx.LogNotFound(w, r, code, "Form", formId)
		return
	case err != nil:
		httpx.LogInternalError(w, "db."+code, err)
		return
	}

	s, err = schema.Parse(text)
	if err != nil {
		httpx.LogInternalError(w, code+".schema", err)
		return
	}
	return s, true
}

// SubmitForm stores a filled form. Repeating a submission with the same
// idempotency key replies with the stored response and status 200.
func SubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlID(w, r)
		if !ok {
			return
		}

		req := submitRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if req.ResponseData == nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "submit_form.validate", "Response data is required")
			return
		}

		s, ok := formSchema(r.Context(), w, r, app.DB, formId, "submit_form")
		if !ok {
			return
		}
		if err = validate.CheckResponse(s, req.ResponseData); err != nil {
			metrics.CountSubmission(metrics.SubmissionInvalid)
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "submit_form.validate", "%s", err)
			return
		}

		sender := req.Sender
		if sender == "" {
			sender = middlewares.Credential(r)
		}
		data, err := json.Marshal(req.ResponseData)
		if err != nil {
			httpx.LogInternalError(w, "submit_form.marshal", err)
			return
		}
		var key any
		if req.IdempotencyKey != "" {
			key = req.IdempotencyKey
		}

		status := http.StatusCreated
		var responseId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO form_response (form_id, response_data, date_submitted, sender, idempotency_key)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id`,
			formId,
			string(data),
			time.Now().UTC(),
			sender,
			key,
		).Scan(&responseId)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			status = http.StatusOK
			err = app.QueryRowContext(r.Context(), `
				SELECT id FROM form_response WHERE idempotency_key = ?`,
				key,
			).Scan(&responseId)
			if err != nil {
				httpx.LogInternalError(w, "db.submit_form.duplicate", err)
				return
			}
		case err != nil:
			httpx.LogInternalError(w, "db.submit_form", err)
			return
		}

		response, err := scanResponse(app.QueryRowContext(r.Context(), `
			SELECT `+responseColumns+` FROM form_response WHERE id = ?`,
			responseId,
		))
		if err != nil {
			httpx.LogInternalError(w, "db.submit_form.reload", err)
			return
		}

		if status == http.StatusCreated {
			metrics.CountSubmission(metrics.SubmissionCreated)
			log.WithFields(log.Fields{"form": formId, "response": responseId, "sender": sender}).Info("form submitted")
		} else {
			metrics.CountSubmission(metrics.SubmissionDuplicate)
			log.WithFields(log.Fields{"form": formId, "response": responseId}).Debug("duplicate submission")
		}

		render.Status(r, status)
		render.JSON(w, r, map[string]any{
			"message": "Form submitted successfully",
			"data":    response,
		})
	}
}

func listResponses(w http.ResponseWriter, r *http.Request, db *sql.DB, code string, formId *int) {
	query := `SELECT ` + responseColumns + ` FROM form_response`
	args := []any{}
	if formId != nil {
		query += ` WHERE form_id = ?`
		args = append(args, *formId)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(r.Context(), query, args...)
	if err != nil {
		httpx.LogInternalError(w, "db."+code, err)
		return
	}
	defer rows.Close()

	responses := []model.FormResponse{}
	for rows.Next() {
		fr, err := scanResponse(rows)
		if err != nil {
			httpx.LogInternalError(w, "db."+code+".scan", err)
			return
		}
		responses = append(responses, fr)
	}
	if err = rows.Err(); err != nil {
		httpx.LogInternalError(w, "db."+code+".rows", err)
		return
	}

	render.JSON(w, r, responses)
}

// ListResponses lists every stored response, or only those of the form
// named by the form_id query parameter.
func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var formId *int
		if param := r.URL.Query().Get("form_id"); param != "" {
			id, err := strconv.Atoi(param)
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.form_id")
				return
			}
			formId = &id
		}
		listResponses(w, r, app.DB, "get_responses", formId)
	}
}

func ListFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlID(w, r)
		if !ok {
			return
		}

		var exists bool
		err := app.QueryRowContext(r.Context(), `
			SELECT EXISTS (SELECT 1 FROM form WHERE id = ?)`,
			formId,
		).Scan(&exists)
		if err != nil {
			httpx.LogInternalError(w, "db.get_form_responses.form", err)
			return
		}
		if !exists {
			httpx.LogNotFound(w, r, "get_form_responses", "Form", formId)
			return
		}

		listResponses(w, r, app.DB, "get_form_responses", &formId)
	}
}

func ClearResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := urlID(w, r)
		if !ok {
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.clear_responses.begin", err)
			return
		}
		defer tx.Rollback()

		var exists bool
		err = tx.QueryRowContext(r.Context(), `
			SELECT EXISTS (SELECT 1 FROM form WHERE id = ?)`,
			formId,
		).Scan(&exists)
		if err != nil {
			httpx.LogInternalError(w, "db.clear_responses.form", err)
			return
		}
		if !exists {
			httpx.LogNotFound(w, r, "clear_responses", "Form", formId)
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			DELETE FROM form_response WHERE form_id = ?`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.clear_responses", err)
			return
		}
		if err = tx.Commit(); err != nil {
			httpx.LogInternalError(w, "db.clear_responses.commit", err)
			return
		}

		n, _ := res.RowsAffected()
		log.Infof("cleared %d responses of form %d", n, formId)
		httpx.Message(w, r, http.StatusOK, "All responses have been cleared.")
	}
}

// UpdateResponseData replaces the answers of a stored response. The new
// answers must still satisfy the form's required fields.
func UpdateResponseData(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId, ok := urlID(w, r)
		if !ok {
			return
		}

		req := struct {
			ResponseData model.ResponseData `json:"response_data"`
		}{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if req.ResponseData == nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "update_response.validate", "New response data is required")
			return
		}

		var formId int
		err = app.QueryRowContext(r.Context(), `
			SELECT form_id FROM form_response WHERE id = ?`,
			responseId,
		).Scan(&formId)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			httpx.LogNotFound(w, r, "update_response", "Response", responseId)
			return
		case err != nil:
			httpx.LogInternalError(w, "db.update_response", err)
			return
		}

		s, ok := formSchema(r.Context(), w, r, app.DB, formId, "update_response")
		if !ok {
			return
		}
		if err = validate.CheckResponse(s, req.ResponseData); err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "update_response.validate", "%s", err)
			return
		}

		data, err := json.Marshal(req.ResponseData)
		if err != nil {
			httpx.LogInternalError(w, "update_response.marshal", err)
			return
		}
		_, err = app.ExecContext(r.Context(), `
			UPDATE form_response SET response_data = ? WHERE id = ?`,
			string(data),
			responseId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_response", err)
			return
		}

		response, err := scanResponse(app.QueryRowContext(r.Context(), `
			SELECT `+responseColumns+` FROM form_response WHERE id = ?`,
			responseId,
		))
		if err != nil {
			httpx.LogInternalError(w, "db.update_response.reload", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"message": "Response data updated successfully",
			"data":    response,
		})
	}
}
