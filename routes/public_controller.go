package routes

import (
	"bytes"
	"database/sql"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/formden/formden/upload"
	"github.com/formden/formden/validate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// PublicForm serves the respondent-facing definition of a form: everything
// needed to render and fill it, nothing owner-only.
func PublicForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form, err := loadForm(app, r, formID)
		if errors.Cause(err) == sql.ErrNoRows {
			httpx.LogNotFound(w, r, "get_public_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_public_form", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"id":           form.ID,
			"title":        form.Title,
			"description":  form.Description,
			"thumbnailUrl": upload.PublicURL(app.AppURL, form.Thumbnail),
			"totalMembers": form.TotalMembers,
			"questions":    form.Questions,
			"createdAt":    form.CreatedAt,
		})
	}
}

// FillRedirect bounces QR-code scans to the form-filling web app.
func FillRedirect(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.WebAppURL == "" {
			httpx.LogStatus(w, http.StatusInternalServerError, log.WarnLevel, "fill.web_app_url_missing")
			return
		}
		http.Redirect(w, r, app.WebAppURL+"/form/"+chi.URLParam(r, "id"), http.StatusFound)
	}
}

type submission struct {
	Answers json.RawMessage `json:"answers"`
}

// SubmitResponse accepts an anonymous submission. Answers are validated
// against the form as it exists right now; any violation rejects the whole
// submission and nothing is stored.
func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.read_body")
			return
		}
		var sub submission
		if err := json.Unmarshal(body, &sub); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		raw := bytes.TrimSpace(sub.Answers)
		if len(raw) == 0 || raw[0] != '[' {
			httpx.JSONMessage(w, r, http.StatusBadRequest, "Answers must be an array.")
			return
		}
		answers := []model.Answer{}
		if err := json.Unmarshal(raw, &answers); err != nil {
			httpx.JSONMessage(w, r, http.StatusBadRequest, "Answers must be an array.")
			return
		}

		form, err := loadForm(app, r, formID)
		if errors.Cause(err) == sql.ErrNoRows {
			httpx.LogNotFound(w, r, "get_form", formID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		if violations := validate.Response(form, answers); len(violations) > 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]any{
				"message": "Validation failed",
				"errors":  violations,
			})
			return
		}

		answersJSON, err := json.Marshal(answers)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response.encode_answers", err)
			return
		}

		var responseID int64
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO response (form_id, answers, created_at)
			VALUES (?, ?, ?)
			RETURNING id`,
			formID,
			string(answersJSON),
			time.Now(),
		).Scan(&responseID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"responseId": responseID,
		})
	}
}

func loadForm(app app.App, r *http.Request, formID int64) (model.Form, error) {
	row := app.QueryRowContext(r.Context(), `
		SELECT id, owner_id, title, description, thumbnail, total_members, questions, created_at, updated_at
		FROM form
		WHERE id = ?`,
		formID,
	)
	return scanForm(row)
}
