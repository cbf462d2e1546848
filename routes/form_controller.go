package routes

import (
	"context"
	"database/sql"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/formden/formden/results"
	"github.com/formden/formden/routes/middlewares"
	"github.com/formden/formden/upload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var reNoFilename = regexp.MustCompile(`[^\w.\-]+`)

// formJSON is a form plus the derived fields clients expect alongside it.
type formJSON struct {
	model.Form
	ThumbnailURL string `json:"thumbnailUrl"`
	ShareURL     string `json:"shareUrl"`
}

func formPayload(app app.App, f model.Form) formJSON {
	return formJSON{
		Form:         f,
		ThumbnailURL: upload.PublicURL(app.AppURL, f.Thumbnail),
		ShareURL:     fmt.Sprintf("%s/api/forms/%d/fill", strings.TrimRight(app.AppURL, "/"), f.ID),
	}
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		values, thumbFile, err := formRequest(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_form")
			return
		}

		title := strings.TrimSpace(values.Get("title"))
		if title == "" {
			httpx.JSONMessage(w, r, http.StatusBadRequest, "Title is required.")
			return
		}

		totalMembers, ok := parseTotalMembers(values.Get("totalMembers"))
		if !ok {
			httpx.JSONMessage(w, r, http.StatusBadRequest, "Invalid totalMembers value.")
			return
		}

		questions := []model.Question{}
		if qs := values.Get("questions"); qs != "" {
			if err := json.Unmarshal([]byte(qs), &questions); err != nil {
				httpx.JSONMessage(w, r, http.StatusBadRequest, "Invalid questions JSON.")
				return
			}
		}
		questionsJSON, err := json.Marshal(questions)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.encode_questions", err)
			return
		}

		thumbnail := ""
		if thumbFile != nil {
			thumbnail, err = upload.SaveThumbnail(app.UploadDir, thumbFile)
			if err != nil {
				httpx.JSONMessage(w, r, http.StatusBadRequest, err.Error())
				return
			}
		}

		now := time.Now()
		form := model.Form{
			OwnerID:      identity.ActorID,
			Title:        title,
			Description:  values.Get("description"),
			Thumbnail:    thumbnail,
			TotalMembers: totalMembers,
			Questions:    questions,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = app.QueryRowContext(r.Context(), `
			INSERT INTO form (owner_id, title, description, thumbnail, total_members, questions, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			form.OwnerID,
			form.Title,
			form.Description,
			form.Thumbnail,
			form.TotalMembers,
			string(questionsJSON),
			form.CreatedAt,
			form.UpdatedAt,
		).Scan(&form.ID)
		if err != nil {
			upload.Remove(thumbnail)
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		payload := formPayload(app, form)
		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"form":         payload,
			"shareUrl":     payload.ShareURL,
			"thumbnailUrl": payload.ThumbnailURL,
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, owner_id, title, description, thumbnail, total_members, questions, created_at, updated_at
			FROM form
			WHERE owner_id = ?
			ORDER BY created_at DESC`,
			identity.ActorID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}
		defer rows.Close()

		forms := []formJSON{}
		for rows.Next() {
			f, err := scanForm(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_forms.scan", err)
				return
			}
			forms = append(forms, formPayload(app, f))
		}

		render.JSON(w, r, forms)
	}
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r)
		if !ok {
			return
		}
		render.JSON(w, r, formPayload(app, form))
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r)
		if !ok {
			return
		}

		values, thumbFile, err := formRequest(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_form")
			return
		}

		// partial update: absent fields keep their stored value
		if values.Has("title") {
			title := strings.TrimSpace(values.Get("title"))
			if title == "" {
				httpx.JSONMessage(w, r, http.StatusBadRequest, "Title is required.")
				return
			}
			form.Title = title
		}
		if values.Has("description") {
			form.Description = values.Get("description")
		}
		if values.Has("totalMembers") {
			totalMembers, ok := parseTotalMembers(values.Get("totalMembers"))
			if !ok {
				httpx.JSONMessage(w, r, http.StatusBadRequest, "Invalid totalMembers value.")
				return
			}
			form.TotalMembers = totalMembers
		}
		if values.Has("questions") {
			questions := []model.Question{}
			if err := json.Unmarshal([]byte(values.Get("questions")), &questions); err != nil {
				httpx.JSONMessage(w, r, http.StatusBadRequest, "Invalid questions JSON.")
				return
			}
			form.Questions = questions
		}

		oldThumbnail := ""
		if thumbFile != nil {
			thumbnail, err := upload.SaveThumbnail(app.UploadDir, thumbFile)
			if err != nil {
				httpx.JSONMessage(w, r, http.StatusBadRequest, err.Error())
				return
			}
			oldThumbnail = form.Thumbnail
			form.Thumbnail = thumbnail
		}

		questionsJSON, err := json.Marshal(form.Questions)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.encode_questions", err)
			return
		}

		form.UpdatedAt = time.Now()
		res, err := app.ExecContext(r.Context(), `
			UPDATE form
			SET
				title = ?,
				description = ?,
				thumbnail = ?,
				total_members = ?,
				questions = ?,
				updated_at = ?
			WHERE	id = ?
				AND owner_id = ?`,
			form.Title,
			form.Description,
			form.Thumbnail,
			form.TotalMembers,
			string(questionsJSON),
			form.UpdatedAt,
			form.ID,
			form.OwnerID,
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
			httpx.LogNotFound(w, r, "update_form", form.ID)
			return
		}

		upload.Remove(oldThumbnail)
		render.JSON(w, r, formPayload(app, form))
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r)
		if !ok {
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		// responses first, then the form itself
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM response
			WHERE form_id = ?`,
			form.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.responses", err)
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			DELETE FROM form
			WHERE	id = ?
				AND owner_id = ?`,
			form.ID,
			form.OwnerID,
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
			httpx.LogNotFound(w, r, "delete_form", form.ID)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.commit", err)
			return
		}

		// best effort: a crash before this point leaks the file, never the rows
		upload.Remove(form.Thumbnail)

		render.JSON(w, r, map[string]any{
			"message": "Form hard-deleted.",
		})
	}
}

func FormResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r)
		if !ok {
			return
		}

		responses, err := loadResponses(app, r.Context(), form.ID, "DESC")
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		agg := results.Aggregate(form, responses)

		render.JSON(w, r, map[string]any{
			"form": map[string]any{
				"id":           form.ID,
				"title":        form.Title,
				"description":  form.Description,
				"totalMembers": form.TotalMembers,
				"createdAt":    form.CreatedAt,
			},
			"stats": map[string]any{
				"attended": agg.Attended,
				"absent":   agg.Absent,
			},
			"choiceSummary": agg.ChoiceSummary,
			"responses":     responses,
		})
	}
}

func ExportFormCSV(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := ownedForm(app, w, r)
		if !ok {
			return
		}

		responses, err := loadResponses(app, r.Context(), form.ID, "ASC")
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		filename := reNoFilename.ReplaceAllString(form.Title, "_") + "_responses.csv"
		w.Header().Set("content-type", "text/csv")
		w.Header().Set("content-disposition", `attachment; filename="`+filename+`"`)

		err = results.ExportCSV(w, form, responses)
		if err != nil {
			log.Errorf("export_csv: %s", err)
		}
	}
}

// ownedForm loads the form addressed by the request for its resolved owner.
// A form owned by somebody else yields the same 404 as a missing one.
func ownedForm(app app.App, w http.ResponseWriter, r *http.Request) (model.Form, bool) {
	formID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return model.Form{}, false
	}

	identity, ok := middlewares.IdentityFrom(r.Context())
	if !ok {
		httpx.InvalidOwner(w, r)
		return model.Form{}, false
	}

	row := app.QueryRowContext(r.Context(), `
		SELECT id, owner_id, title, description, thumbnail, total_members, questions, created_at, updated_at
		FROM form
		WHERE	id = ?
			AND owner_id = ?`,
		formID,
		identity.ActorID,
	)
	form, err := scanForm(row)
	if errors.Cause(err) == sql.ErrNoRows {
		httpx.LogNotFound(w, r, "get_form", formID)
		return model.Form{}, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_form", err)
		return model.Form{}, false
	}
	return form, true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (f model.Form, err error) {
	var questionsJSON string
	err = row.Scan(
		&f.ID, &f.OwnerID, &f.Title, &f.Description, &f.Thumbnail,
		&f.TotalMembers, &questionsJSON, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return f, err
	}
	f.Questions = []model.Question{}
	err = json.Unmarshal([]byte(questionsJSON), &f.Questions)
	return f, errors.Wrap(err, "parse_questions")
}

func loadResponses(app app.App, ctx context.Context, formID int64, order string) ([]model.Response, error) {
	rows, err := app.QueryContext(ctx, `
		SELECT id, form_id, answers, created_at
		FROM response
		WHERE form_id = ?
		ORDER BY created_at `+order,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		resp := model.Response{}
		var answersJSON string
		err = rows.Scan(&resp.ID, &resp.FormID, &answersJSON, &resp.CreatedAt)
		if err != nil {
			return nil, err
		}
		resp.Answers = []model.Answer{}
		err = json.Unmarshal([]byte(answersJSON), &resp.Answers)
		if err != nil {
			return nil, errors.Wrap(err, "parse_answers")
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// formRequest parses a form payload from either a multipart request (the
// thumbnail rides along as a file part) or an urlencoded body.
func formRequest(r *http.Request) (url.Values, *multipart.FileHeader, error) {
	ct := r.Header.Get("content-type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return nil, nil, err
		}
		var thumb *multipart.FileHeader
		if files := r.MultipartForm.File["thumbnail"]; len(files) > 0 {
			thumb = files[0]
		}
		return url.Values(r.MultipartForm.Value), thumb, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, nil, err
	}
	return r.PostForm, nil, nil
}

// parseTotalMembers maps the wire encoding to the nullable member total:
// absent or empty clears it.
func parseTotalMembers(s string) (*int64, bool) {
	if s == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}
