package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/formden/formden/routes/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type textRequest struct {
	Heading string `json:"heading"`
	Body    string `json:"text"`
}

func CreateText(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		var req textRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		now := time.Now()
		text := model.Text{
			OwnerID:   identity.ActorID,
			Heading:   req.Heading,
			Body:      req.Body,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := app.QueryRowContext(r.Context(), `
			INSERT INTO text_entry (owner_id, heading, body, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			text.OwnerID, text.Heading, text.Body, text.CreatedAt, text.UpdatedAt,
		).Scan(&text.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_text", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, text)
	}
}

func ListTexts(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, owner_id, heading, body, created_at, updated_at
			FROM text_entry
			WHERE owner_id = ?
			ORDER BY updated_at DESC`,
			identity.ActorID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_texts", err)
			return
		}
		defer rows.Close()

		texts := []model.Text{}
		for rows.Next() {
			t := model.Text{}
			err = rows.Scan(&t.ID, &t.OwnerID, &t.Heading, &t.Body, &t.CreatedAt, &t.UpdatedAt)
			if err != nil {
				httpx.LogInternalError(w, "db.get_texts.scan", err)
				return
			}
			texts = append(texts, t)
		}

		render.JSON(w, r, texts)
	}
}

func UpdateText(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		textID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req textRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE text_entry
			SET
				heading = ?,
				body = ?,
				updated_at = ?
			WHERE	id = ?
				AND owner_id = ?`,
			req.Heading, req.Body, time.Now(),
			textID, identity.ActorID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_text", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_text.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "update_text", textID)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteText(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		textID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM text_entry
			WHERE	id = ?
				AND owner_id = ?`,
			textID,
			identity.ActorID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_text", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_text.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_text", textID)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
