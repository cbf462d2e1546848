package routes

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/formden/formden/routes/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type taskRequest struct {
	Title   string            `json:"title"`
	Note    string            `json:"note"`
	Date    *time.Time        `json:"date"`
	Starred bool              `json:"starred"`
	Status  *model.TaskStatus `json:"status"`
}

func (t *taskRequest) validate() string {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return "Title is required."
	}
	if len(t.Title) > 200 {
		return "Title must be at most 200 characters."
	}
	if t.Status != nil && *t.Status != model.TaskOpen && *t.Status != model.TaskCompleted {
		return "Invalid status."
	}
	return ""
}

func CreateTask(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		var req taskRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if msg := req.validate(); msg != "" {
			httpx.JSONMessage(w, r, http.StatusBadRequest, msg)
			return
		}

		now := time.Now()
		task := model.Task{
			OwnerID:   identity.ActorID,
			Title:     req.Title,
			Note:      req.Note,
			Status:    model.TaskOpen,
			Date:      req.Date,
			Starred:   req.Starred,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := app.QueryRowContext(r.Context(), `
			INSERT INTO task (owner_id, title, note, status, date, starred, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			task.OwnerID, task.Title, task.Note, task.Status,
			task.Date, task.Starred, task.CreatedAt, task.UpdatedAt,
		).Scan(&task.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_task", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, task)
	}
}

func ListTasks(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		status := r.URL.Query().Get("status")
		if status == "" {
			status = string(model.TaskOpen)
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, owner_id, title, note, status, date, starred, created_at, updated_at
			FROM task
			WHERE	owner_id = ?
				AND status = ?
			ORDER BY starred DESC, date IS NULL, date ASC, created_at DESC`,
			identity.ActorID,
			status,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_tasks", err)
			return
		}
		defer rows.Close()

		tasks := []model.Task{}
		for rows.Next() {
			t := model.Task{}
			err = rows.Scan(
				&t.ID, &t.OwnerID, &t.Title, &t.Note, &t.Status,
				&t.Date, &t.Starred, &t.CreatedAt, &t.UpdatedAt,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.get_tasks.scan", err)
				return
			}
			tasks = append(tasks, t)
		}

		render.JSON(w, r, tasks)
	}
}

func UpdateTask(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var req taskRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if msg := req.validate(); msg != "" {
			httpx.JSONMessage(w, r, http.StatusBadRequest, msg)
			return
		}
		status := model.TaskOpen
		if req.Status != nil {
			status = *req.Status
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE task
			SET
				title = ?,
				note = ?,
				status = ?,
				date = ?,
				starred = ?,
				updated_at = ?
			WHERE	id = ?
				AND owner_id = ?`,
			req.Title, req.Note, status, req.Date, req.Starred, time.Now(),
			taskID, identity.ActorID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_task", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_task.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "update_task", taskID)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteTask(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := middlewares.IdentityFrom(r.Context())

		taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM task
			WHERE	id = ?
				AND owner_id = ?`,
			taskID,
			identity.ActorID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_task", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_task.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_task", taskID)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
