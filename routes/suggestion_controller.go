package routes

import (
	"database/sql"
	"html"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
)

var reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type suggestionRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// validate normalizes the request in place and returns the first violation
// message, or "" when acceptable. All fields but message are optional.
func (s *suggestionRequest) validate() string {
	if utf8.RuneCountInString(s.Name) > 120 {
		return "Name must be at most 120 characters."
	}
	if s.Email != "" && !reEmail.MatchString(s.Email) {
		return "Invalid email address."
	}
	if utf8.RuneCountInString(s.Subject) > 200 {
		return "Subject must be at most 200 characters."
	}
	if s.Category == "" {
		s.Category = string(model.SuggestionOther)
	}
	if !model.SuggestionCategory(s.Category).Valid() {
		return "Invalid category."
	}
	if utf8.RuneCountInString(s.Message) < 5 {
		return "Message must be at least 5 characters."
	}
	if utf8.RuneCountInString(s.Message) > 5000 {
		return "Message must be at most 5000 characters."
	}
	return ""
}

// CreateSuggestion is the anonymous feedback drop box. Free-text fields are
// HTML-escaped before storage so masters can render them as-is.
func CreateSuggestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req suggestionRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if msg := req.validate(); msg != "" {
			httpx.JSONMessage(w, r, http.StatusBadRequest, msg)
			return
		}

		var suggestionID int64
		err := app.QueryRowContext(r.Context(), `
			INSERT INTO suggestion (name, email, subject, category, message, ip, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			html.EscapeString(req.Name),
			html.EscapeString(req.Email),
			html.EscapeString(req.Subject),
			req.Category,
			html.EscapeString(req.Message),
			clientIP(r),
			r.Header.Get("user-agent"),
			time.Now(),
		).Scan(&suggestionID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_suggestion", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "Thanks for your suggestion!",
			"id":      suggestionID,
		})
	}
}

// ListSuggestions pages through the feedback queue, newest first, optionally
// narrowed by category and a free-text search across the visitor fields.
func ListSuggestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		page := queryInt(query.Get("page"), 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(query.Get("limit"), 20)
		if limit < 1 {
			limit = 1
		}
		if limit > 100 {
			limit = 100
		}

		where := "1=1"
		args := []any{}
		if category := query.Get("category"); model.SuggestionCategory(category).Valid() {
			where += " AND category = ?"
			args = append(args, category)
		}
		if q := strings.TrimSpace(query.Get("q")); q != "" {
			needle := "%" + escapeLike(q) + "%"
			where += ` AND (name LIKE ? ESCAPE '\'
				OR email LIKE ? ESCAPE '\'
				OR subject LIKE ? ESCAPE '\'
				OR message LIKE ? ESCAPE '\')`
			args = append(args, needle, needle, needle, needle)
		}

		var total int64
		err := app.QueryRowContext(r.Context(),
			"SELECT COUNT(*) FROM suggestion WHERE "+where, args...,
		).Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, "db.count_suggestions", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, name, email, subject, category, message, ip, user_agent, created_at
			FROM suggestion
			WHERE `+where+`
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?`,
			append(args, limit, (page-1)*limit)...,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_suggestions", err)
			return
		}
		defer rows.Close()

		items := []model.Suggestion{}
		for rows.Next() {
			s, err := scanSuggestion(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_suggestions.scan", err)
				return
			}
			items = append(items, s)
		}

		totalPages := (total + int64(limit) - 1) / int64(limit)
		if totalPages < 1 {
			totalPages = 1
		}
		render.JSON(w, r, map[string]any{
			"items":      items,
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		})
	}
}

func GetSuggestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suggestionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		row := app.QueryRowContext(r.Context(), `
			SELECT id, name, email, subject, category, message, ip, user_agent, created_at
			FROM suggestion
			WHERE id = ?`,
			suggestionID,
		)
		s, err := scanSuggestion(row)
		if errors.Cause(err) == sql.ErrNoRows {
			httpx.LogNotFound(w, r, "get_suggestion", suggestionID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_suggestion", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func DeleteSuggestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suggestionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM suggestion
			WHERE id = ?`,
			suggestionID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_suggestion", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_suggestion.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "delete_suggestion", suggestionID)
			return
		}

		render.JSON(w, r, map[string]any{
			"success": true,
		})
	}
}

func scanSuggestion(row rowScanner) (s model.Suggestion, err error) {
	err = row.Scan(
		&s.ID, &s.Name, &s.Email, &s.Subject, &s.Category,
		&s.Message, &s.IP, &s.UserAgent, &s.CreatedAt,
	)
	return s, err
}

// clientIP prefers the first hop of x-forwarded-for, then the peer address.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("x-forwarded-for"); xf != "" {
		return strings.TrimSpace(strings.SplitN(xf, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
