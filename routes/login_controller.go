package routes

import (
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		app.UserCredentials(w, r)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("authorization")
		match := regexp.MustCompile(`(?i)^refresh\s+(.*)`).FindStringSubmatch(auth)
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}
		token := match[1]

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		}

		req, err := http.NewRequest("POST", "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogStatus(w, http.StatusInternalServerError, log.DebugLevel, "refresh.new_request")
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewRecorder()
		app.UserCredentials(resp, req)
		resp.Replay(w)
	}
}

type registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg registration
		err := render.DecodeJSON(r.Body, &reg)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		reg.Username = strings.TrimSpace(reg.Username)
		if reg.Username == "" {
			httpx.JSONMessage(w, r, http.StatusBadRequest, "Username is required.")
			return
		}
		if len(reg.Password) < 8 {
			httpx.JSONMessage(w, r, http.StatusBadRequest, "Password must be at least 8 characters.")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), 12)
		if err != nil {
			httpx.LogInternalError(w, "register.hash", err)
			return
		}

		id, err := NewAccountID()
		if err != nil {
			httpx.LogInternalError(w, "register.account_id", err)
			return
		}

		err = app.CreateAccount(r.Context(), id, reg.Username, string(hash), model.RoleUser, model.PlanFree)
		if err != nil {
			if e, ok := errors.Cause(err).(sqlite3.Error); ok && e.Code == sqlite3.ErrConstraint {
				httpx.JSONMessage(w, r, http.StatusConflict, "Username already taken.")
				return
			}
			httpx.LogInternalError(w, "db.insert_account", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": id,
		})
	}
}

// NewAccountID mints a 24-character hex owner identifier from the leading
// bytes of a random UUID.
func NewAccountID() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(u.Bytes()[:12]), nil
}
