package routes_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/formden/formden/app"
	"github.com/formden/formden/config"
	"github.com/formden/formden/database"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/routes"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const ownerID = "64b0c1d2e3f4a5b6c7d8e9f0"

func newTestApp(t *testing.T) app.App {
	t.Helper()

	cfg := config.Config{
		DBUrl:       filepath.Join(t.TempDir(), "formden_test.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
		UploadDir:   t.TempDir(),
		AppURL:      "http://api.test",
		WebAppURL:   "http://web.test",
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return app.App{
		DB:           db,
		Store:        database.NewStore(db),
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return routes.Wire(newTestApp(t))
}

func seedMaster(t *testing.T, a app.App, username, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := routes.NewAccountID()
	require.NoError(t, err)
	require.NoError(t, a.EnsureMaster(context.Background(), id, username, string(hash)))
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/login", nil)
	req.SetBasicAuth(username, password)
	rec := do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["access_token"].(string)
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func createFormRequest(owner string) *http.Request {
	body := url.Values{
		"title":        {"Team Meetup"},
		"description":  {"Quarterly planning"},
		"totalMembers": {"50"},
		"questions":    {`[{"id":"q1","type":"multiple_choice","label":"Attending?","required":true,"options":["A","B"]}]`},
	}
	req := httptest.NewRequest("POST", "/api/forms", strings.NewReader(body.Encode()))
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("x-owner-id", owner)
	return req
}

func createForm(t *testing.T, h http.Handler) int64 {
	t.Helper()
	rec := do(t, h, createFormRequest(ownerID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	form := decode(t, rec)["form"].(map[string]any)
	return int64(form["id"].(float64))
}

func submitAnswers(t *testing.T, h http.Handler, formID int64, answers string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST",
		"/api/forms/"+itoa(formID)+"/responses",
		strings.NewReader(`{"answers":`+answers+`}`))
	req.Header.Set("content-type", "application/json")
	return do(t, h, req)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestFormLifecycle(t *testing.T) {
	h := newTestHandler(t)
	formID := createForm(t, h)

	// public definition excludes owner-only fields
	rec := do(t, h, httptest.NewRequest("GET", "/api/forms/"+itoa(formID)+"/public", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	public := decode(t, rec)
	assert.Equal(t, "Team Meetup", public["title"])
	assert.NotContains(t, public, "owner")

	// invalid option is rejected with the violation list, nothing stored
	rec = submitAnswers(t, h, formID, `[{"questionId":"q1","value":"C"}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, []any{"Invalid option for: Attending?"}, body["errors"])

	// non-array answers payload
	rec = submitAnswers(t, h, formID, `{"q1":"A"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Answers must be an array.", decode(t, rec)["message"])

	// three valid submissions
	for i := 0; i < 3; i++ {
		rec = submitAnswers(t, h, formID, `[{"questionId":"q1","value":"A"}]`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// owner-scoped results
	req := httptest.NewRequest("GET", "/api/forms/"+itoa(formID)+"/results", nil)
	req.Header.Set("x-owner-id", ownerID)
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	stats := res["stats"].(map[string]any)
	assert.EqualValues(t, 3, stats["attended"])
	assert.EqualValues(t, 47, stats["absent"])
	summary := res["choiceSummary"].(map[string]any)
	assert.Equal(t, map[string]any{"A": float64(3), "B": float64(0)}, summary["q1"])

	// a stranger sees the same 404 as for a missing form
	req = httptest.NewRequest("GET", "/api/forms/"+itoa(formID)+"/results", nil)
	req.Header.Set("x-owner-id", "000000000000000000000001")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// CSV export, oldest first
	req = httptest.NewRequest("GET", "/api/forms/"+itoa(formID)+"/export.csv", nil)
	req.Header.Set("x-owner-id", ownerID)
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("content-type"))
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Attending?,Submitted At", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A,"))

	// hard delete cascades to responses
	req = httptest.NewRequest("DELETE", "/api/forms/"+itoa(formID), nil)
	req.Header.Set("x-owner-id", ownerID)
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest("GET", "/api/forms/"+itoa(formID)+"/public", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateFormWithThumbnail(t *testing.T) {
	h := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "With Thumbnail"))
	require.NoError(t, mw.WriteField("questions", `[]`))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="thumbnail"; filename="cover.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/forms", &buf)
	req.Header.Set("content-type", mw.FormDataContentType())
	req.Header.Set("x-owner-id", ownerID)
	rec := do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	thumbnailURL := decode(t, rec)["thumbnailUrl"].(string)
	assert.Contains(t, thumbnailURL, "/uploads/forms/")
	assert.Contains(t, thumbnailURL, "cover.png")
}

func TestFormQuotaGate(t *testing.T) {
	h := newTestHandler(t)

	// seeded free limit for forms is 2
	createForm(t, h)
	createForm(t, h)

	rec := do(t, h, createFormRequest(ownerID))
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "forms", body["type"])
	assert.EqualValues(t, 2, body["limit"])
	assert.EqualValues(t, 2, body["count"])

	// another owner has their own allowance
	rec = do(t, h, createFormRequest("000000000000000000000001"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestFormRoutesRejectInvalidOwner(t *testing.T) {
	h := newTestHandler(t)

	for _, owner := range []string{"", "not-an-id"} {
		req := httptest.NewRequest("GET", "/api/forms", nil)
		if owner != "" {
			req.Header.Set("x-owner-id", owner)
		}
		rec := do(t, h, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestAuthenticatedSurface(t *testing.T) {
	h := newTestHandler(t)

	// register
	req := httptest.NewRequest("POST", "/api/register",
		strings.NewReader(`{"username":"ada","password":"correct horse"}`))
	req.Header.Set("content-type", "application/json")
	rec := do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["id"].(string)
	assert.Len(t, id, 24)

	// duplicate username
	req = httptest.NewRequest("POST", "/api/register",
		strings.NewReader(`{"username":"ada","password":"correct horse"}`))
	req.Header.Set("content-type", "application/json")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// login issues a usable bearer token
	req = httptest.NewRequest("POST", "/api/login", nil)
	req.SetBasicAuth("ada", "correct horse")
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decode(t, rec)["access_token"].(string)
	require.NotEmpty(t, token)

	// tasks require the token
	rec = do(t, h, httptest.NewRequest("GET", "/api/tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest("POST", "/api/tasks",
		strings.NewReader(`{"title":"prepare agenda","starred":true}`))
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+token)
	rec = do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// a plain user is not a master
	req = httptest.NewRequest("GET", "/api/master/limits", nil)
	req.Header.Set("authorization", "Bearer "+token)
	rec = do(t, h, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func submitSuggestion(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/suggestions", strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	return do(t, h, req)
}

func TestSuggestions(t *testing.T) {
	a := newTestApp(t)
	h := routes.Wire(a)
	seedMaster(t, a, "root", "masterpass")
	token := login(t, h, "root", "masterpass")

	// anyone may drop feedback, no owner or token required
	rec := submitSuggestion(t, h,
		`{"name":"Ada","email":"ada@example.com","subject":"<b>broken</b>","category":"bug","message":"submit button does nothing"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Thanks for your suggestion!", body["message"])
	firstID := int64(body["id"].(float64))

	rec = submitSuggestion(t, h,
		`{"category":"feature","message":"please add a dark theme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// category defaults to other
	rec = submitSuggestion(t, h, `{"message":"just saying hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// too-short message and unknown category are rejected
	rec = submitSuggestion(t, h, `{"message":"hey"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = submitSuggestion(t, h, `{"category":"rant","message":"long enough"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the queue is master-only
	rec = do(t, h, httptest.NewRequest("GET", "/api/master/suggestions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	masterGet := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("authorization", "Bearer "+token)
		return do(t, h, req)
	}

	rec = masterGet("/api/master/suggestions")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode(t, rec)
	assert.EqualValues(t, 3, list["total"])
	assert.Len(t, list["items"], 3)

	// category filter
	rec = masterGet("/api/master/suggestions?category=bug")
	list = decode(t, rec)
	require.EqualValues(t, 1, list["total"])
	item := list["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "Ada", item["name"])

	// free-text search spans visitor fields
	rec = masterGet("/api/master/suggestions?q=dark+theme")
	list = decode(t, rec)
	assert.EqualValues(t, 1, list["total"])

	// pagination clamps and pages newest-first
	rec = masterGet("/api/master/suggestions?limit=1&page=2")
	list = decode(t, rec)
	assert.EqualValues(t, 3, list["total"])
	assert.EqualValues(t, 3, list["totalPages"])
	assert.Len(t, list["items"], 1)

	// one suggestion: markup is stored escaped, request metadata rides along
	rec = masterGet("/api/master/suggestions/" + itoa(firstID))
	require.Equal(t, http.StatusOK, rec.Code)
	one := decode(t, rec)
	assert.Equal(t, "&lt;b&gt;broken&lt;/b&gt;", one["subject"])
	assert.NotEmpty(t, one["ip"])

	// delete, then the same id is gone
	req := httptest.NewRequest("DELETE", "/api/master/suggestions/"+itoa(firstID), nil)
	req.Header.Set("authorization", "Bearer "+token)
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = masterGet("/api/master/suggestions/" + itoa(firstID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
