package routes

import (
	"net/http"
	"strconv"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/go-chi/render"
)

// MasterSummary is a mini dashboard: global counts plus the current limits.
func MasterSummary(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := app.Summarize(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.summary", err)
			return
		}

		limits, found, err := app.FreeLimits(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_limits", err)
			return
		}
		if !found {
			limits = model.DefaultFreeLimits
		}

		render.JSON(w, r, map[string]any{
			"totalUsers":     sum.TotalUsers,
			"totalMasters":   sum.TotalMasters,
			"totalForms":     sum.TotalForms,
			"totalResponses": sum.TotalResponses,
			"limits":         limits,
		})
	}
}

func GetLimits(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limits, found, err := app.FreeLimits(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_limits", err)
			return
		}
		if !found {
			limits = model.DefaultFreeLimits
		}
		render.JSON(w, r, limits)
	}
}

// UpdateLimits overwrites the free-plan ceilings. Fields that are absent or
// not numeric keep their current value, so masters can adjust one resource
// kind at a time.
func UpdateLimits(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		limits, err := app.UpdateFreeLimits(r.Context(),
			limitField(body, "tasks"),
			limitField(body, "texts"),
			limitField(body, "docs"),
			limitField(body, "forms"),
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_limits", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"ok":         true,
			"freeLimits": limits,
		})
	}
}

func limitField(body map[string]any, key string) *int64 {
	switch v := body[key].(type) {
	case float64:
		n := int64(v)
		return &n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}
