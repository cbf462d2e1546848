package httpx

import (
	"fmt"
	"net/http"

	"github.com/formden/formden/log"
	"github.com/formden/formden/quota"
	"github.com/go-chi/render"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and a
// uniform JSON body. Ownership mismatches go through here too, so a caller
// cannot tell a foreign resource from a missing one.
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	JSONMessage(w, r, http.StatusNotFound, "Not found.")
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// JSONMessage sends a {"message": ...} body with the given status.
func JSONMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{"message": msg})
}

// InvalidOwner is the 400-class rejection for an unresolvable acting
// identity, distinct from both authentication failures and quota denials.
func InvalidOwner(w http.ResponseWriter, r *http.Request) {
	JSONMessage(w, r, http.StatusBadRequest,
		"Owner (x-owner-id) is required and must be a valid identifier.")
}

// QuotaExceeded sends the 402-class denial payload carried by the gate.
func QuotaExceeded(w http.ResponseWriter, r *http.Request, e *quota.ExceededError) {
	render.Status(r, http.StatusPaymentRequired)
	render.JSON(w, r, map[string]any{
		"message": fmt.Sprintf("Free plan limit reached for %s.", e.Resource),
		"type":    e.Resource,
		"limit":   e.Limit,
		"count":   e.Count,
	})
}
