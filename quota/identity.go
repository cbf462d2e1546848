// Package quota resolves who is acting (and on what plan) and decides
// whether a resource creation fits inside the free-plan ceiling.
package quota

import (
	"context"
	"regexp"

	"github.com/formden/formden/model"
	"github.com/pkg/errors"
)

// ErrInvalidOwner marks a request whose acting identity cannot be resolved
// to a well-formed owner id. It maps to a 400-class rejection, distinct from
// a quota denial.
var ErrInvalidOwner = errors.New("owner id is required and must be a valid 24-character hex identifier")

var reOwnerID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidOwnerID reports whether s is a well-formed owner identifier.
func ValidOwnerID(s string) bool {
	return reOwnerID.MatchString(s)
}

// Claims is the identity material carried by a verified bearer token.
// Role and Plan may be empty when the token does not embed them.
type Claims struct {
	Subject string
	Role    model.Role
	Plan    model.Plan
}

// Identity is a resolved actor: a valid owner id plus effective role/plan.
type Identity struct {
	ActorID string
	Role    model.Role
	Plan    model.Plan
}

// Privileged reports whether quota enforcement is disabled for this actor.
func (id Identity) Privileged() bool {
	return id.Role == model.RoleMaster || id.Plan == model.PlanPaid
}

// AccountSource looks up the persisted role/plan of an account.
type AccountSource interface {
	FindRolePlan(ctx context.Context, id string) (model.Role, model.Plan, bool, error)
}

// ResolveIdentity determines the acting identity from token claims, an
// explicit owner header, and the persisted account record, in that order of
// precedence. The actor id comes from the claims subject when well-formed,
// else from the header; role/plan come from the claims when both are
// embedded, else from the account record, else default to user/free.
func ResolveIdentity(ctx context.Context, claims *Claims, ownerHeader string, accounts AccountSource) (Identity, error) {
	sources := []func() (string, bool){
		func() (string, bool) {
			if claims == nil {
				return "", false
			}
			return claims.Subject, ValidOwnerID(claims.Subject)
		},
		func() (string, bool) {
			return ownerHeader, ValidOwnerID(ownerHeader)
		},
	}

	id := Identity{}
	for _, source := range sources {
		if actorID, ok := source(); ok {
			id.ActorID = actorID
			break
		}
	}
	if id.ActorID == "" {
		return Identity{}, ErrInvalidOwner
	}

	if claims != nil {
		id.Role = claims.Role
		id.Plan = claims.Plan
	}
	if id.Role == "" || id.Plan == "" {
		role, plan, found, err := accounts.FindRolePlan(ctx, id.ActorID)
		if err != nil {
			return Identity{}, errors.Wrap(err, "resolve identity: load account")
		}
		if !found {
			role, plan = model.RoleUser, model.PlanFree
		}
		id.Role, id.Plan = role, plan
	}

	return id, nil
}
