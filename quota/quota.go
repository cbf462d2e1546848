package quota

import (
	"context"
	"fmt"

	"github.com/formden/formden/model"
	"github.com/pkg/errors"
)

// LimitsSource reads the global free-plan limits. Implementations must not
// cache across calls: masters edit the limits at runtime and the gate reads
// them on every gated request.
type LimitsSource interface {
	FreeLimits(ctx context.Context) (model.FreeLimits, bool, error)
}

// CountFunc counts the resources of one kind already owned by an actor.
type CountFunc func(ctx context.Context, ownerID string) (int64, error)

// ExceededError is a quota denial. It carries the machine-readable payload
// callers map to a payment-required response, distinct from authorization
// failures.
type ExceededError struct {
	Resource model.ResourceKind `json:"type"`
	Limit    int64              `json:"limit"`
	Count    int64              `json:"count"`
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("free plan limit reached for %s (%d/%d)", e.Resource, e.Count, e.Limit)
}

// Check decides whether the identified actor may create one more resource of
// the given kind. Masters and paid actors pass unconditionally, before any
// read. A missing limits row or a non-positive configured limit is zero
// allowance, not unlimited. The gate itself writes nothing.
//
// The limits read and the count read are deliberately not atomic with the
// creation that follows an allow: two concurrent creations by the same actor
// may both pass and overshoot the ceiling by one. This soft-limit semantics
// is accepted, not a bug to fix here.
func Check(ctx context.Context, id Identity, resource model.ResourceKind, limits LimitsSource, count CountFunc) error {
	if id.Privileged() {
		return nil
	}

	l, found, err := limits.FreeLimits(ctx)
	if err != nil {
		return errors.Wrap(err, "quota: load limits")
	}
	var limit int64
	if found {
		limit = l.ForResource(resource)
	}
	if limit <= 0 {
		return &ExceededError{Resource: resource, Limit: 0, Count: 0}
	}

	n, err := count(ctx, id.ActorID)
	if err != nil {
		return errors.Wrapf(err, "quota: count %s", resource)
	}
	if n >= limit {
		return &ExceededError{Resource: resource, Limit: limit, Count: n}
	}

	return nil
}
