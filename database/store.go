package database

import (
	"context"
	"database/sql"

	"github.com/formden/formden/model"
	"github.com/pkg/errors"
)

// Store bundles the lookups the quota gate and the auth plumbing need. Every
// method hits the database directly; in particular FreeLimits is read fresh
// on each call so limit edits take effect on the next gated request.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db}
}

func (s *Store) FindRolePlan(ctx context.Context, id string) (model.Role, model.Plan, bool, error) {
	var role model.Role
	var plan model.Plan
	err := s.db.
		QueryRowContext(ctx, "SELECT role, plan FROM account WHERE id = ?", id).
		Scan(&role, &plan)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, errors.Wrap(err, "db.find_role_plan")
	}
	return role, plan, true, nil
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (acc model.Account, found bool, err error) {
	err = s.db.
		QueryRowContext(ctx, `
			SELECT id, username, role, plan, created_at
			FROM account
			WHERE username = ?`,
			username,
		).
		Scan(&acc.ID, &acc.Username, &acc.Role, &acc.Plan, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, errors.Wrap(err, "db.find_account")
	}
	return acc, true, nil
}

func (s *Store) CreateAccount(ctx context.Context, id, username, passwordHash string, role model.Role, plan model.Plan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (id, username, password_hash, role, plan)
		VALUES (?, ?, ?, ?, ?)`,
		id, username, passwordHash, role, plan,
	)
	return errors.Wrap(err, "db.insert_account")
}

// EnsureMaster upserts the configured master account, keeping its id stable
// across restarts.
func (s *Store) EnsureMaster(ctx context.Context, id, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (id, username, password_hash, role, plan)
		VALUES (?, ?, ?, 'master', 'paid')
		ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash`,
		id, username, passwordHash,
	)
	return errors.Wrap(err, "db.ensure_master")
}

func (s *Store) FreeLimits(ctx context.Context) (model.FreeLimits, bool, error) {
	var l model.FreeLimits
	err := s.db.
		QueryRowContext(ctx, `
			SELECT tasks_limit, texts_limit, docs_limit, forms_limit
			FROM settings
			WHERE key = 'global'`).
		Scan(&l.Tasks, &l.Texts, &l.Docs, &l.Forms)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FreeLimits{}, false, nil
	}
	if err != nil {
		return model.FreeLimits{}, false, errors.Wrap(err, "db.get_limits")
	}
	return l, true, nil
}

// UpdateFreeLimits overwrites each configured ceiling for which a new value
// is supplied; nil fields keep their current value.
func (s *Store) UpdateFreeLimits(ctx context.Context, tasks, texts, docs, forms *int64) (model.FreeLimits, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE settings
		SET
			tasks_limit = COALESCE(?, tasks_limit),
			texts_limit = COALESCE(?, texts_limit),
			docs_limit = COALESCE(?, docs_limit),
			forms_limit = COALESCE(?, forms_limit),
			updated_at = CURRENT_TIMESTAMP
		WHERE key = 'global'`,
		tasks, texts, docs, forms,
	)
	if err != nil {
		return model.FreeLimits{}, errors.Wrap(err, "db.update_limits")
	}

	l, _, err := s.FreeLimits(ctx)
	return l, err
}

func (s *Store) CountForms(ctx context.Context, ownerID string) (int64, error) {
	return s.countOwned(ctx, "form", ownerID)
}

func (s *Store) CountTasks(ctx context.Context, ownerID string) (int64, error) {
	return s.countOwned(ctx, "task", ownerID)
}

func (s *Store) CountTexts(ctx context.Context, ownerID string) (int64, error) {
	return s.countOwned(ctx, "text_entry", ownerID)
}

func (s *Store) countOwned(ctx context.Context, table, ownerID string) (n int64, err error) {
	err = s.db.
		QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE owner_id = ?", ownerID).
		Scan(&n)
	return n, errors.Wrapf(err, "db.count.%s", table)
}

type Summary struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalMasters   int64 `json:"totalMasters"`
	TotalForms     int64 `json:"totalForms"`
	TotalResponses int64 `json:"totalResponses"`
}

func (s *Store) Summarize(ctx context.Context) (sum Summary, err error) {
	err = s.db.
		QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM account),
				(SELECT COUNT(*) FROM account WHERE role = 'master'),
				(SELECT COUNT(*) FROM form),
				(SELECT COUNT(*) FROM response)`).
		Scan(&sum.TotalUsers, &sum.TotalMasters, &sum.TotalForms, &sum.TotalResponses)
	return sum, errors.Wrap(err, "db.summary")
}
