package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	profileDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/profile"
	"github.com/frahmantamala/employee-attendance/internal/profile"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) profile.RepositoryAPI {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profileDatamodel.Profile, error) {
	var p profileDatamodel.Profile
	query := r.db.Rebind(`SELECT id, employee_id, name, department, created_at, updated_at
		FROM profiles WHERE id = ?`)

	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	query := r.db.Rebind(`SELECT role FROM user_roles WHERE user_id = ?`)

	if err := r.db.GetContext(ctx, &role, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", profile.ErrRoleNotFound
		}
		return "", err
	}
	return role, nil
}

func (r *ProfileRepository) ListAll(ctx context.Context) ([]*profileDatamodel.Profile, error) {
	profiles := []*profileDatamodel.Profile{}
	query := `SELECT id, employee_id, name, department, created_at, updated_at
		FROM profiles ORDER BY name ASC`

	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *ProfileRepository) Create(ctx context.Context, p *profileDatamodel.Profile) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	query := `INSERT INTO profiles (id, employee_id, name, department, created_at, updated_at)
		VALUES (:id, :employee_id, :name, :department, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return err
}

// AssignRole sets the single role of a user, replacing any previous one.
func (r *ProfileRepository) AssignRole(ctx context.Context, userID string, role string) error {
	query := r.db.Rebind(`INSERT INTO user_roles (id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET role = excluded.role`)

	_, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, role, time.Now())
	return err
}
