package data

// Package data implements the Postgres-backed repositories used by operator tooling.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greenhands/greenhands-shell/internal/data/pgxutil"
	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// firstLeaderLock names the advisory lock serialising first-leader promotions.
const firstLeaderLock = "greenhands:first-leader"

const profileColumns = `id, role, phone, first_name, last_name, approved, status,
	pin_hash, pin_attempts, pin_locked_until, created_at`

// ProfileRepo provides database operations for profiles.
type ProfileRepo struct {
	DB *sql.DB
}

var (
	_ ports.ProfileRepository = (*ProfileRepo)(nil)
	_ ports.LeaderPromoter    = (*ProfileRepo)(nil)
)

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, apperrors.ValidationField("id", fmt.Sprintf("invalid profile id %q", id))
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (domainauth.Profile, error) {
	var (
		p           domainauth.Profile
		id          uuid.UUID
		role        string
		pinHash     sql.NullString
		pinLockedAt sql.NullTime
	)
	err := row.Scan(&id, &role, &p.Phone, &p.FirstName, &p.LastName, &p.Approved, &p.Status,
		&pinHash, &p.PinAttempts, &pinLockedAt, &p.CreatedAt)
	if err != nil {
		return domainauth.Profile{}, err
	}
	p.ID = id.String()
	p.Role = domainauth.Role(role)
	if pinHash.Valid {
		p.PinHash = &pinHash.String
	}
	if pinLockedAt.Valid {
		t := pinLockedAt.Time
		p.PinLockedUntil = &t
	}
	return p, nil
}

// GetByID returns the profile or a not_found AppError.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (domainauth.Profile, error) {
	uid, err := parseID(id)
	if err != nil {
		return domainauth.Profile{}, err
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, uid)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domainauth.Profile{}, apperrors.NotFoundf("profile %s not found", id)
	}
	if err != nil {
		return domainauth.Profile{}, apperrors.MapDBError(err)
	}
	return p, nil
}

// Create inserts a profile. Zero-valued role and status fall back to the column defaults.
func (r *ProfileRepo) Create(ctx context.Context, p domainauth.Profile) (domainauth.Profile, error) {
	if p.ID == "" {
		return domainauth.Profile{}, ErrProfileRequired
	}
	uid, err := parseID(p.ID)
	if err != nil {
		return domainauth.Profile{}, err
	}
	if p.Role == "" {
		p.Role = domainauth.RoleDriver
	}
	if !p.Role.Valid() {
		return domainauth.Profile{}, apperrors.ValidationField("role", fmt.Sprintf("unknown role %q", p.Role))
	}
	if p.Status == "" {
		p.Status = domainauth.ProfileStatusPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (id, role, phone, first_name, last_name, approved, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+profileColumns,
		uid, string(p.Role), p.Phone, p.FirstName, p.LastName, p.Approved, p.Status, p.CreatedAt,
	)
	out, err := scanProfile(row)
	if err != nil {
		return domainauth.Profile{}, apperrors.MapDBError(err)
	}
	return out, nil
}

// Update applies the non-nil fields of upd.
func (r *ProfileRepo) Update(ctx context.Context, id string, upd domainauth.ProfileUpdate) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	if upd.Empty() {
		return nil
	}

	sets := make([]string, 0, 3)
	args := []any{uid}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return apperrors.ValidationField("role", fmt.Sprintf("unknown role %q", *upd.Role))
		}
		add("role", string(*upd.Role))
	}
	if upd.Approved != nil {
		add("approved", *upd.Approved)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}

	res, err := r.DB.ExecContext(ctx, `UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if n == 0 {
		return apperrors.NotFoundf("profile %s not found", id)
	}
	return nil
}

// ListByRoles returns up to limit profiles with one of roles, oldest first.
// A non-positive limit returns every match.
func (r *ProfileRepo) ListByRoles(ctx context.Context, roles []domainauth.Role, limit int) ([]domainauth.Profile, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role = ANY($1) ORDER BY created_at ASC, id ASC`
	args := []any{names}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()

	var out []domainauth.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, apperrors.MapDBError(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// PromoteIfNoLeader promotes id to team_leader when no leader or admin exists.
// Concurrent callers are serialised by a transaction-scoped advisory lock, and the
// conditional UPDATE re-checks under that lock, so at most one first leader is created.
func (r *ProfileRepo) PromoteIfNoLeader(ctx context.Context, id string) (bool, error) {
	uid, err := parseID(id)
	if err != nil {
		return false, err
	}

	var promoted bool
	err = pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if err := pgxutil.AdvisoryXactLock(ctx, tx, firstLeaderLock); err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE profiles
				SET role = $2, approved = true, status = $3
				WHERE id = $1
				  AND NOT EXISTS (SELECT 1 FROM profiles WHERE role = ANY($4))`,
				uid, string(domainauth.RoleTeamLeader), domainauth.ProfileStatusActive,
				[]string{string(domainauth.RoleTeamLeader), string(domainauth.RoleAdmin)},
			)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			promoted = n == 1
			return nil
		},
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return promoted, nil
}
