package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

const profilesPath = "/rest/v1/profiles"

// ProfileStore reads and updates the profiles table through PostgREST.
// PostgREST has no multi-statement transactions, so it does not implement
// ports.LeaderPromoter.
type ProfileStore struct {
	c *Client
}

var _ ports.ProfileRepository = (*ProfileStore)(nil)

// GetByID fetches one profile by user id; a missing row is a NotFound error.
func (s *ProfileStore) GetByID(ctx context.Context, id string) (domainauth.Profile, error) {
	if id == "" {
		return domainauth.Profile{}, apperrors.ValidationField("id", "profile id is required")
	}
	var rows []domainauth.Profile
	err := s.c.do(ctx, s.c.restHTTP, request{
		method: http.MethodGet,
		path:   profilesPath,
		query:  url.Values{"id": {"eq." + id}, "select": {"*"}},
	}, &rows)
	if err != nil {
		return domainauth.Profile{}, err
	}
	if len(rows) == 0 {
		return domainauth.Profile{}, apperrors.NotFoundf("profile %s not found", id)
	}
	return rows[0], nil
}

// Update patches the non-nil fields of upd on the profile with the given id.
func (s *ProfileStore) Update(ctx context.Context, id string, upd domainauth.ProfileUpdate) error {
	if id == "" {
		return apperrors.ValidationField("id", "profile id is required")
	}
	if upd.Empty() {
		return nil
	}
	var rows []domainauth.Profile
	err := s.c.do(ctx, s.c.restHTTP, request{
		method:  http.MethodPatch,
		path:    profilesPath,
		query:   url.Values{"id": {"eq." + id}},
		body:    upd,
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	// Row level security filters rows silently: no representation means nothing changed.
	if len(rows) == 0 {
		return apperrors.NotFoundf("profile %s not found", id)
	}
	return nil
}

// ListByRoles returns up to limit profiles holding one of roles, oldest first.
func (s *ProfileStore) ListByRoles(ctx context.Context, roles []domainauth.Role, limit int) ([]domainauth.Profile, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	q := url.Values{
		"select": {"*"},
		"role":   {"in.(" + strings.Join(names, ",") + ")"},
		"order":  {"created_at.asc"},
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var rows []domainauth.Profile
	if err := s.c.do(ctx, s.c.restHTTP, request{method: http.MethodGet, path: profilesPath, query: q}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
