package data

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *ProfileRepo {
	t.Helper()
	return NewProfileRepo(testutil.SetupEphemeralDB(t))
}

func createProfile(t *testing.T, repo *ProfileRepo, role domainauth.Role) domainauth.Profile {
	t.Helper()
	p, err := repo.Create(context.Background(), domainauth.Profile{
		ID:        uuid.NewString(),
		Role:      role,
		FirstName: "Léa",
		LastName:  "Martin",
		Phone:     "+33600000000",
	})
	require.NoError(t, err)
	return p
}

func TestProfileRepo_CreateAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	created := createProfile(t, repo, domainauth.RoleDriver)
	assert.Equal(t, domainauth.ProfileStatusPending, created.Status)
	assert.False(t, created.Approved)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, domainauth.RoleDriver, got.Role)
	assert.Nil(t, got.PinHash)
	assert.Nil(t, got.PinLockedUntil)
	assert.Equal(t, 0, got.PinAttempts)
}

func TestProfileRepo_GetByID_Errors(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.True(t, apperrors.IsNotFound(err))

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.True(t, apperrors.IsValidation(err))
}

func TestProfileRepo_Update(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	p := createProfile(t, repo, domainauth.RoleDriver)

	require.NoError(t, repo.Update(ctx, p.ID, domainauth.LeaderPromotion()))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleTeamLeader, got.Role)
	assert.True(t, got.Approved)
	assert.Equal(t, domainauth.ProfileStatusActive, got.Status)

	err = repo.Update(ctx, uuid.NewString(), domainauth.LeaderPromotion())
	assert.True(t, apperrors.IsNotFound(err))

	bad := domainauth.Role("owner")
	err = repo.Update(ctx, p.ID, domainauth.ProfileUpdate{Role: &bad})
	assert.True(t, apperrors.IsValidation(err))
}

func TestProfileRepo_ListByRoles(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	createProfile(t, repo, domainauth.RoleDriver)
	leader := createProfile(t, repo, domainauth.RoleTeamLeader)
	createProfile(t, repo, domainauth.RoleAdmin)

	all, err := repo.ListByRoles(ctx, domainauth.LeaderRoles, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := repo.ListByRoles(ctx, domainauth.LeaderRoles, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, leader.ID, one[0].ID)
}

func TestProfileRepo_PromoteIfNoLeader(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first := createProfile(t, repo, domainauth.RoleDriver)
	second := createProfile(t, repo, domainauth.RoleDriver)

	promoted, err := repo.PromoteIfNoLeader(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, promoted)

	promoted, err = repo.PromoteIfNoLeader(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, promoted, "a leader already exists")

	got, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleDriver, got.Role)
}

func TestProfileRepo_PromoteIfNoLeader_Concurrent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		ids[i] = createProfile(t, repo, domainauth.RoleDriver).ID
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ok, err := repo.PromoteIfNoLeader(ctx, id)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				count++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, count)
	leaders, err := repo.ListByRoles(ctx, domainauth.LeaderRoles, 0)
	require.NoError(t, err)
	assert.Len(t, leaders, 1)
}

func TestProfileRepo_CreateValidation(t *testing.T) {
	repo := &ProfileRepo{}
	_, err := repo.Create(context.Background(), domainauth.Profile{})
	assert.ErrorIs(t, err, ErrProfileRequired)

	_, err = repo.Create(context.Background(), domainauth.Profile{ID: uuid.NewString(), Role: "owner"})
	assert.True(t, apperrors.IsValidation(err))
}
