package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	"github.com/greenhands/greenhands-shell/internal/mocks"
	fakes "github.com/greenhands/greenhands-shell/internal/mocks/auth"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

func newTestBootstrapper(repo ports.ProfileRepository) *LeaderBootstrapper {
	return NewLeaderBootstrapper(LeaderBootstrapperOptions{
		Profiles:  StaticProfiles{Repo: repo},
		Telemetry: quietTelemetry(),
	})
}

func TestNewLeaderBootstrapper_RequiresProfiles(t *testing.T) {
	assert.Panics(t, func() { NewLeaderBootstrapper(LeaderBootstrapperOptions{}) })
}

func TestLeaderBootstrapper_LeaderExists_NoUpdate(t *testing.T) {
	for _, userID := range []string{"u1", "", "leader-1", "00000000-0000-0000-0000-000000000000"} {
		t.Run("user "+userID, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := mocks.NewMockProfileRepository(ctrl)
			repo.EXPECT().
				ListByRoles(gomock.Any(), domainauth.LeaderRoles, 1).
				Return([]domainauth.Profile{{ID: "leader-1", Role: domainauth.RoleAdmin}}, nil).
				Times(1)
			// No Update expectation: any update fails the test.

			assert.False(t, newTestBootstrapper(repo).Bootstrap(context.Background(), userID))
		})
	}
}

func TestLeaderBootstrapper_NoLeader_Promotes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockProfileRepository(ctrl)
	gomock.InOrder(
		repo.EXPECT().ListByRoles(gomock.Any(), domainauth.LeaderRoles, 1).Return(nil, nil),
		repo.EXPECT().Update(gomock.Any(), "u1", domainauth.LeaderPromotion()).Return(nil),
	)

	assert.True(t, newTestBootstrapper(repo).Bootstrap(context.Background(), "u1"))
}

func TestLeaderBootstrapper_PromotedProfileFields(t *testing.T) {
	repo := fakes.NewMemoryProfiles(
		domainauth.Profile{ID: "u1", Role: domainauth.RoleDriver, Status: domainauth.ProfileStatusPending},
		domainauth.Profile{ID: "u2", Role: domainauth.RoleDriver, Status: domainauth.ProfileStatusPending},
	)

	require.True(t, newTestBootstrapper(repo).Bootstrap(context.Background(), "u1"))

	p, ok := repo.Profile("u1")
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleTeamLeader, p.Role)
	assert.True(t, p.Approved)
	assert.Equal(t, domainauth.ProfileStatusActive, p.Status)

	// A second user finds the leader and stays a driver.
	assert.False(t, newTestBootstrapper(repo).Bootstrap(context.Background(), "u2"))
	p2, _ := repo.Profile("u2")
	assert.Equal(t, domainauth.RoleDriver, p2.Role)
	assert.Equal(t, 1, repo.Updates())
}

func TestLeaderBootstrapper_FailuresReportFailed(t *testing.T) {
	boom := errors.New("backend unreachable")
	tests := []struct {
		name  string
		setup func(repo *mocks.MockProfileRepository)
	}{
		{
			name: "list fails",
			setup: func(repo *mocks.MockProfileRepository) {
				repo.EXPECT().ListByRoles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)
			},
		},
		{
			name: "update fails",
			setup: func(repo *mocks.MockProfileRepository) {
				repo.EXPECT().ListByRoles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
				repo.EXPECT().Update(gomock.Any(), "u1", gomock.Any()).Return(boom)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			repo := mocks.NewMockProfileRepository(ctrl)
			tt.setup(repo)

			assert.Equal(t, BootstrapFailed, newTestBootstrapper(repo).Attempt(context.Background(), "u1"))
		})
	}
}

type failingSource struct{ err error }

func (f failingSource) Profiles(context.Context) (ports.ProfileRepository, error) { return nil, f.err }

func TestLeaderBootstrapper_SourceUnavailable(t *testing.T) {
	b := NewLeaderBootstrapper(LeaderBootstrapperOptions{
		Profiles:  failingSource{err: ErrNotConfigured},
		Telemetry: quietTelemetry(),
	})
	assert.False(t, b.Bootstrap(context.Background(), "u1"))
	assert.Equal(t, BootstrapFailed, b.Attempt(context.Background(), "u1"))
}

// promotingRepo is a profile repository that can also promote atomically.
type promotingRepo struct {
	*mocks.MockProfileRepository
	*mocks.MockLeaderPromoter
}

func TestLeaderBootstrapper_UsesAtomicPromotion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := promotingRepo{
		MockProfileRepository: mocks.NewMockProfileRepository(ctrl),
		MockLeaderPromoter:    mocks.NewMockLeaderPromoter(ctrl),
	}
	repo.MockLeaderPromoter.EXPECT().PromoteIfNoLeader(gomock.Any(), "u1").Return(true, nil)

	assert.True(t, newTestBootstrapper(repo).Bootstrap(context.Background(), "u1"))
}

func TestLeaderBootstrapper_ConcurrentFirstUsers(t *testing.T) {
	run := func(repo ports.ProfileRepository) []bool {
		b := newTestBootstrapper(repo)
		results := make([]bool, 2)
		var wg sync.WaitGroup
		for i, id := range []string{"u1", "u2"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = b.Bootstrap(context.Background(), id)
			}()
		}
		wg.Wait()
		return results
	}
	seed := func() *fakes.MemoryProfiles {
		return fakes.NewMemoryProfiles(
			domainauth.Profile{ID: "u1", Role: domainauth.RoleDriver},
			domainauth.Profile{ID: "u2", Role: domainauth.RoleDriver},
		)
	}

	t.Run("separate check and update can promote both", func(t *testing.T) {
		repo := seed()
		// Both callers finish their check before either updates.
		var listed sync.WaitGroup
		listed.Add(2)
		repo.OnList = func() {
			listed.Done()
			listed.Wait()
		}

		assert.Equal(t, []bool{true, true}, run(repo))
		assert.Len(t, repo.Leaders(), 2)
	})

	t.Run("atomic promotion promotes exactly one", func(t *testing.T) {
		repo := fakes.AtomicProfiles{MemoryProfiles: seed()}

		assert.ElementsMatch(t, []bool{true, false}, run(repo))
		assert.Len(t, repo.Leaders(), 1)
	})
}

func TestLeaderBootstrapper_RecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewLeaderBootstrapper(LeaderBootstrapperOptions{
		Profiles:  StaticProfiles{Repo: fakes.NewMemoryProfiles(domainauth.Profile{ID: "u1", Role: domainauth.RoleDriver})},
		Telemetry: Telemetry{Logger: quietTelemetry().Logger, Metrics: metrics.NewWithRegistry(reg)},
	})

	require.True(t, b.Bootstrap(context.Background(), "u1"))
	require.False(t, b.Bootstrap(context.Background(), "u1"))

	expected := `
# HELP greenhands_bootstrap_total First-leader bootstrap attempts by outcome
# TYPE greenhands_bootstrap_total counter
greenhands_bootstrap_total{result="leader_exists"} 1
greenhands_bootstrap_total{result="promoted"} 1
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "greenhands_bootstrap_total"))
}
