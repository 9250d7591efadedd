// Package mocks provides gomock implementations of the ports used by the shell services.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockProfileRepository(ctrl)
//	repo.EXPECT().ListByRoles(gomock.Any(), domainauth.LeaderRoles, 1).Return(nil, nil)
package mocks

// Generate mocks for the profile store ports.
// MockProfileRepository covers GetByID, Update and ListByRoles; MockLeaderPromoter covers PromoteIfNoLeader.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_repository_mock.go github.com/greenhands/greenhands-shell/internal/ports ProfileRepository,LeaderPromoter
