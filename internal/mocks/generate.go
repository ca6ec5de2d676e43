// Package mocks provides mock implementations for testing the session core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	api := mocks.NewMockAuthAPI(ctrl)
//	api.EXPECT().Me(gomock.Any()).Return(user, nil)
package mocks

// Generate mock for AuthAPI interface from internal/ports.
// This creates MockAuthAPI with methods for all AuthAPI interface methods:
// Login, Refresh, Logout, Me, Validate, ChangePassword
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_api_mock.go github.com/hrdesk/hrdesk-client/internal/ports AuthAPI

// Generate mock for StateRepository interface from internal/ports.
// This creates MockStateRepository with methods for all StateRepository interface methods:
// Load, Save, Clear
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=state_repository_mock.go github.com/hrdesk/hrdesk-client/internal/ports StateRepository
