// Package mocks provides gomock doubles for the Bumbeez CLI's collaborator
// interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), securestore.RefreshTokenKey).Return("", false, nil)
package mocks

// Credential store: Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=store_mock.go github.com/bumbeez/bumbeez-cli/internal/securestore Store

// Notification sink: Notify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=notifier_mock.go github.com/bumbeez/bumbeez-cli/internal/notify Notifier
