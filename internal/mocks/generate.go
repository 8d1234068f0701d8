// Package mocks provides mock implementations for testing the identity
// subsystem.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the identity ports. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	cache := mocks.NewMockIdentityCache(ctrl)
//	cache.EXPECT().Get(gomock.Any(), "user").Return("", ports.ErrNotFound)
package mocks

// Generate mock for IdentityCache interface from internal/ports package.
// This creates MockIdentityCache with methods for all IdentityCache
// interface methods: Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_cache_mock.go github.com/quillsuite/quill-go/internal/ports IdentityCache
