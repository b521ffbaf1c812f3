// Package mocks provides mock implementations for testing the inferq services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the repository
// and collaborator interfaces. The mocks are generated using go:generate directives.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	repo := mocks.NewMockInferenceJobRepository(ctrl)
//	repo.EXPECT().ClaimNext(gomock.Any(), 30).Return(job, nil)
package mocks

// Repositories from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=message_repository_mock.go github.com/target/inferq/internal/core MessageRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=inference_job_repository_mock.go github.com/target/inferq/internal/core InferenceJobRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=reaper_repository_mock.go github.com/target/inferq/internal/core ReaperRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=embedding_repository_mock.go github.com/target/inferq/internal/core EmbeddingRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/target/inferq/internal/core CacheRepository

// External collaborators from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=inference_engine_mock.go github.com/target/inferq/internal/ports InferenceEngine
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=embedding_engine_mock.go github.com/target/inferq/internal/ports EmbeddingEngine
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=identity_verifier_mock.go github.com/target/inferq/internal/ports IdentityVerifier
