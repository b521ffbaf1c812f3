package data

import apperrors "github.com/target/inferq/internal/errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrJobNotFound       = apperrors.NotFound("inference job not found")
	ErrMessageNotFound   = apperrors.NotFound("message not found")
	ErrEmbeddingNotFound = apperrors.NotFound("embedding not found")
)
