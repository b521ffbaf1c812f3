package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/inferq/internal/core"
	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/observability/metrics"
	"github.com/target/inferq/internal/observability/statsd"
	"github.com/target/inferq/internal/ports"
)

// DedupeKeyPrefix namespaces embedding dedupe entries within the cache.
const DedupeKeyPrefix = "embedding:dedupe:"

// EmbeddingServiceConfig tunes engine calls and deduplication.
type EmbeddingServiceConfig struct {
	// Timeout bounds one engine call. Zero disables the bound.
	Timeout time.Duration
	// DedupeTTL is how long a (message, content) pair is remembered as embedded. Zero disables.
	DedupeTTL time.Duration
}

// EmbeddingServiceOptions groups dependencies for EmbeddingService.
type EmbeddingServiceOptions struct {
	Messages   core.MessageRepository   // Required
	Embeddings core.EmbeddingRepository // Required
	Engine     ports.EmbeddingEngine    // Required
	Cache      core.CacheRepository     // Optional: skips re-embedding unchanged content
	Config     EmbeddingServiceConfig
	Logger     *slog.Logger
	Metrics    statsd.Sink
}

// EmbeddingService computes message embeddings and answers similarity queries.
type EmbeddingService struct {
	messages   core.MessageRepository
	embeddings core.EmbeddingRepository
	engine     ports.EmbeddingEngine
	cache      core.CacheRepository
	cfg        EmbeddingServiceConfig
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewEmbeddingService constructs a new EmbeddingService.
func NewEmbeddingService(opts EmbeddingServiceOptions) (*EmbeddingService, error) {
	if opts.Messages == nil {
		return nil, errors.New("MessageRepository is required")
	}
	if opts.Embeddings == nil {
		return nil, errors.New("EmbeddingRepository is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("EmbeddingEngine is required")
	}
	if opts.Engine.Dimension() <= 0 {
		return nil, errors.New("embedding engine dimension must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "embedding_service")
		logger.Debug("EmbeddingService initialized",
			"model", opts.Engine.Model(),
			"dimension", opts.Engine.Dimension(),
			"dedupe", opts.Cache != nil && opts.Config.DedupeTTL > 0,
		)
	}

	return &EmbeddingService{
		messages:   opts.Messages,
		embeddings: opts.Embeddings,
		engine:     opts.Engine,
		cache:      opts.Cache,
		cfg:        opts.Config,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// MustNewEmbeddingService constructs a new EmbeddingService and panics on error.
func MustNewEmbeddingService(opts EmbeddingServiceOptions) *EmbeddingService {
	svc, err := NewEmbeddingService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create EmbeddingService: %v", err))
	}
	return svc
}

// Embed handles a direct embedding request. With a message id the vector is stored
// against that message; content alone is embedded and reported without storing.
// Callers other than the service role may only embed their own messages.
func (s *EmbeddingService) Embed(
	ctx context.Context,
	caller domainauth.Identity,
	req model.EmbedRequest,
) (*model.EmbedResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	content := ""
	if req.Content != nil {
		content = *req.Content
	}
	messageID := ""
	if req.MessageID != nil {
		messageID = strings.TrimSpace(*req.MessageID)
	}
	if messageID == "" && strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("content or message_id is required")
	}

	if messageID == "" {
		if _, err := s.compute(ctx, content); err != nil {
			return nil, err
		}
		return &model.EmbedResult{
			Model:     s.engine.Model(),
			Dimension: s.engine.Dimension(),
		}, nil
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message %s: %w", messageID, err)
	}
	if !mayAccessMessage(caller, req.UserID, msg) {
		return nil, apperrors.NotFoundf("message %s not found", messageID)
	}

	text := msg.Content
	if strings.TrimSpace(content) != "" {
		text = content
	}
	emb, err := s.EmbedMessage(ctx, msg, text)
	if err != nil {
		return nil, err
	}
	return &model.EmbedResult{
		MessageID: emb.MessageID,
		Model:     emb.Model,
		Dimension: len(emb.Vector),
		Stored:    true,
	}, nil
}

func mayAccessMessage(caller domainauth.Identity, asUser *string, msg *model.Message) bool {
	if caller.Role == domainauth.RoleService {
		return asUser == nil || *asUser == "" || *asUser == msg.UserID
	}
	return caller.UserID == msg.UserID
}

// EmbedMessage embeds text for msg and upserts it keyed by message id.
// A repeat call with unchanged content inside the dedupe window returns the stored row.
func (s *EmbeddingService) EmbedMessage(ctx context.Context, msg *model.Message, text string) (*model.Embedding, error) {
	if msg == nil {
		return nil, errors.New("message is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ValidationField("content", "content is required")
	}

	key := s.dedupeKey(msg.ID, text)
	if existing := s.lookupDuplicate(ctx, key, msg.ID); existing != nil {
		return existing, nil
	}

	vector, err := s.compute(ctx, text)
	if err != nil {
		return nil, err
	}

	emb, err := s.embeddings.Upsert(ctx, &model.UpsertEmbeddingRequest{
		MessageID: msg.ID,
		UserID:    msg.UserID,
		Vector:    vector,
		Model:     s.engine.Model(),
	})
	if err != nil {
		return nil, fmt.Errorf("store embedding for message %s: %w", msg.ID, err)
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, []byte(emb.Model), s.cfg.DedupeTTL); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to record embedding dedupe key", "message_id", msg.ID, "error", err)
		}
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "embedding stored",
			"message_id", msg.ID,
			"conversation_id", msg.ConversationID,
			"model", emb.Model,
		)
	}
	return emb, nil
}

// Search embeds the query text and returns the caller's nearest messages.
func (s *EmbeddingService) Search(
	ctx context.Context,
	caller domainauth.Identity,
	req model.SearchRequest,
) ([]*model.SimilarMessage, error) {
	if !caller.Valid() {
		return nil, apperrors.Unauthorized("a verified user is required")
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperrors.ValidationField("content", "content is required")
	}

	vector, err := s.compute(ctx, req.Content)
	if err != nil {
		return nil, err
	}
	hits, err := s.embeddings.SearchSimilar(ctx, model.SimilarityQuery{
		UserID: caller.UserID,
		Vector: vector,
		Limit:  req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search similar messages: %w", err)
	}
	return hits, nil
}

// compute calls the engine under the configured timeout and checks the vector shape.
func (s *EmbeddingService) compute(ctx context.Context, text string) ([]float32, error) {
	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	vector, err := s.engine.Embed(callCtx, text)
	if err == nil && len(vector) != s.engine.Dimension() {
		err = apperrors.Internal(fmt.Sprintf("embedding dimension mismatch: got %d, want %d",
			len(vector), s.engine.Dimension()))
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitEngineCall(s.metrics, metrics.EngineMetric{
		Kind:     metrics.KindEmbedding,
		Provider: s.engine.Model(),
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})

	if err != nil {
		return nil, engineError(callCtx, ctx, err, "embedding")
	}
	return vector, nil
}

func (s *EmbeddingService) dedupeKey(messageID, text string) string {
	if s.cache == nil || s.cfg.DedupeTTL <= 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(s.engine.Model() + "\x00" + text))
	return DedupeKeyPrefix + messageID + ":" + hex.EncodeToString(sum[:16])
}

func (s *EmbeddingService) lookupDuplicate(ctx context.Context, key, messageID string) *model.Embedding {
	if key == "" {
		return nil
	}
	seen, err := s.cache.Exists(ctx, key)
	if err != nil || !seen {
		return nil
	}
	existing, err := s.embeddings.GetByMessageID(ctx, messageID)
	if err != nil {
		return nil
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "embedding unchanged, skipping engine call", "message_id", messageID)
	}
	return existing
}

// engineError classifies an engine failure. Expiry of the call's own deadline is a Timeout;
// anything else, including cancellation of the parent, is Internal.
func engineError(callCtx, parent context.Context, err error, what string) error {
	if apperrors.GetCode(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		if parent.Err() == nil || errors.Is(parent.Err(), context.DeadlineExceeded) {
			return apperrors.Wrap(err, apperrors.ErrCodeTimeout, what+" engine timed out")
		}
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, what+" engine failed")
}
