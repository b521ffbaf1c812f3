package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/inferq/internal/domain/model"
	"github.com/target/inferq/internal/testutil"
)

const testDimension = 1536

func TestEmbeddingRepo_Upsert(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		jobs := NewInferenceJobRepo(db, RepoConfig{})
		repo := NewEmbeddingRepo(db, nil)
		ctx := context.Background()

		msg, _, err := jobs.CreateWithMessage(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		first, err := repo.Upsert(ctx, &model.UpsertEmbeddingRequest{
			MessageID: msg.ID,
			UserID:    msg.UserID,
			Vector:    testutil.UnitVector(testDimension, 0),
			Model:     "mock-model-v1",
		})
		require.NoError(t, err)
		assert.Len(t, first.Vector, testDimension)

		second, err := repo.Upsert(ctx, &model.UpsertEmbeddingRequest{
			MessageID: msg.ID,
			UserID:    msg.UserID,
			Vector:    testutil.UnitVector(testDimension, 1),
			Model:     "mock-model-v2",
		})
		require.NoError(t, err)
		assert.Equal(t, "mock-model-v2", second.Model)
		assert.InDelta(t, 1.0, second.Vector[1], 1e-6)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)

		var count int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM embeddings WHERE message_id = $1`, msg.ID).Scan(&count))
		assert.Equal(t, 1, count)

		got, err := repo.GetByMessageID(ctx, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, "mock-model-v2", got.Model)
	})
}

func TestEmbeddingRepo_UpsertValidation(t *testing.T) {
	t.Parallel()

	repo := NewEmbeddingRepo(nil, nil)
	_, err := repo.Upsert(context.Background(), &model.UpsertEmbeddingRequest{MessageID: "m", UserID: "u"})
	require.Error(t, err)
	_, err = repo.Upsert(context.Background(), nil)
	require.Error(t, err)
}

func TestEmbeddingRepo_SearchSimilar(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		jobs := NewInferenceJobRepo(db, RepoConfig{})
		repo := NewEmbeddingRepo(db, nil)
		ctx := context.Background()

		ids := make([]string, 3)
		for i := range ids {
			msg, _, err := jobs.CreateWithMessage(ctx, testutil.NewJobRequest().Build())
			require.NoError(t, err)
			_, err = repo.Upsert(ctx, &model.UpsertEmbeddingRequest{
				MessageID: msg.ID,
				UserID:    msg.UserID,
				Vector:    testutil.UnitVector(testDimension, i),
				Model:     "mock-model-v1",
			})
			require.NoError(t, err)
			ids[i] = msg.ID
		}

		other, _, err := jobs.CreateWithMessage(ctx, testutil.NewJobRequest().WithUser("other-user").Build())
		require.NoError(t, err)
		_, err = repo.Upsert(ctx, &model.UpsertEmbeddingRequest{
			MessageID: other.ID,
			UserID:    other.UserID,
			Vector:    testutil.UnitVector(testDimension, 2),
			Model:     "mock-model-v1",
		})
		require.NoError(t, err)

		hits, err := repo.SearchSimilar(ctx, model.SimilarityQuery{
			UserID: testutil.TestUserID,
			Vector: testutil.UnitVector(testDimension, 2),
			Limit:  2,
		})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, ids[2], hits[0].MessageID)
		assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
		for _, h := range hits {
			assert.NotEqual(t, other.ID, h.MessageID)
		}
	})
}
