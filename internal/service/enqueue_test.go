package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
	apperrors "github.com/target/inferq/internal/errors"
	"github.com/target/inferq/internal/mocks"
	"go.uber.org/mock/gomock"
)

func newTestEnqueueService(t *testing.T) (*EnqueueService, *mocks.MockInferenceJobRepository, *capturingSink) {
	t.Helper()
	repo := mocks.NewMockInferenceJobRepository(gomock.NewController(t))
	sink := &capturingSink{}
	svc := MustNewEnqueueService(EnqueueServiceOptions{Repo: repo, MaxRetries: 2, Metrics: sink})
	svc.newID = func() string { return "22222222-2222-2222-2222-222222222222" }
	return svc, repo, sink
}

func TestNewEnqueueService(t *testing.T) {
	_, err := NewEnqueueService(EnqueueServiceOptions{})
	require.Error(t, err)

	repo := mocks.NewMockInferenceJobRepository(gomock.NewController(t))
	_, err = NewEnqueueService(EnqueueServiceOptions{Repo: repo, MaxRetries: -1})
	require.Error(t, err)
}

func TestEnqueueService_Enqueue(t *testing.T) {
	t.Run("assigns a conversation when none is given", func(t *testing.T) {
		svc, repo, sink := newTestEnqueueService(t)
		repo.EXPECT().
			CreateWithMessage(gomock.Any(), &model.CreateJobWithMessageRequest{
				Message: model.CreateMessageRequest{
					ConversationID: "22222222-2222-2222-2222-222222222222",
					UserID:         "user-1",
					Role:           model.RoleUser,
					Content:        "hello",
				},
				MaxRetries: 2,
			}).
			Return(
				&model.Message{ID: "m1", ConversationID: "22222222-2222-2222-2222-222222222222"},
				&model.InferenceJob{ID: "j1"},
				nil,
			)

		res, err := svc.Enqueue(context.Background(), testCaller, model.EnqueueRequest{Content: "hello"})
		require.NoError(t, err)
		assert.Equal(t, &model.EnqueueResult{
			MessageID:      "m1",
			JobID:          "j1",
			ConversationID: "22222222-2222-2222-2222-222222222222",
		}, res)

		transitions := sink.find("job.transition")
		require.Len(t, transitions, 1)
		assert.Equal(t, "enqueue", transitions[0].tags["transition"])
		assert.Equal(t, "success", transitions[0].tags["result"])
	})

	t.Run("keeps the caller's conversation", func(t *testing.T) {
		svc, repo, _ := newTestEnqueueService(t)
		conv := "33333333-3333-3333-3333-333333333333"
		repo.EXPECT().
			CreateWithMessage(gomock.Any(), gomock.Cond(func(req *model.CreateJobWithMessageRequest) bool {
				return req.Message.ConversationID == conv
			})).
			Return(&model.Message{ID: "m1", ConversationID: conv}, &model.InferenceJob{ID: "j1"}, nil)

		res, err := svc.Enqueue(context.Background(), testCaller, model.EnqueueRequest{
			Content:        "hello",
			ConversationID: &conv,
		})
		require.NoError(t, err)
		assert.Equal(t, conv, res.ConversationID)
	})

	t.Run("rejects anonymous callers", func(t *testing.T) {
		svc, _, _ := newTestEnqueueService(t)
		_, err := svc.Enqueue(context.Background(), domainauth.Identity{UserID: "x", Role: domainauth.RoleAnon},
			model.EnqueueRequest{Content: "hello"})
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	tests := []struct {
		name  string
		req   model.EnqueueRequest
		field string
	}{
		{"missing content", model.EnqueueRequest{}, "content"},
		{"blank content", model.EnqueueRequest{Content: " \n\t "}, "content"},
		{"oversized content", model.EnqueueRequest{Content: strings.Repeat("a", 32001)}, "content"},
		{"bad conversation id", model.EnqueueRequest{Content: "hi", ConversationID: strPtr("nope")}, "conversation_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestEnqueueService(t)
			_, err := svc.Enqueue(context.Background(), testCaller, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}

	t.Run("store failure", func(t *testing.T) {
		svc, repo, sink := newTestEnqueueService(t)
		boom := errors.New("tx aborted")
		repo.EXPECT().CreateWithMessage(gomock.Any(), gomock.Any()).Return(nil, nil, boom)

		_, err := svc.Enqueue(context.Background(), testCaller, model.EnqueueRequest{Content: "hello"})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, "error", sink.find("job.transition")[0].tags["result"])
	})
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("  short "))
	long := strings.Repeat("b", 80)
	assert.Equal(t, strings.Repeat("b", contentPreviewLen)+"...", preview(long))
}
