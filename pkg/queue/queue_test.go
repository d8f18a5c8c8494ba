package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueAndDequeueEmail(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	err := q.EnqueueEmail(ctx, EmailPayload{
		Template:       EmailWelcome,
		RecipientEmail: "asha@example.com",
		RecipientName:  "Asha",
	})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeEmail, job.Type)
	assert.Equal(t, 0, job.Attempt)

	var payload EmailPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "asha@example.com", payload.RecipientEmail)
}

func TestDequeueDropsMalformedEntries(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Lpush(QueueRecordings, "{not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetryRequeuesOnOwnQueueThenDeadLetters(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueRecordingUpload(ctx, RecordingUploadPayload{
		RecordingID: uuid.New(),
		SessionID:   uuid.New(),
		OriginalURL: "https://provider.example/rec.mp4",
	}))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)

	cause := errors.New("provider unavailable")
	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job, cause))
		n, err := q.Len(ctx, QueueRecordings)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		job, err = q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, i, job.Attempt)
		assert.Equal(t, "provider unavailable", job.LastError)
	}

	require.NoError(t, q.Retry(ctx, job, cause))
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
	assert.False(t, mr.Exists(QueueRecordings))
}

func TestBackoffGrowsWithAttempt(t *testing.T) {
	assert.Equal(t, RetryBackoff, Backoff(0))
	assert.Equal(t, 2*RetryBackoff, Backoff(2))
}
