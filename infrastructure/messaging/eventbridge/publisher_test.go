package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
)

type fakeClient struct {
	calls  []*eventbridge.PutEventsInput
	failed int32
	err    error
}

func (f *fakeClient) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for i := range in.Entries {
		entry := types.PutEventsResultEntry{EventId: aws.String("id")}
		if int32(i) < f.failed {
			entry.ErrorCode = aws.String("InternalFailure")
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func events(n int) []ports.Event {
	out := make([]ports.Event, n)
	for i := range out {
		out[i] = ports.Event{Type: ports.EventItemCreated, UserID: "u1", EntityID: "item-1", OccurredAt: time.Unix(0, 0)}
	}
	return out
}

func TestPublish_BatchesOfTen(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "bus", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), events(23)...))
	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 3)

	entry := client.calls[0].Entries[0]
	assert.Equal(t, "bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, ports.EventItemCreated, aws.ToString(entry.DetailType))

	var detail ports.Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "item-1", detail.EntityID)
}

func TestPublish_Failures(t *testing.T) {
	t.Run("failed entries", func(t *testing.T) {
		p := NewPublisher(&fakeClient{failed: 1}, "bus", zap.NewNop())
		assert.EqualError(t, p.Publish(context.Background(), events(2)...), "1 events failed to publish")
	})

	t.Run("client error", func(t *testing.T) {
		boom := errors.New("boom")
		p := NewPublisher(&fakeClient{err: boom}, "bus", zap.NewNop())
		assert.ErrorIs(t, p.Publish(context.Background(), events(1)...), boom)
	})

	t.Run("nothing to send", func(t *testing.T) {
		client := &fakeClient{}
		require.NoError(t, NewPublisher(client, "bus", zap.NewNop()).Publish(context.Background()))
		assert.Empty(t, client.calls)
	})
}
