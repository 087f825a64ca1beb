package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, Topic: "doom-index.paintings"}

	ev := PaintingGenerated{
		RunID:      "run-1",
		PaintingID: "DOOM_202511141200_abc12345_def456789012",
		Bucket:     "2025-11-14T12:00",
		TokenID:    "solana",
		TsUnix:     1763121600,
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("2025-11-14T12:00"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypePaintingGenerated, string(msg.Headers[0].Value))

	var got PaintingGenerated
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, TypePaintingGenerated, got.Type)
	assert.Equal(t, "solana", got.TokenID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), PaintingGenerated{Bucket: "b"})
	assert.ErrorContains(t, err, "kafka write")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), PaintingGenerated{}))
	assert.NoError(t, p.Close())
}
