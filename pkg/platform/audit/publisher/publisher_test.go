package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "bizdir/pkg/platform/audit"
	"bizdir/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	listingID := uuid.New()
	err := pub.Emit(context.Background(), audit.Event{
		ListingID: listingID,
		Action:    string(audit.EventPaymentConfirmed),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), listingID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventPaymentConfirmed), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	listingID := uuid.New()
	err := pub.Emit(context.Background(), audit.Event{
		ListingID: listingID,
		Action:    string(audit.EventListingCreated),
	})
	require.NoError(t, err)

	// Close flushes the buffer.
	pub.Close()

	events, err := pub.List(context.Background(), listingID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) Append(context.Context, audit.Event) error {
	<-b.release
	return nil
}

func TestPublisher_AsyncBufferFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	ctx := context.Background()
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: "a"}))

	// The drain goroutine may already hold the first event; keep emitting
	// until the single-slot buffer rejects one.
	var err error
	deadline := time.Now().Add(time.Second)
	for err == nil && time.Now().Before(deadline) {
		err = pub.Emit(ctx, audit.Event{Action: "b"})
	}
	assert.ErrorIs(t, err, ErrBufferFull)

	close(store.release)
	pub.Close()
}
