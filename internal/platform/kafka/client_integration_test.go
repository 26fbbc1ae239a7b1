//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"

	"bizdir/internal/platform/config"
	"bizdir/internal/platform/kafka"
	"bizdir/pkg/testutil/containers"
)

func TestEnsureTopic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.NewRedpandaContainer(t)

	client, err := kafka.New(config.KafkaConfig{Brokers: []string{rp.Broker}, AuditTopic: "listing.audit"})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, kafka.EnsureTopic(ctx, client, "listing.audit", 1, 1))
	// second call is a no-op
	require.NoError(t, kafka.EnsureTopic(ctx, client, "listing.audit", 1, 1))

	topics, err := kadm.NewClient(client).ListTopics(ctx, "listing.audit")
	require.NoError(t, err)
	require.True(t, topics.Has("listing.audit"))
}

func TestNew_DisabledWithoutBrokers(t *testing.T) {
	client, err := kafka.New(config.KafkaConfig{})
	require.NoError(t, err)
	require.Nil(t, client)
}
