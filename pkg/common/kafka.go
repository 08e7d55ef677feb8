package common

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"

	"github.com/ahrav/whisper/pkg/common/logger"
)

// ConnectKafkaWithRetry creates a sync producer for brokers, retrying with
// exponential backoff for up to a minute, starting with one second intervals.
// It gives up early when ctx is done.
func ConnectKafkaWithRetry(
	ctx context.Context,
	brokers []string,
	cfg *sarama.Config,
	log *logger.Logger,
) (sarama.SyncProducer, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = time.Minute
	expBackoff.InitialInterval = time.Second

	return retryConnect(ctx, expBackoff, log, func() (sarama.SyncProducer, error) {
		return sarama.NewSyncProducer(brokers, cfg)
	})
}

func retryConnect[T any](
	ctx context.Context,
	policy backoff.BackOff,
	log *logger.Logger,
	connect func() (T, error),
) (T, error) {
	var conn T

	operation := func() error {
		var err error
		conn, err = connect()
		if err != nil {
			log.Warn(ctx, "Failed to connect to Kafka, will retry", "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to connect to Kafka after retries: %w", err)
	}

	return conn, nil
}
