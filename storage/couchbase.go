package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Antonite/snake_rl/qdeepneuro"
	"github.com/couchbase/gocb/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	retries   int = 20
	retryWait     = 100 * time.Millisecond
)

type Options struct {
	Address  string
	Username string
	Password string
	Bucket   string
	Timeout  time.Duration
}

// Storage mirrors training results and checkpoints to couchbase.
// It satisfies qdeepneuro.Recorder.
type Storage struct {
	cluster    *gocb.Cluster
	collection *gocb.Collection
	timeout    time.Duration
}

func Init(o Options) (*Storage, error) {
	cluster, err := gocb.Connect(
		o.Address,
		gocb.ClusterOptions{
			Username:             o.Username,
			Password:             o.Password,
			CircuitBreakerConfig: gocb.CircuitBreakerConfig{Disabled: true},
		})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to couchbase")
	}

	bucket := cluster.Bucket(o.Bucket)
	if err := bucket.WaitUntilReady(o.Timeout, nil); err != nil {
		cluster.Close(nil)
		return nil, errors.Wrapf(err, "bucket %s not ready", o.Bucket)
	}

	log.WithFields(log.Fields{
		"address": o.Address,
		"bucket":  o.Bucket,
	}).Info("connected to couchbase")

	return &Storage{
		cluster:    cluster,
		collection: bucket.DefaultCollection(),
		timeout:    o.Timeout,
	}, nil
}

func (s *Storage) Close() error {
	return s.cluster.Close(nil)
}

func GameKey(run string, game int) string {
	return fmt.Sprintf("%s::game::%08d", run, game)
}

func CheckpointKey(run string) string {
	return fmt.Sprintf("%s::checkpoint", run)
}

func (s *Storage) RecordGame(ctx context.Context, result *qdeepneuro.GameResult) error {
	key := GameKey(result.Run, result.Game)
	return retry(ctx, key, func() error {
		_, err := s.collection.Upsert(key, result, &gocb.UpsertOptions{
			Timeout: s.timeout,
			Context: ctx,
		})
		return err
	})
}

// RecordCheckpoint stores the encoded weights of a run as a binary document.
func (s *Storage) RecordCheckpoint(ctx context.Context, run string, weights []byte) error {
	key := CheckpointKey(run)
	return retry(ctx, key, func() error {
		_, err := s.collection.Upsert(key, weights, &gocb.UpsertOptions{
			Timeout:    s.timeout,
			Transcoder: gocb.NewRawBinaryTranscoder(),
			Context:    ctx,
		})
		return err
	})
}

func (s *Storage) GetGame(ctx context.Context, run string, game int) (*qdeepneuro.GameResult, error) {
	key := GameKey(run, game)

	var r *gocb.GetResult
	err := retry(ctx, key, func() (err error) {
		r, err = s.collection.Get(key, &gocb.GetOptions{Timeout: s.timeout, Context: ctx})
		return err
	})
	if err != nil {
		return nil, err
	}

	var result qdeepneuro.GameResult
	if err := r.Content(&result); err != nil {
		return nil, errors.Wrapf(err, "failed to parse game %s", key)
	}
	return &result, nil
}

// LoadCheckpoint returns the weights recorded for a run.
func (s *Storage) LoadCheckpoint(ctx context.Context, run string) ([]byte, error) {
	key := CheckpointKey(run)

	var r *gocb.GetResult
	err := retry(ctx, key, func() (err error) {
		r, err = s.collection.Get(key, &gocb.GetOptions{
			Timeout:    s.timeout,
			Transcoder: gocb.NewRawBinaryTranscoder(),
			Context:    ctx,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var weights []byte
	if err := r.Content(&weights); err != nil {
		return nil, errors.Wrapf(err, "failed to read checkpoint %s", key)
	}
	return weights, nil
}

// retry runs op with a growing pause between attempts. Missing or
// conflicting documents are not retried.
func retry(ctx context.Context, key string, op func() error) error {
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		err = op()
		if err == nil || !retryable(err) {
			return errors.Wrapf(err, "key %s", key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryWait * time.Duration(attempt)):
		}
	}

	return errors.Wrapf(err, "key %s failed after %d attempts", key, retries)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, gocb.ErrDocumentNotFound),
		errors.Is(err, gocb.ErrDocumentExists),
		errors.Is(err, gocb.ErrCasMismatch),
		errors.Is(err, gocb.ErrInvalidArgument),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
