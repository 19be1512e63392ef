package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Admin wraps the cluster operations driver code needs around the engine:
// topic bootstrap and offset inspection. Executors never touch it.
type Admin struct {
	cl  *kgo.Client
	adm *kadm.Client
}

// NewAdmin connects an admin client to the given seed brokers.
func NewAdmin(brokers ...string) (*Admin, error) {
	cl, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("new admin client: %w", err)
	}
	return &Admin{cl: cl, adm: kadm.NewClient(cl)}, nil
}

// EnsureTopic creates the topic with the given partition count if it does
// not already exist.
func (a *Admin) EnsureTopic(ctx context.Context, topic string, partitions int32) error {
	_, err := a.adm.CreateTopic(ctx, partitions, -1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	return nil
}

// DeleteTopic removes the topic. Used by tests and benchmark cleanup.
func (a *Admin) DeleteTopic(ctx context.Context, topic string) error {
	_, err := a.adm.DeleteTopic(ctx, topic)
	if err != nil {
		return fmt.Errorf("delete topic %q: %w", topic, err)
	}
	return nil
}

// EndOffsets returns the log end offset of every partition of the topic.
// Control markers advance these offsets even though they carry no user
// data.
func (a *Admin) EndOffsets(ctx context.Context, topic string) (map[int32]int64, error) {
	listed, err := a.adm.ListEndOffsets(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("list end offsets for %q: %w", topic, err)
	}
	offsets := make(map[int32]int64)
	for partition, o := range listed[topic] {
		if o.Err != nil {
			return nil, fmt.Errorf("list end offset for %q[%d]: %w", topic, partition, o.Err)
		}
		offsets[partition] = o.Offset
	}
	return offsets, nil
}

// Close releases the underlying client.
func (a *Admin) Close() {
	a.cl.Close()
}
