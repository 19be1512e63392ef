package kafka

import (
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/kafbench/kafbench/internal/producer"
)

// explicitPartitioner routes a record to the partition already set on it,
// delegating to the sticky key partitioner when the partition is
// producer.PartitionUnspecified. This lets one client serve both pinned
// and client-chosen sends.
type explicitPartitioner struct {
	fallback kgo.Partitioner
}

func newExplicitPartitioner() kgo.Partitioner {
	return &explicitPartitioner{fallback: kgo.StickyKeyPartitioner(nil)}
}

func (p *explicitPartitioner) ForTopic(topic string) kgo.TopicPartitioner {
	return &explicitTopicPartitioner{fallback: p.fallback.ForTopic(topic)}
}

type explicitTopicPartitioner struct {
	fallback kgo.TopicPartitioner
}

func (p *explicitTopicPartitioner) RequiresConsistency(r *kgo.Record) bool {
	return r.Partition > producer.PartitionUnspecified || p.fallback.RequiresConsistency(r)
}

func (p *explicitTopicPartitioner) Partition(r *kgo.Record, n int) int {
	if r.Partition > producer.PartitionUnspecified && int(r.Partition) < n {
		return int(r.Partition)
	}
	return p.fallback.Partition(r, n)
}
