package producer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kafbench/kafbench/internal/rate"
)

func TestRandomDataSizes(t *testing.T) {
	s := RandomData(8, 64, 0)
	for i := 0; i < 10; i++ {
		rec, ok := s.Next()
		require.True(t, ok)
		assert.Len(t, rec.Key, 8)
		assert.Len(t, rec.Value, 64)
	}
}

func TestRandomDataKeyless(t *testing.T) {
	s := RandomData(0, 16, 0)
	rec, ok := s.Next()
	require.True(t, ok)
	assert.Nil(t, rec.Key)
	assert.Len(t, rec.Value, 16)
}

func TestRandomDataLimitIsSticky(t *testing.T) {
	s := RandomData(4, 4, 3)
	for i := 0; i < 3; i++ {
		_, ok := s.Next()
		require.True(t, ok, "record %d should be produced", i)
	}
	for i := 0; i < 5; i++ {
		_, ok := s.Next()
		assert.False(t, ok, "supplier must stay exhausted")
	}
}

func TestUUIDKeyData(t *testing.T) {
	s := UUIDKeyData(32, 2)

	first, ok := s.Next()
	require.True(t, ok)
	second, ok := s.Next()
	require.True(t, ok)
	assert.NotEqual(t, first.Key, second.Key)
	assert.Len(t, first.Key, 36) // canonical UUID string
	assert.Len(t, first.Value, 32)

	_, ok = s.Next()
	assert.False(t, ok)
}

func TestThrottledDataPaces(t *testing.T) {
	// 100/s: the first send is free, the next two wait ~10ms each.
	s := ThrottledData(RandomData(0, 4, 0), rate.NewLeakyBucket(100))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, ok := s.Next()
		require.True(t, ok)
	}
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestThrottledDataPassesExhaustionThrough(t *testing.T) {
	s := ThrottledData(RandomData(0, 4, 1), rate.NewLeakyBucket(1))

	_, ok := s.Next()
	require.True(t, ok)

	start := time.Now()
	_, ok = s.Next()
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "exhaustion must not wait for the bucket")
}

func TestFixedPartition(t *testing.T) {
	s := FixedPartition(3)
	for i := 0; i < 4; i++ {
		assert.Equal(t, int32(3), s.Next())
	}
	assert.Equal(t, PartitionUnspecified, UnspecifiedPartition().Next())
}

func TestRoundRobinPartitions(t *testing.T) {
	s := RoundRobinPartitions([]int32{0, 1, 2})
	got := []int32{s.Next(), s.Next(), s.Next(), s.Next()}
	assert.Equal(t, []int32{0, 1, 2, 0}, got)

	assert.Equal(t, PartitionUnspecified, RoundRobinPartitions(nil).Next())
}
