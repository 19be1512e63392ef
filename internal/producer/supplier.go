package producer

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kafbench/kafbench/internal/rate"
)

// PartitionUnspecified delegates partition selection to the log client's
// own partitioner (key hash, or sticky-random for keyless records).
const PartitionUnspecified int32 = -1

// Record is a single payload to produce. Key and Value may each be nil.
// Records are immutable once returned by a DataSupplier.
type Record struct {
	Key   []byte
	Value []byte
}

// DataSupplier produces the next record to send. The second return value
// is false once the stream is exhausted; after that every subsequent call
// must also return false. Suppliers may block (for example to throttle),
// but must never un-exhaust themselves.
type DataSupplier interface {
	Next() (Record, bool)
}

// DataSupplierFunc adapts a function to the DataSupplier interface.
type DataSupplierFunc func() (Record, bool)

func (f DataSupplierFunc) Next() (Record, bool) { return f() }

// PartitionSupplier yields the partition to target for the next send.
// Implementations must be cheap and non-blocking.
type PartitionSupplier interface {
	Next() int32
}

// PartitionSupplierFunc adapts a function to the PartitionSupplier interface.
type PartitionSupplierFunc func() int32

func (f PartitionSupplierFunc) Next() int32 { return f() }

// FixedPartition targets every send at partition p.
func FixedPartition(p int32) PartitionSupplier {
	return PartitionSupplierFunc(func() int32 { return p })
}

// UnspecifiedPartition lets the log client choose every partition.
func UnspecifiedPartition() PartitionSupplier {
	return FixedPartition(PartitionUnspecified)
}

// RoundRobinPartitions cycles through the given partitions. It is safe for
// concurrent use.
func RoundRobinPartitions(partitions []int32) PartitionSupplier {
	ps := make([]int32, len(partitions))
	copy(ps, partitions)
	var n atomic.Uint64
	return PartitionSupplierFunc(func() int32 {
		if len(ps) == 0 {
			return PartitionUnspecified
		}
		i := n.Add(1) - 1
		return ps[i%uint64(len(ps))]
	})
}

// randomData generates fixed-size random payloads up to an optional record
// limit. Exhaustion is sticky: once the limit is hit, Next returns false
// forever.
type randomData struct {
	keySize   int
	valueSize int
	limit     int64 // 0 = unlimited

	mu       sync.Mutex
	rng      *rand.Rand
	produced int64
}

// RandomData returns a supplier of random records with keys of keySize
// bytes and values of valueSize bytes. A size of zero omits that field.
// If limit is positive the supplier terminates after producing limit
// records.
func RandomData(keySize, valueSize int, limit int64) DataSupplier {
	return &randomData{
		keySize:   keySize,
		valueSize: valueSize,
		limit:     limit,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *randomData) Next() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && s.produced >= s.limit {
		return Record{}, false
	}
	s.produced++
	return Record{Key: s.randomBytes(s.keySize), Value: s.randomBytes(s.valueSize)}, true
}

func (s *randomData) randomBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	b := make([]byte, n)
	s.rng.Read(b)
	return b
}

// UUIDKeyData is like RandomData but keys every record with a fresh UUID
// string, which spreads keyed records evenly across partitions.
func UUIDKeyData(valueSize int, limit int64) DataSupplier {
	values := RandomData(0, valueSize, limit)
	return DataSupplierFunc(func() (Record, bool) {
		rec, ok := values.Next()
		if !ok {
			return Record{}, false
		}
		rec.Key = []byte(uuid.NewString())
		return rec, true
	})
}

// ThrottledData paces an inner supplier with a leaky bucket, blocking each
// Next until the bucket grants a slot. Exhaustion passes through without
// waiting.
func ThrottledData(inner DataSupplier, bucket *rate.LeakyBucket) DataSupplier {
	return DataSupplierFunc(func() (Record, bool) {
		rec, ok := inner.Next()
		if !ok {
			return Record{}, false
		}
		if wait := time.Until(bucket.Next()); wait > 0 {
			time.Sleep(wait)
		}
		return rec, true
	})
}
