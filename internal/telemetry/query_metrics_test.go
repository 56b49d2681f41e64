package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{2 * time.Millisecond, BucketUnder10},
		{9 * time.Millisecond, BucketUnder10},
		{10 * time.Millisecond, BucketUnder50},
		{49 * time.Millisecond, BucketUnder50},
		{100 * time.Millisecond, BucketUnder200},
		{500 * time.Millisecond, BucketUnder1s},
		{2 * time.Second, BucketSlow},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, LatencyToBucket(tt.latency))
		})
	}
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "drops stopwords and short words",
			query: "what is the lockout tagout procedure?",
			want:  []string{"lockout", "tagout", "procedure"},
		},
		{
			name:  "lowercases and trims punctuation",
			query: "Machine Guarding, explained.",
			want:  []string{"machine", "guarding", "explained"},
		},
		{
			name:  "empty query",
			query: "   ",
			want:  nil,
		},
		{
			name:  "all stopwords",
			query: "what is the",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTerms(tt.query))
		})
	}
}

func TestRing_EvictsOldest(t *testing.T) {
	r := newRing[string](3)
	for _, s := range []string{"a", "b", "c", "d"} {
		r.Add(s)
	}

	assert.Equal(t, []string{"b", "c", "d"}, r.Items())
}

func TestRing_PartialFill(t *testing.T) {
	r := newRing[int](5)
	r.Add(1)
	r.Add(2)

	assert.Equal(t, []int{1, 2}, r.Items())
}

func TestQueryMetrics_Record(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer func() { _ = m.Close() }()

	m.Record(QueryEvent{
		Query:       "lockout tagout training requirements",
		QueryType:   QueryTypeHybrid,
		ResultCount: 4,
		Latency:     12 * time.Millisecond,
		Timestamp:   time.Now(),
	})
	m.Record(QueryEvent{
		Query:       "unobtainium storage rules",
		QueryType:   QueryTypeDense,
		ResultCount: 0,
		Latency:     3 * time.Millisecond,
		Timestamp:   time.Now(),
	})

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.QueryTypeCounts[QueryTypeHybrid])
	assert.Equal(t, int64(1), snap.QueryTypeCounts[QueryTypeDense])
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"unobtainium storage rules"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketUnder50])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketUnder10])
	assert.InDelta(t, 0.5, snap.ZeroResultRate(), 1e-9)
}

func TestQueryMetrics_TopTermsSorted(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer func() { _ = m.Close() }()

	for i := 0; i < 3; i++ {
		m.Record(QueryEvent{Query: "forklift inspection", QueryType: QueryTypeHybrid, ResultCount: 1})
	}
	m.Record(QueryEvent{Query: "forklift operator", QueryType: QueryTypeHybrid, ResultCount: 1})

	snap := m.Snapshot()
	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, "forklift", snap.TopTerms[0].Term)
	assert.Equal(t, int64(4), snap.TopTerms[0].Count)
}

func TestQueryMetrics_RepeatDetection(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer func() { _ = m.Close() }()

	m.Record(QueryEvent{Query: "Confined Space Entry", QueryType: QueryTypeHybrid, ResultCount: 2})
	// Same question, different case and spacing
	m.Record(QueryEvent{Query: "  confined space entry ", QueryType: QueryTypeHybrid, ResultCount: 2})
	m.Record(QueryEvent{Query: "something else entirely", QueryType: QueryTypeHybrid, ResultCount: 2})

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.RepeatCount)
}

func TestQueryMetrics_RecordAfterClose(t *testing.T) {
	m := NewQueryMetrics(nil)
	require.NoError(t, m.Close())

	m.Record(QueryEvent{Query: "late", QueryType: QueryTypeHybrid, ResultCount: 1})

	assert.Equal(t, int64(0), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_CloseIdempotent(t *testing.T) {
	m := NewQueryMetrics(nil)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer func() { _ = m.Close() }()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.Record(QueryEvent{
					Query:       fmt.Sprintf("query %d from goroutine %d", i, g),
					QueryType:   QueryTypeHybrid,
					ResultCount: i % 3,
					Latency:     time.Duration(i) * time.Millisecond,
				})
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, int64(400), m.Snapshot().TotalQueries)
}

// fakeStore records flush calls in memory.
type fakeStore struct {
	mu         sync.Mutex
	typeCounts map[QueryType]int64
	termCounts map[string]int64
	latencies  map[LatencyBucket]int64
	zero       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		typeCounts: make(map[QueryType]int64),
		termCounts: make(map[string]int64),
		latencies:  make(map[LatencyBucket]int64),
	}
}

func (f *fakeStore) SaveQueryTypeCounts(_ string, counts map[QueryType]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range counts {
		f.typeCounts[k] += v
	}
	return nil
}

func (f *fakeStore) GetQueryTypeCounts(_, _ string) (map[QueryType]int64, error) {
	return f.typeCounts, nil
}

func (f *fakeStore) UpsertTermCounts(terms map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range terms {
		f.termCounts[k] += v
	}
	return nil
}

func (f *fakeStore) GetTopTerms(int) ([]TermCount, error) { return nil, nil }

func (f *fakeStore) AddZeroResultQuery(query string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zero = append(f.zero, query)
	return nil
}

func (f *fakeStore) GetZeroResultQueries(int) ([]string, error) { return f.zero, nil }

func (f *fakeStore) SaveLatencyCounts(_ string, counts map[LatencyBucket]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range counts {
		f.latencies[k] += v
	}
	return nil
}

func (f *fakeStore) GetLatencyCounts(_, _ string) (map[LatencyBucket]int64, error) {
	return f.latencies, nil
}

func (f *fakeStore) Close() error { return nil }

func TestQueryMetrics_FlushWritesDeltasOnly(t *testing.T) {
	store := newFakeStore()
	m := NewQueryMetricsWithConfig(store, QueryMetricsConfig{FlushInterval: 0})

	m.Record(QueryEvent{Query: "ladder safety angles", QueryType: QueryTypeHybrid, ResultCount: 3})
	require.NoError(t, m.Flush())
	// A second flush with no new events must not double-count
	require.NoError(t, m.Flush())

	assert.Equal(t, int64(1), store.typeCounts[QueryTypeHybrid])
	assert.Equal(t, int64(1), store.termCounts["ladder"])

	m.Record(QueryEvent{Query: "ladder inspection", QueryType: QueryTypeHybrid, ResultCount: 1})
	require.NoError(t, m.Flush())

	assert.Equal(t, int64(2), store.typeCounts[QueryTypeHybrid])
	assert.Equal(t, int64(2), store.termCounts["ladder"])

	require.NoError(t, m.Close())
}

func TestQueryMetrics_FlushZeroResultQueries(t *testing.T) {
	store := newFakeStore()
	m := NewQueryMetricsWithConfig(store, QueryMetricsConfig{FlushInterval: 0})

	m.Record(QueryEvent{Query: "no such topic", QueryType: QueryTypeLexical, ResultCount: 0, Timestamp: time.Now()})
	require.NoError(t, m.Flush())

	assert.Equal(t, []string{"no such topic"}, store.zero)

	// Already drained; nothing to write twice
	require.NoError(t, m.Flush())
	assert.Len(t, store.zero, 1)

	require.NoError(t, m.Close())
}

func TestQueryMetrics_CloseFlushes(t *testing.T) {
	store := newFakeStore()
	m := NewQueryMetricsWithConfig(store, QueryMetricsConfig{FlushInterval: 0})

	m.Record(QueryEvent{Query: "welding fume exposure limits", QueryType: QueryTypeDense, ResultCount: 2})
	require.NoError(t, m.Close())

	assert.Equal(t, int64(1), store.typeCounts[QueryTypeDense])
}
