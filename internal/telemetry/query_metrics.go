// Package telemetry aggregates query patterns for retrieval tuning.
// Everything stays on the local machine; nothing is reported anywhere.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryType labels which retrieval path served a query.
type QueryType string

const (
	QueryTypeHybrid  QueryType = "hybrid"
	QueryTypeDense   QueryType = "dense"
	QueryTypeLexical QueryType = "lexical"
)

// LatencyBucket is one bin of the query latency histogram.
type LatencyBucket string

const (
	BucketUnder10  LatencyBucket = "<10ms"
	BucketUnder50  LatencyBucket = "<50ms"
	BucketUnder200 LatencyBucket = "<200ms"
	BucketUnder1s  LatencyBucket = "<1s"
	BucketSlow     LatencyBucket = ">=1s"
)

// LatencyToBucket bins a duration.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch ms := d.Milliseconds(); {
	case ms < 10:
		return BucketUnder10
	case ms < 50:
		return BucketUnder50
	case ms < 200:
		return BucketUnder200
	case ms < 1000:
		return BucketUnder1s
	default:
		return BucketSlow
	}
}

// QueryEvent is one served query.
type QueryEvent struct {
	Query       string
	QueryType   QueryType
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// questionStopwords are interrogative and filler words that dominate
// natural language questions but carry no retrieval signal.
var questionStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "how": true,
	"why": true, "does": true, "must": true, "can": true, "should": true,
	"is": true, "a": true, "an": true, "of": true, "to": true, "in": true,
	"be": true, "do": true, "did": true, "was": true, "were": true,
}

// ExtractTerms pulls the content-bearing terms out of a question.
// Terms are lowercased, short words and question stopwords dropped.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(strings.TrimSpace(query))) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) < 3 || questionStopwords[w] {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// TermCount pairs a query term with how often it was seen.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ring is a fixed-capacity FIFO buffer.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &ring[T]{items: make([]T, capacity)}
}

// Add appends an item, evicting the oldest when full.
func (r *ring[T]) Add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// Items returns the buffered items, oldest first.
func (r *ring[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, r.size)
	if r.size < len(r.items) {
		return append(out, r.items[:r.size]...)
	}
	out = append(out, r.items[r.head:]...)
	return append(out, r.items[:r.head]...)
}

// Snapshot is an immutable view of the collected metrics.
type Snapshot struct {
	QueryTypeCounts     map[QueryType]int64     `json:"query_type_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	RepeatCount         int64                   `json:"repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultRate is the fraction of queries that found nothing.
func (s *Snapshot) ZeroResultRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries)
}

// QueryMetricsStore persists aggregated metrics.
type QueryMetricsStore interface {
	// SaveQueryTypeCounts upserts per-day query type counts.
	SaveQueryTypeCounts(date string, counts map[QueryType]int64) error

	// GetQueryTypeCounts sums counts over a date range (inclusive).
	GetQueryTypeCounts(from, to string) (map[QueryType]int64, error)

	// UpsertTermCounts adds to term frequency counts.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms returns the most frequent terms.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQuery records a query that found nothing.
	AddZeroResultQuery(query string, timestamp time.Time) error

	// GetZeroResultQueries returns recent zero-result queries.
	GetZeroResultQueries(limit int) ([]string, error)

	// SaveLatencyCounts upserts per-day latency histogram counts.
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts sums histogram counts over a date range.
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)

	// Close releases store resources.
	Close() error
}

// QueryMetricsConfig bounds the in-memory aggregates.
type QueryMetricsConfig struct {
	// TopTermsCapacity is how many distinct terms to track (default: 100).
	TopTermsCapacity int

	// ZeroResultsCapacity bounds the zero-result query buffer (default: 100).
	ZeroResultsCapacity int

	// RecentQueriesCapacity bounds repeat detection (default: 500).
	RecentQueriesCapacity int

	// FlushInterval is how often aggregates reach the store.
	// Zero disables the background flush (default: 60s).
	FlushInterval time.Duration
}

// DefaultQueryMetricsConfig returns the standard bounds.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
		FlushInterval:         60 * time.Second,
	}
}

// QueryMetrics aggregates query events in memory and periodically
// flushes them to a store. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.RWMutex

	queryTypes      map[QueryType]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *ring[string]
	latencies       map[LatencyBucket]int64
	recentQueries   *lru.Cache[string, struct{}]
	totalQueries    int64
	zeroResultCount int64
	repeatCount     int64
	startTime       time.Time

	// Amounts already written to the store. Flush writes only the
	// delta since the SQLite upserts are additive.
	flushedTypes     map[QueryType]int64
	flushedLatencies map[LatencyBucket]int64
	flushedTerms     map[string]int64
	pendingZero      []QueryEvent

	store       QueryMetricsStore
	config      QueryMetricsConfig
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// NewQueryMetrics creates a collector with default bounds. A nil store
// keeps metrics in memory only.
func NewQueryMetrics(store QueryMetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector with explicit bounds.
func NewQueryMetricsWithConfig(store QueryMetricsStore, cfg QueryMetricsConfig) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		queryTypes:       make(map[QueryType]int64),
		topTerms:         topTerms,
		zeroResults:      newRing[string](cfg.ZeroResultsCapacity),
		latencies:        make(map[LatencyBucket]int64),
		recentQueries:    recent,
		startTime:        time.Now(),
		flushedTypes:     make(map[QueryType]int64),
		flushedLatencies: make(map[LatencyBucket]int64),
		flushedTerms:     make(map[string]int64),
		store:            store,
		config:           cfg,
		stopCh:           make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}

	return m
}

func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record aggregates one query event. Non-blocking; events after Close
// are dropped.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.queryTypes[event.QueryType]++
	m.totalQueries++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.ResultCount == 0 {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
		if m.store != nil && len(m.pendingZero) < m.config.ZeroResultsCapacity {
			m.pendingZero = append(m.pendingZero, event)
		}
	}

	m.latencies[LatencyToBucket(event.Latency)]++

	key := hashQuery(event.Query)
	if _, seen := m.recentQueries.Get(key); seen {
		m.repeatCount++
	}
	m.recentQueries.Add(key, struct{}{})
}

// hashQuery normalizes and hashes a query for repeat detection.
func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// Snapshot copies the current aggregates.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	typeCounts := make(map[QueryType]int64, len(m.queryTypes))
	for k, v := range m.queryTypes {
		typeCounts[k] = v
	}

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	return &Snapshot{
		QueryTypeCounts:     typeCounts,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		RepeatCount:         m.repeatCount,
		Since:               m.startTime,
	}
}

// Flush writes the aggregates accumulated since the last flush to the
// store. A nil store is a no-op.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	typeDelta := make(map[QueryType]int64)
	for k, v := range m.queryTypes {
		if d := v - m.flushedTypes[k]; d > 0 {
			typeDelta[k] = d
		}
	}

	latencyDelta := make(map[LatencyBucket]int64)
	for k, v := range m.latencies {
		if d := v - m.flushedLatencies[k]; d > 0 {
			latencyDelta[k] = d
		}
	}

	termDelta := make(map[string]int64)
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			if d := count - m.flushedTerms[key]; d > 0 {
				termDelta[key] = d
			}
		}
	}

	pendingZero := m.pendingZero
	m.pendingZero = nil
	m.mu.Unlock()

	for _, ev := range pendingZero {
		if err := m.store.AddZeroResultQuery(ev.Query, ev.Timestamp); err != nil {
			return err
		}
	}

	today := time.Now().Format("2006-01-02")

	if err := m.store.SaveQueryTypeCounts(today, typeDelta); err != nil {
		return err
	}
	if err := m.store.UpsertTermCounts(termDelta); err != nil {
		return err
	}
	if err := m.store.SaveLatencyCounts(today, latencyDelta); err != nil {
		return err
	}

	m.mu.Lock()
	for k, d := range typeDelta {
		m.flushedTypes[k] += d
	}
	for k, d := range latencyDelta {
		m.flushedLatencies[k] += d
	}
	for k, d := range termDelta {
		m.flushedTerms[k] += d
	}
	m.mu.Unlock()

	return nil
}

// Close stops the background flush, writes a final flush, and drops
// further events.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}

	return m.Flush()
}
