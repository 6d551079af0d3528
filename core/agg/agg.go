// Package agg accumulates attributed test records into author and monthly aggregates.
package agg

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/huangsam/pulse/schema"
)

// Aggregator owns the records, monthly buckets and author counts of one run.
// Record applies all three updates under one lock so the totals always agree.
type Aggregator struct {
	mu      sync.Mutex
	records []schema.TestRecord
	monthly map[string]*schema.MonthlyAggregate
	authors map[string]int
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		monthly: make(map[string]*schema.MonthlyAggregate),
		authors: make(map[string]int),
	}
}

// Record adds one accepted test. It is safe for concurrent use.
func (a *Aggregator) Record(r schema.TestRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = append(a.records, r)
	bucket(a.monthly, r)
	a.authors[r.Author]++
}

// Snapshot returns sorted copies of the aggregates.
// Call it after all producers have finished.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	records := slices.Clone(a.records)
	monthly := make([]schema.MonthlyAggregate, 0, len(a.monthly))
	for _, m := range a.monthly {
		monthly = append(monthly, *m)
	}
	authors := maps.Clone(a.authors)
	a.mu.Unlock()

	return newSnapshot(records, monthly, authors)
}

// bucket increments the (month, test type) counter of a record.
func bucket(monthly map[string]*schema.MonthlyAggregate, r schema.TestRecord) {
	month := r.Month()
	m, ok := monthly[month]
	if !ok {
		m = &schema.MonthlyAggregate{Month: month}
		monthly[month] = m
	}
	if r.TestType == schema.IntegrationTest {
		m.IntegrationCount++
	} else {
		m.UnitCount++
	}
}

// Snapshot is a read-only, deterministically ordered view of the aggregates.
type Snapshot struct {
	Records []schema.TestRecord       // by project, package, class, test, timestamp
	Monthly []schema.MonthlyAggregate // ascending by month
	Authors schema.AuthorCounts       // count descending, then name ascending
}

// Build computes a snapshot from a list of records.
func Build(records []schema.TestRecord) Snapshot {
	monthly := make(map[string]*schema.MonthlyAggregate)
	authors := make(map[string]int)
	for _, r := range records {
		bucket(monthly, r)
		authors[r.Author]++
	}
	buckets := make([]schema.MonthlyAggregate, 0, len(monthly))
	for _, m := range monthly {
		buckets = append(buckets, *m)
	}
	return newSnapshot(slices.Clone(records), buckets, authors)
}

func newSnapshot(records []schema.TestRecord, monthly []schema.MonthlyAggregate, authors map[string]int) Snapshot {
	slices.SortFunc(records, compareRecords)
	slices.SortFunc(monthly, func(a, b schema.MonthlyAggregate) int {
		return strings.Compare(a.Month, b.Month)
	})

	counts := make(schema.AuthorCounts, 0, len(authors))
	for author, count := range authors {
		counts = append(counts, schema.AuthorCount{Author: author, Count: count})
	}
	slices.SortFunc(counts, func(a, b schema.AuthorCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Author, b.Author)
	})

	return Snapshot{Records: records, Monthly: monthly, Authors: counts}
}

func compareRecords(a, b schema.TestRecord) int {
	return cmp.Or(
		strings.Compare(a.Project, b.Project),
		strings.Compare(a.Package, b.Package),
		strings.Compare(a.Class, b.Class),
		strings.Compare(a.Test, b.Test),
		strings.Compare(a.Timestamp, b.Timestamp),
		strings.Compare(a.Author, b.Author),
	)
}

// Total returns the number of records in the snapshot.
func (s Snapshot) Total() int {
	return len(s.Records)
}

// Filter selects records for a view. Empty fields match everything;
// Since and Until are inclusive YYYY-MM bounds.
type Filter struct {
	Author  string
	Project string
	Since   string
	Until   string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

func (f Filter) matches(r schema.TestRecord) bool {
	if f.Author != "" && r.Author != f.Author {
		return false
	}
	if f.Project != "" && r.Project != f.Project {
		return false
	}
	month := r.Month()
	if f.Since != "" && month < f.Since {
		return false
	}
	if f.Until != "" && month > f.Until {
		return false
	}
	return true
}

// Filter rebuilds a consistent snapshot from the matching records.
func (s Snapshot) Filter(f Filter) Snapshot {
	if f.IsZero() {
		return s
	}
	var kept []schema.TestRecord
	for _, r := range s.Records {
		if f.matches(r) {
			kept = append(kept, r)
		}
	}
	return Build(kept)
}

// Recent returns the n newest records, newest first.
func (s Snapshot) Recent(n int) []schema.TestRecord {
	if n <= 0 {
		return nil
	}
	recent := slices.Clone(s.Records)
	slices.SortStableFunc(recent, func(a, b schema.TestRecord) int {
		return strings.Compare(b.Timestamp, a.Timestamp)
	})
	return recent[:min(n, len(recent))]
}

// Result converts the snapshot into the authorship handoff document.
func (s Snapshot) Result(meta schema.ExecutionMetadata) schema.AuthorshipResult {
	records := s.Records
	if records == nil {
		records = []schema.TestRecord{}
	}
	monthly := s.Monthly
	if monthly == nil {
		monthly = []schema.MonthlyAggregate{}
	}
	return schema.AuthorshipResult{
		ExecutionTime:     meta.ExecutionEndTime,
		TestBranch:        meta.TestBranch,
		TestMetadata:      records,
		MonthlyAggregates: monthly,
		AuthorTestCount:   s.Authors,
	}
}
