package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TestRecord is one detected test case attributed to an author.
type TestRecord struct {
	Project   string   `json:"project"`
	Package   string   `json:"package"`
	Class     string   `json:"class"`
	Test      string   `json:"test"`
	TestType  TestType `json:"test_type"`
	Author    string   `json:"author"`
	Timestamp string   `json:"timestamp"` // YYYY-MM-DD
}

// Month returns the YYYY-MM bucket key of the record.
func (r TestRecord) Month() string {
	if len(r.Timestamp) < len(MonthLayout) {
		return r.Timestamp
	}
	return r.Timestamp[:len(MonthLayout)]
}

// MonthlyAggregate holds the per-month test counts by type.
type MonthlyAggregate struct {
	Month            string `json:"month"`
	IntegrationCount int    `json:"integration_count"`
	UnitCount        int    `json:"unit_count"`
}

// Total returns the number of tests in the bucket.
func (m MonthlyAggregate) Total() int {
	return m.IntegrationCount + m.UnitCount
}

// AuthorCount is the number of tests attributed to one canonical author.
type AuthorCount struct {
	Author string
	Count  int
}

// AuthorCounts is a ranked list of author counts. It serializes to a JSON
// object whose keys keep the ranking order.
type AuthorCounts []AuthorCount

// MarshalJSON implements json.Marshaler.
func (ac AuthorCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range ac {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Author)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (ac *AuthorCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("author counts must be a JSON object, got %v", tok)
	}
	out := AuthorCounts{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected author key %v", keyTok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("invalid count for %q: %w", key, err)
		}
		out = append(out, AuthorCount{Author: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*ac = out
	return nil
}

// Total returns the sum of all counts.
func (ac AuthorCounts) Total() int {
	total := 0
	for _, c := range ac {
		total += c.Count
	}
	return total
}

// Get returns the count for an author, or zero.
func (ac AuthorCounts) Get(author string) int {
	for _, c := range ac {
		if c.Author == author {
			return c.Count
		}
	}
	return 0
}

// AuthorshipResult is the handoff document produced by one authorship run.
type AuthorshipResult struct {
	ExecutionTime     string             `json:"execution_time,omitempty"`
	TestBranch        string             `json:"test_branch,omitempty"`
	TestMetadata      []TestRecord       `json:"test_metadata"`
	MonthlyAggregates []MonthlyAggregate `json:"monthly_aggregates"`
	AuthorTestCount   AuthorCounts       `json:"author_test_count"`
}

// ExecutionMetadata describes the CI execution an authorship run belongs to.
type ExecutionMetadata struct {
	ExecutionEndTime string `json:"execution_end_time"`
	TestBranch       string `json:"test_branch"`
}

// RunSummary describes the work performed by one authorship run.
type RunSummary struct {
	Projects      int
	FilesScanned  int
	FilesFailed   int
	TestsAccepted int
	Workers       int
}
