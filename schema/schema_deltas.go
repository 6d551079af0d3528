package schema

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// ExecutionTimeLayout is the layout of execution times in the results index.
const ExecutionTimeLayout = "2006-01-02 15:04:05"

// ResultIndexEntry is one row of the test results index file.
type ResultIndexEntry struct {
	ExecutionTime string `json:"execution_time"`
	Filename      string `json:"filename"`
}

// CommitInfo is one commit between two test executions.
type CommitInfo struct {
	Commit  string `json:"commit"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// CommitsKeySuffix follows the repository name in the deltas file, as in
// "app_commits", the same way "app_commit_hash" names its hash in result files.
const CommitsKeySuffix = "_commits"

// CommitDelta lists the commits of every tracked repository that landed
// between two consecutive test executions.
type CommitDelta struct {
	FromExecutionTime string
	ToExecutionTime   string
	FromFilename      string
	ToFilename        string
	Commits           map[string][]CommitInfo
}

type commitDeltaHeader struct {
	FromExecutionTime string `json:"from_execution_time"`
	ToExecutionTime   string `json:"to_execution_time"`
	FromFilename      string `json:"from_filename"`
	ToFilename        string `json:"to_filename"`
}

// MarshalJSON writes the execution pair first and then one "<repo>_commits"
// list per repository, sorted by repository name.
func (d CommitDelta) MarshalJSON() ([]byte, error) {
	header, err := json.Marshal(commitDeltaHeader{
		FromExecutionTime: d.FromExecutionTime,
		ToExecutionTime:   d.ToExecutionTime,
		FromFilename:      d.FromFilename,
		ToFilename:        d.ToFilename,
	})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(header[:len(header)-1])
	repos := make([]string, 0, len(d.Commits))
	for repo := range d.Commits {
		repos = append(repos, repo)
	}
	slices.Sort(repos)
	for _, repo := range repos {
		key, err := json.Marshal(repo + CommitsKeySuffix)
		if err != nil {
			return nil, err
		}
		commits := d.Commits[repo]
		if commits == nil {
			commits = []CommitInfo{}
		}
		value, err := json.Marshal(commits)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads every "<repo>_commits" key. A nested "commits" object
// written by earlier releases is accepted too; flat keys win on conflict.
// Other keys are ignored.
func (d *CommitDelta) UnmarshalJSON(data []byte) error {
	var header commitDeltaHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	commits := make(map[string][]CommitInfo)
	if raw, ok := fields["commits"]; ok {
		var nested map[string][]CommitInfo
		if err := json.Unmarshal(raw, &nested); err != nil {
			return err
		}
		for repo, list := range nested {
			commits[repo] = list
		}
	}
	for key, raw := range fields {
		repo, ok := strings.CutSuffix(key, CommitsKeySuffix)
		if !ok || repo == "" {
			continue
		}
		var list []CommitInfo
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		commits[repo] = list
	}

	*d = CommitDelta{
		FromExecutionTime: header.FromExecutionTime,
		ToExecutionTime:   header.ToExecutionTime,
		FromFilename:      header.FromFilename,
		ToFilename:        header.ToFilename,
		Commits:           commits,
	}
	return nil
}

// Key identifies the execution pair of the delta.
func (d CommitDelta) Key() DeltaKey {
	return DeltaKey{From: d.FromExecutionTime, To: d.ToExecutionTime}
}

// CommitCount returns the number of commits across all repositories.
func (d CommitDelta) CommitCount() int {
	total := 0
	for _, commits := range d.Commits {
		total += len(commits)
	}
	return total
}

// DeltaKey identifies a pair of consecutive executions.
type DeltaKey struct {
	From string
	To   string
}

// DeltaRunResult reports what a deltas run produced.
type DeltaRunResult struct {
	Deltas  []CommitDelta
	Added   int
	Skipped int
}
