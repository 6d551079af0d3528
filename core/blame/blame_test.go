package blame

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/iocache"
	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const blameOutput = "3f1c2a9e (alice.smith 2024-03-11 09:15:02 +0100 42)     public void testAdd() {\n"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want Attribution
		ok   bool
	}{
		{"standard", blameOutput, Attribution{Author: "alice.smith", Date: "2024-03-11"}, true},
		{"author with spaces", "^abc (Alice  Smith  2024-05-02 10:00:00 +0000 7) x", Attribution{Author: "Alice  Smith", Date: "2024-05-02"}, true},
		{"with file name", "abc src/FooTest.java (Bob 2023-12-31 23:59:59 -0500 1) y", Attribution{Author: "Bob", Date: "2023-12-31"}, true},
		{"uncommitted", "00000000 (Not Committed Yet 2024-06-01 12:00:00 +0000 9) z", Attribution{Author: "Not Committed Yet", Date: "2024-06-01"}, true},
		{"no date", "abc (alice 12) x", Attribution{}, false},
		{"empty", "", Attribution{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse([]byte(tt.out))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NoCache(t *testing.T) {
	client := &contract.MockGitClient{}
	client.On("BlameLine", mock.Anything, "/repo", "src/test/FooTest.java", 42).Return([]byte(blameOutput), nil).Once()

	r := NewResolver(client, time.Second, nil)
	attr, ok := r.Resolve(context.Background(), Repo{Root: "/repo", Head: "abc"}, "/repo/src/test/FooTest.java", 42)

	require.True(t, ok)
	assert.Equal(t, Attribution{Author: "alice.smith", Date: "2024-03-11"}, attr)
	client.AssertExpectations(t)
}

func TestResolve_Failures(t *testing.T) {
	client := &contract.MockGitClient{}
	client.On("BlameLine", mock.Anything, "/repo", "A.java", 1).Return(nil, errors.New("no such path")).Once()
	client.On("BlameLine", mock.Anything, "/repo", "B.java", 1).Return([]byte("garbage"), nil).Once()

	r := NewResolver(client, time.Second, nil)
	_, ok := r.Resolve(context.Background(), Repo{Root: "/repo"}, "/repo/A.java", 1)
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), Repo{Root: "/repo"}, "/repo/B.java", 1)
	assert.False(t, ok)
	client.AssertExpectations(t)
}

func TestResolve_Timeout(t *testing.T) {
	client := &contract.MockGitClient{}
	client.On("BlameLine", mock.Anything, "/repo", "Slow.java", 3).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	r := NewResolver(client, 20*time.Millisecond, nil)
	start := time.Now()
	_, ok := r.Resolve(context.Background(), Repo{Root: "/repo"}, "/repo/Slow.java", 3)

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second)
	client.AssertExpectations(t)
}

func TestResolve_CacheHit(t *testing.T) {
	store := &iocache.MockCacheStore{}
	key := cacheKey("abc", "FooTest.java", 42)
	data, _ := json.Marshal(schema.BlameEntry{Author: "Cached Author", Date: "2024-01-01"})
	store.On("Get", key).Return(data, currentCacheVersion, time.Now().Unix(), nil).Once()

	client := &contract.MockGitClient{}
	r := NewResolver(client, time.Second, store)
	attr, ok := r.Resolve(context.Background(), Repo{Root: "/repo", Head: "abc"}, "/repo/FooTest.java", 42)

	require.True(t, ok)
	assert.Equal(t, Attribution{Author: "Cached Author", Date: "2024-01-01"}, attr)
	client.AssertNotCalled(t, "BlameLine", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestResolve_CacheMissStoresResult(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ts      int64
		err     error
	}{
		{"not found", 0, 0, errors.New("no rows")},
		{"version mismatch", currentCacheVersion + 1, time.Now().Unix(), nil},
		{"stale", currentCacheVersion, time.Now().Add(-8 * 24 * time.Hour).Unix(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := cacheKey("abc", "FooTest.java", 42)
			store := &iocache.MockCacheStore{}
			store.On("Get", key).Return([]byte(`{"author":"Old","date":"2020-01-01"}`), tt.version, tt.ts, tt.err).Once()
			expected, _ := json.Marshal(schema.BlameEntry{Author: "alice.smith", Date: "2024-03-11"})
			store.On("Set", key, expected, currentCacheVersion, mock.AnythingOfType("int64")).Return(nil).Once()

			client := &contract.MockGitClient{}
			client.On("BlameLine", mock.Anything, "/repo", "FooTest.java", 42).Return([]byte(blameOutput), nil).Once()

			r := NewResolver(client, time.Second, store)
			attr, ok := r.Resolve(context.Background(), Repo{Root: "/repo", Head: "abc"}, "/repo/FooTest.java", 42)

			require.True(t, ok)
			assert.Equal(t, "alice.smith", attr.Author)
			store.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestResolve_UnresolvedIsNotCached(t *testing.T) {
	key := cacheKey("abc", "FooTest.java", 7)
	store := &iocache.MockCacheStore{}
	store.On("Get", key).Return([]byte(nil), 0, int64(0), errors.New("no rows")).Once()

	client := &contract.MockGitClient{}
	client.On("BlameLine", mock.Anything, "/repo", "FooTest.java", 7).Return(nil, errors.New("boom")).Once()

	r := NewResolver(client, time.Second, store)
	_, ok := r.Resolve(context.Background(), Repo{Root: "/repo", Head: "abc"}, "/repo/FooTest.java", 7)

	assert.False(t, ok)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_NoHeadSkipsCache(t *testing.T) {
	store := &iocache.MockCacheStore{}
	client := &contract.MockGitClient{}
	client.On("BlameLine", mock.Anything, "/repo", "FooTest.java", 1).Return([]byte(blameOutput), nil).Once()

	r := NewResolver(client, time.Second, store)
	_, ok := r.Resolve(context.Background(), Repo{Root: "/repo"}, "/repo/FooTest.java", 1)

	assert.True(t, ok)
	store.AssertNotCalled(t, "Get", mock.Anything)
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("abc", "FooTest.java", 1)
	assert.Len(t, a, 64)
	assert.Equal(t, a, cacheKey("abc", "FooTest.java", 1))
	assert.NotEqual(t, a, cacheKey("abd", "FooTest.java", 1))
	assert.NotEqual(t, a, cacheKey("abc", "FooTest.java", 2))
}
