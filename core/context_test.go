package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextConcurrentAccess tests that context values can be safely accessed concurrently.
func TestContextConcurrentAccess(t *testing.T) {
	ctx := WithSuppressHeader(context.Background())
	ctx = withRunID(ctx, 12345)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			assert.True(t, shouldSuppressHeader(ctx), "goroutine %d", i)
			assert.Equal(t, int64(12345), getRunID(ctx), "goroutine %d", i)
		})
	}
	wg.Wait()
}

// TestContextIsolation tests that different contexts maintain isolation.
func TestContextIsolation(t *testing.T) {
	base := context.Background()
	quiet := WithSuppressHeader(base)
	tracked := withRunID(base, 7)

	assert.False(t, shouldSuppressHeader(base))
	assert.True(t, shouldSuppressHeader(quiet))
	assert.False(t, shouldSuppressHeader(tracked))

	assert.Equal(t, int64(0), getRunID(base))
	assert.Equal(t, int64(0), getRunID(quiet))
	assert.Equal(t, int64(7), getRunID(tracked))
}
