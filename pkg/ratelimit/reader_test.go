package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLimiter tests the limiter constructor
func TestNewLimiter(t *testing.T) {
	t.Run("ValidRate", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		require.NotNil(t, limiter)
		assert.Equal(t, int64(1024*1024), limiter.BytesPerSecond())
		assert.Equal(t, 1024*1024, limiter.Burst())
	})

	t.Run("SmallRateUsesMinimumBurst", func(t *testing.T) {
		limiter := NewLimiter(100)
		require.NotNil(t, limiter)
		assert.Equal(t, minBurst, limiter.Burst())
	})

	t.Run("ZeroRate", func(t *testing.T) {
		assert.Nil(t, NewLimiter(0))
	})

	t.Run("NegativeRate", func(t *testing.T) {
		assert.Nil(t, NewLimiter(-100))
	})
}

// TestNewReader tests the reader constructor
func TestNewReader(t *testing.T) {
	t.Run("WithLimiter", func(t *testing.T) {
		reader := NewReader(context.Background(), strings.NewReader("test"), NewLimiter(1024))
		_, ok := reader.(*Reader)
		assert.True(t, ok, "NewReader() should return *Reader when limiter is provided")
	})

	t.Run("NilLimiter", func(t *testing.T) {
		base := strings.NewReader("test")
		reader := NewReader(context.Background(), base, nil)
		assert.Same(t, base, reader)
	})
}

// TestReaderRead tests reading through the limiter
func TestReaderRead(t *testing.T) {
	t.Run("ReadAll", func(t *testing.T) {
		content := []byte("hello, rate limited world")
		reader := NewReader(context.Background(), bytes.NewReader(content), NewLimiter(1024*1024))

		got, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("ReadCappedToBurst", func(t *testing.T) {
		content := make([]byte, 3*minBurst)
		reader := NewReader(context.Background(), bytes.NewReader(content), NewLimiter(1))

		buf := make([]byte, len(content))
		n, err := reader.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, minBurst, n)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		reader := NewReader(ctx, bytes.NewReader(make([]byte, 1024)), NewLimiter(1024*1024))
		_, err := reader.Read(make([]byte, 100))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("MultipleReads", func(t *testing.T) {
		content := []byte("0123456789abcdef")
		reader := NewReader(context.Background(), bytes.NewReader(content), NewLimiter(1024*1024))

		var result []byte
		buf := make([]byte, 4)
		for {
			n, err := reader.Read(buf)
			result = append(result, buf[:n]...)
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
		}
		assert.Equal(t, content, result)
	})
}

// TestNewReadCloser tests the ReadCloser constructor
func TestNewReadCloser(t *testing.T) {
	t.Run("WithLimiter", func(t *testing.T) {
		base := io.NopCloser(strings.NewReader("test content"))
		reader := NewReadCloser(context.Background(), base, NewLimiter(1024*1024))

		_, ok := reader.(*ReadCloser)
		assert.True(t, ok)

		got, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "test content", string(got))
		assert.NoError(t, reader.Close())
	})

	t.Run("NilLimiter", func(t *testing.T) {
		base := io.NopCloser(strings.NewReader("test content"))
		reader := NewReadCloser(context.Background(), base, nil)
		assert.Equal(t, base, reader)
	})
}

// TestRateLimiting tests that reads beyond the burst are throttled
func TestRateLimiting(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	// Bucket starts full with one burst; the extra half burst needs ~500ms.
	limiter := NewLimiter(minBurst)
	content := make([]byte, minBurst+minBurst/2)
	reader := NewReader(context.Background(), bytes.NewReader(content), limiter)

	start := time.Now()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Len(t, got, len(content))
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

// TestRateLimitingCancelledWhileWaiting tests that a blocked wait honours cancellation
func TestRateLimitingCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	limiter := NewLimiter(1)
	reader := NewReader(ctx, bytes.NewReader(make([]byte, 4*minBurst)), limiter)

	_, err := io.ReadAll(reader)
	assert.Error(t, err)
}

// BenchmarkRateLimitedRead benchmarks rate-limited reading
func BenchmarkRateLimitedRead(b *testing.B) {
	content := make([]byte, 1024*1024)
	limiter := NewLimiter(1024 * 1024 * 1024)
	ctx := context.Background()
	buf := make([]byte, 64*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reader := NewReader(ctx, bytes.NewReader(content), limiter)
		for {
			_, err := reader.Read(buf)
			if err == io.EOF {
				break
			}
			if err != nil {
				b.Fatalf("Read() error = %v", err)
			}
		}
	}
}
