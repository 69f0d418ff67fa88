package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trailingest/internal/config"
	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/pathsafe"
	stmocks "trailingest/internal/domain/storage/mocks"
)

func testRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDownloadService_Download(t *testing.T) {
	descriptor := archive.Descriptor{
		Key:  "logs/2024/01/15/events_01.json.gz",
		Size: 7,
	}

	t.Run("successful download records digest", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()
		rawRoot := t.TempDir()

		content := "payload"
		store.On("Get", mock.Anything, "audit", descriptor.Key).
			Return(io.NopCloser(strings.NewReader(content)), nil).Once()

		svc := NewDownloadService(store, "audit", rawRoot, testRetryConfig(), logger, metrics)

		outcome := svc.Download(context.Background(), descriptor)

		require.True(t, outcome.Succeeded)
		assert.Equal(t, 1, outcome.Attempts)
		assert.NoError(t, outcome.LastErr)

		sum := sha256.Sum256([]byte(content))
		assert.Equal(t, hex.EncodeToString(sum[:]), outcome.SHA256)

		data, err := os.ReadFile(outcome.LocalPath)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))

		store.AssertExpectations(t)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		store.On("Get", mock.Anything, "audit", descriptor.Key).
			Return(nil, errors.New("connection reset")).Once()
		store.On("Get", mock.Anything, "audit", descriptor.Key).
			Return(io.NopCloser(strings.NewReader("payload")), nil).Once()

		svc := NewDownloadService(store, "audit", t.TempDir(), testRetryConfig(), logger, metrics)

		outcome := svc.Download(context.Background(), descriptor)

		require.True(t, outcome.Succeeded)
		assert.Equal(t, 2, outcome.Attempts)
		store.AssertExpectations(t)
	})

	t.Run("reports failure after exhausting attempts", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		store.On("Get", mock.Anything, "audit", descriptor.Key).
			Return(nil, errors.New("access denied")).Times(3)

		svc := NewDownloadService(store, "audit", t.TempDir(), testRetryConfig(), logger, metrics)

		outcome := svc.Download(context.Background(), descriptor)

		assert.False(t, outcome.Succeeded)
		assert.Equal(t, 3, outcome.Attempts)
		require.Error(t, outcome.LastErr)
		assert.True(t, errors.Is(outcome.LastErr, archive.ErrDownload))
		assert.Contains(t, outcome.LastErr.Error(), "access denied")

		store.AssertExpectations(t)
	})

	t.Run("refuses traversal before any fetch", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		svc := NewDownloadService(store, "audit", t.TempDir(), testRetryConfig(), logger, metrics)

		outcome := svc.Download(context.Background(), archive.Descriptor{
			Key:  "../../outside/evil.gz",
			Size: 1,
		})

		assert.False(t, outcome.Succeeded)
		assert.Equal(t, 0, outcome.Attempts)
		require.Error(t, outcome.LastErr)
		assert.True(t, errors.Is(outcome.LastErr, pathsafe.ErrUnsafePath))

		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := NewDownloadService(store, "audit", t.TempDir(), testRetryConfig(), logger, metrics)

		outcome := svc.Download(ctx, descriptor)

		assert.False(t, outcome.Succeeded)
		assert.Equal(t, 0, outcome.Attempts)
		assert.True(t, errors.Is(outcome.LastErr, context.Canceled))
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})
}
