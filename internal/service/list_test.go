package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/storage"
	stmocks "trailingest/internal/domain/storage/mocks"
)

func TestListService_ListForDate(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("filters suffix and follows pagination", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		store.On("ListPage", mock.Anything, "audit", "logs/2024/01/15/", "").
			Return(storage.Page{
				Objects: []storage.ObjectInfo{
					{Key: "logs/2024/01/15/events_01.json.gz", Size: 100, ETag: "\"abc\""},
					{Key: "logs/2024/01/15/manifest.json", Size: 10},
				},
				NextToken: "token-1",
			}, nil)
		store.On("ListPage", mock.Anything, "audit", "logs/2024/01/15/", "token-1").
			Return(storage.Page{
				Objects: []storage.ObjectInfo{
					{Key: "logs/2024/01/15/events_02.json.gz", Size: 200},
				},
			}, nil)

		svc := NewListService(store, "audit", "logs", ".gz", logger, metrics)

		descriptors, err := svc.ListForDate(context.Background(), day)

		require.NoError(t, err)
		require.Len(t, descriptors, 2)
		assert.Equal(t, "logs/2024/01/15/events_01.json.gz", descriptors[0].Key)
		assert.Equal(t, int64(100), descriptors[0].Size)
		assert.Equal(t, "\"abc\"", descriptors[0].ContentTag)
		assert.Equal(t, "logs/2024/01/15/events_02.json.gz", descriptors[1].Key)

		store.AssertExpectations(t)
	})

	t.Run("drops keys that fail validation", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		store.On("ListPage", mock.Anything, "audit", "logs/2024/01/15/", "").
			Return(storage.Page{
				Objects: []storage.ObjectInfo{
					{Key: "logs/2024/01/15/../../../etc/cron.gz", Size: 5},
					{Key: "logs/2024/01/15/ok.json.gz", Size: 5},
				},
			}, nil)

		svc := NewListService(store, "audit", "logs", ".gz", logger, metrics)

		descriptors, err := svc.ListForDate(context.Background(), day)

		require.NoError(t, err)
		require.Len(t, descriptors, 1)
		assert.Equal(t, "logs/2024/01/15/ok.json.gz", descriptors[0].Key)
	})

	t.Run("wraps list errors", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		store.On("ListPage", mock.Anything, "audit", "logs/2024/01/15/", "").
			Return(storage.Page{}, errors.New("access denied"))

		svc := NewListService(store, "audit", "logs", ".gz", logger, metrics)

		_, err := svc.ListForDate(context.Background(), day)

		require.Error(t, err)
		assert.True(t, errors.Is(err, archive.ErrList))
	})

	t.Run("builds date prefix without configured prefix", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		store.On("ListPage", mock.Anything, "audit", "2024/01/15/", "").
			Return(storage.Page{}, nil)

		svc := NewListService(store, "audit", "", ".gz", logger, metrics)

		_, err := svc.ListForDate(context.Background(), day)

		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestListService_ListRange(t *testing.T) {
	t.Run("failing date contributes zero objects and the range continues", func(t *testing.T) {
		store := &stmocks.MockObjectStore{}
		logger, metrics := quietObs()

		store.On("ListPage", mock.Anything, "audit", "logs/2024/01/15/", "").
			Return(storage.Page{}, errors.New("throttled"))
		store.On("ListPage", mock.Anything, "audit", "logs/2024/01/16/", "").
			Return(storage.Page{
				Objects: []storage.ObjectInfo{
					{Key: "logs/2024/01/16/events_01.json.gz", Size: 50},
				},
			}, nil)

		dr, err := archive.NewDateRange("2024-01-15", "2024-01-16")
		require.NoError(t, err)

		svc := NewListService(store, "audit", "logs", ".gz", logger, metrics)

		descriptors := svc.ListRange(context.Background(), dr)

		require.Len(t, descriptors, 1)
		assert.Equal(t, "logs/2024/01/16/events_01.json.gz", descriptors[0].Key)
		store.AssertExpectations(t)
	})
}
