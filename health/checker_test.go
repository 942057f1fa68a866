package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	t.Run("RegisterAndCheck", func(t *testing.T) {
		checker := NewHealthChecker(time.Second)
		checker.RegisterCheck("store", MetadataStoreCheck(func(ctx context.Context) error {
			return nil
		}))

		result, err := checker.Check(context.Background(), "store")
		require.NoError(t, err)
		assert.Equal(t, StatusHealthy, result.Status)
		assert.Equal(t, "store", result.Name)
	})

	t.Run("UnknownCheck", func(t *testing.T) {
		checker := NewHealthChecker(time.Second)
		_, err := checker.Check(context.Background(), "missing")
		assert.Error(t, err)
	})

	t.Run("FailingCheck", func(t *testing.T) {
		checker := NewHealthChecker(time.Second)
		checker.RegisterCheck("blobs", BlobBackendCheck(func(ctx context.Context, key string) (bool, error) {
			return false, errors.New("backend unreachable")
		}))

		result, err := checker.Check(context.Background(), "blobs")
		require.NoError(t, err)
		assert.Equal(t, StatusUnhealthy, result.Status)
		assert.Contains(t, result.Message, "backend unreachable")
	})

	t.Run("CheckTimeout", func(t *testing.T) {
		checker := NewHealthChecker(50 * time.Millisecond)
		checker.RegisterCheck("dht", DHTReachabilityCheck(func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(5 * time.Second):
				return 1, nil
			}
		}))

		result, err := checker.Check(context.Background(), "dht")
		require.NoError(t, err)
		assert.Equal(t, StatusUnhealthy, result.Status)
	})

	t.Run("CacheReusesResult", func(t *testing.T) {
		calls := 0
		checker := NewHealthChecker(time.Second)
		checker.RegisterCheck("store", MetadataStoreCheck(func(ctx context.Context) error {
			calls++
			return nil
		}))

		_, err := checker.Check(context.Background(), "store")
		require.NoError(t, err)
		_, err = checker.Check(context.Background(), "store")
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		checker.ClearCache()
		_, err = checker.Check(context.Background(), "store")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("CheckAll", func(t *testing.T) {
		checker := NewHealthChecker(time.Second)
		checker.RegisterCheck("store", MetadataStoreCheck(func(ctx context.Context) error { return nil }))
		checker.RegisterCheck("relay", RelayCheck("http://relay.example", func(ctx context.Context, url string) error {
			return errors.New("relay down")
		}))

		results := checker.CheckAll(context.Background())
		require.Len(t, results, 2)
		assert.Equal(t, StatusHealthy, results["store"].Status)
		assert.Equal(t, StatusUnhealthy, results["relay"].Status)
		assert.Equal(t, StatusUnhealthy, checker.GetOverallStatus(context.Background()))
	})

	t.Run("OverallHealthyWhenEmpty", func(t *testing.T) {
		checker := NewHealthChecker(time.Second)
		assert.Equal(t, StatusHealthy, checker.GetOverallStatus(context.Background()))
	})

	t.Run("SystemHealth", func(t *testing.T) {
		checker := NewHealthChecker(time.Second)
		checker.RegisterCheck("store", MetadataStoreCheck(func(ctx context.Context) error { return nil }))

		sys := checker.GetSystemHealth(context.Background())
		require.NotNil(t, sys)
		assert.Equal(t, StatusHealthy, sys.Status)
		assert.Contains(t, sys.Checks, "store")
	})
}
