package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iredis "github.com/zonixt/eauction/internal/redis"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := iredis.Config{
		Addr:         mr.Addr(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	client := iredis.NewClient(cfg)
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	require.NotNil(t, client.RDB)
	require.NoError(t, client.Ping(context.Background()))

	var _ iredis.Cmdable = client.RDB
}

func TestPingUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := iredis.NewClient(iredis.Config{Addr: addr, ReadTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	err := client.Ping(context.Background())

	assert.Error(t, err)
}
