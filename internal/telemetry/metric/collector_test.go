package metric

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/jobdesk-go/internal/storage"
)

type statsFunc func(ctx context.Context) (*storage.KVStats, error)

func (f statsFunc) Stats(ctx context.Context) (*storage.KVStats, error) { return f(ctx) }

func TestKVCollector(t *testing.T) {
	c := NewKVCollector(statsFunc(func(context.Context) (*storage.KVStats, error) {
		return &storage.KVStats{Engine: "badger", TotalSize: 2048, LSMSize: 1024, ValueLogSize: 1024, LastGCTime: 1_700_000_000_000}, nil
	}))

	expected := `
# HELP jobdesk_kv_size_bytes Total on-disk size of the KV engine.
# TYPE jobdesk_kv_size_bytes gauge
jobdesk_kv_size_bytes{engine="badger"} 2048
# HELP jobdesk_kv_up 1 if the KV engine answered the stats call.
# TYPE jobdesk_kv_up gauge
jobdesk_kv_up 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "jobdesk_kv_size_bytes", "jobdesk_kv_up"); err != nil {
		t.Error(err)
	}
}

func TestKVCollector_Down(t *testing.T) {
	c := NewKVCollector(statsFunc(func(context.Context) (*storage.KVStats, error) {
		return nil, errors.New("closed")
	}))

	if n := testutil.CollectAndCount(c); n != 1 {
		t.Errorf("collected %d metrics, want only kv_up", n)
	}
}

func TestKVCollector_Register(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewKVCollector(storage.NewMemoryEngine())); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}
