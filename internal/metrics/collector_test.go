package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	c := NewCollector(nil)

	c.RecordOperation("getinfo", time.Millisecond, nil)
	c.RecordOperation("getinfo", time.Millisecond, nil)
	c.RecordOperation("getinfo", time.Millisecond, errors.New("boom"))

	ok := testutil.ToFloat64(c.opsTotal.WithLabelValues("getinfo", "ok"))
	if ok != 2 {
		t.Fatalf("ok count = %v, want 2", ok)
	}
	failed := testutil.ToFloat64(c.opsTotal.WithLabelValues("getinfo", "error"))
	if failed != 1 {
		t.Fatalf("error count = %v, want 1", failed)
	}
}

func TestRecordBytes(t *testing.T) {
	c := NewCollector(nil)

	c.RecordRead(100)
	c.RecordRead(0)
	c.RecordWrite(50)

	if got := testutil.ToFloat64(c.bytesRead); got != 100 {
		t.Fatalf("read bytes = %v", got)
	}
	if got := testutil.ToFloat64(c.bytesWrite); got != 50 {
		t.Fatalf("written bytes = %v", got)
	}
}

func TestDisabledCollector(t *testing.T) {
	c := NewCollector(&Config{Enabled: false, Namespace: "anyfs"})

	c.RecordOperation("list", time.Millisecond, nil)
	c.RecordRead(10)

	if got := testutil.ToFloat64(c.opsTotal.WithLabelValues("list", "ok")); got != 0 {
		t.Fatalf("disabled collector recorded %v operations", got)
	}
}
