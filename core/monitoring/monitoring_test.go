package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recordingMonitor struct {
	errs      []error
	tags      []map[string]string
	recovered []any
	flushed   time.Duration
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}

func (m *recordingMonitor) Recover() {
	if r := recover(); r != nil {
		m.recovered = append(m.recovered, r)
	}
}

func (m *recordingMonitor) Flush(d time.Duration) { m.flushed = d }

func TestGlobalMonitor(t *testing.T) {
	prev := Current()
	defer Init(prev)

	rec := &recordingMonitor{}
	Init(rec)
	Init(nil)
	if Current() != rec {
		t.Fatalf("nil monitor replaced the current one")
	}
	CaptureException(errors.New("boom"), map[string]string{"component": "pusher"})
	CaptureException(nil, nil)
	if len(rec.errs) != 1 || rec.tags[0]["component"] != "pusher" {
		t.Fatalf("unexpected capture %+v", rec)
	}
	Flush(time.Second)
	if rec.flushed != time.Second {
		t.Fatalf("flush not forwarded")
	}
}

func TestRecoverForwardsPanic(t *testing.T) {
	prev := Current()
	defer Init(prev)

	rec := &recordingMonitor{}
	Init(rec)
	func() {
		defer Recover()
		panic("worker died")
	}()
	if len(rec.recovered) != 1 || rec.recovered[0] != "worker died" {
		t.Fatalf("panic not forwarded: %+v", rec.recovered)
	}
}
