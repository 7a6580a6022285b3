package monitoring

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("frame %d done", 7)
	if got != "frame 7 done" {
		t.Errorf("custom logger saw %q", got)
	}

	// nil installs a no-op logger; logging must not panic or call back
	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	Logf("ping")
	if !called {
		t.Fatal("replacement logger was not called")
	}
	called = false
	SetLogger(nil)
	Logf("ping")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
}

func TestPipelineCounters(t *testing.T) {
	before := testutil.ToFloat64(FramesProcessed)
	FramesProcessed.Inc()
	if got := testutil.ToFloat64(FramesProcessed); got != before+1 {
		t.Errorf("FramesProcessed = %v, want %v", got, before+1)
	}

	rejected := ObjectsRejected.WithLabelValues("area")
	before = testutil.ToFloat64(rejected)
	rejected.Inc()
	if got := testutil.ToFloat64(rejected); got != before+1 {
		t.Errorf("ObjectsRejected[area] = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(TracksOpened)
	TracksOpened.Inc()
	TracksClosed.Inc()
	if got := testutil.ToFloat64(TracksOpened); got != before+1 {
		t.Errorf("TracksOpened = %v, want %v", got, before+1)
	}
}
