package statusserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pushchain/autoupdate/internal/update"
)

func newTestServer(t *testing.T, cell *update.StatusCell, gatherer prometheus.Gatherer) (*Server, *httptest.Server) {
	t.Helper()
	// Some sandboxes restrict binding; detect and skip.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping: cannot bind due to sandbox: %v", err)
	}
	probe.Close()

	s := New(Options{
		Cell:      cell,
		Gatherer:  gatherer,
		Candidate: func() string { return "v1.1.0" },
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func TestFetchStatus(t *testing.T) {
	cell := update.NewStatusCell()
	cell.Store(update.Downloading(42.5))
	_, ts := newTestServer(t, cell, nil)

	snap, err := Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.Phase != "downloading" || snap.Progress != 42.5 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.RestartRequired {
		t.Error("RestartRequired should be false while downloading")
	}
	if snap.Candidate != "v1.1.0" {
		t.Errorf("Candidate = %q", snap.Candidate)
	}
}

func TestStatusRejectsPost(t *testing.T) {
	_, ts := newTestServer(t, update.NewStatusCell(), nil)

	resp, err := http.Post(ts.URL+PathStatus, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	cell := update.NewStatusCell()
	reg := prometheus.NewRegistry()
	update.NewMetrics(reg).Attach(cell)
	_, ts := newTestServer(t, cell, reg)

	cell.Store(update.Installing(30))

	resp, err := http.Get(ts.URL + PathMetrics)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"autoupdate_progress_percent 30",
		`autoupdate_phase{phase="installing"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	_, ts := newTestServer(t, update.NewStatusCell(), nil)

	resp, err := http.Get(ts.URL + PathMetrics)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSubscribeStreamsTransitions(t *testing.T) {
	cell := update.NewStatusCell()
	_, ts := newTestServer(t, cell, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := Subscribe(ctx, ts.URL)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	first := <-ch
	if first.Phase != "checking" {
		t.Fatalf("first snapshot = %+v, want checking", first)
	}

	cell.Store(update.Downloading(10))
	cell.Store(update.Installing(50))
	cell.Store(update.FinishedInstalling())

	var got []string
	for snap := range ch {
		got = append(got, snap.Phase)
	}
	want := []string{"downloading", "installing", "finished"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("phases = %v, want %v", got, want)
	}
}

func TestStreamClosesWhenSettled(t *testing.T) {
	tests := []struct {
		name  string
		store []update.Status // before subscribing
		after []update.Status // after the first snapshot
		want  []string
	}{
		{"already up to date", []update.Status{update.UpToDate()}, nil, []string{"up_to_date"}},
		{"already finished", []update.Status{update.Downloading(5), update.FinishedInstalling()}, nil, []string{"finished"}},
		{"resolves to up to date", nil, []update.Status{update.UpToDate()}, []string{"checking", "up_to_date"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := update.NewStatusCell()
			for _, st := range tt.store {
				cell.Store(st)
			}
			_, ts := newTestServer(t, cell, nil)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			ch, err := Subscribe(ctx, ts.URL)
			if err != nil {
				t.Fatalf("Subscribe: %v", err)
			}

			var got []string
			for snap := range ch {
				got = append(got, snap.Phase)
				if len(got) == 1 {
					for _, st := range tt.after {
						cell.Store(st)
					}
				}
			}
			if ctx.Err() != nil {
				t.Fatalf("stream still open after settling (received %v)", got)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("phases = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStreamClosesOnServerClose(t *testing.T) {
	cell := update.NewStatusCell()
	s, ts := newTestServer(t, cell, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := Subscribe(ctx, ts.URL)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	<-ch

	s.Close()
	select {
	case _, ok := <-ch:
		if ok {
			for range ch {
			}
		}
	case <-ctx.Done():
		t.Fatal("stream did not close")
	}
}

func TestStreamRejectedAfterClose(t *testing.T) {
	s, ts := newTestServer(t, update.NewStatusCell(), nil)
	s.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + PathStream
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("err = %v, want close going away", err)
	}
}

func TestBroadcastDoesNotBlockWriter(t *testing.T) {
	cell := update.NewStatusCell()
	s := New(Options{Cell: cell})
	ch, ok := s.subscribe()
	if !ok {
		t.Fatal("subscribe failed")
	}
	defer s.unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			cell.Store(update.Downloading(float64(i % 100)))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Store blocked on a slow subscriber")
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}
