package update

import (
	"sync"
	"testing"
	"time"
)

func fastDryRun(fake bool) *DryRunUpdater {
	return NewDryRun(DryRunOptions{
		FakeUpdateAvailable: fake,
		CheckDelay:          time.Microsecond,
		StepInterval:        time.Microsecond,
	})
}

func TestDryRunFakeUpdateWalksLifecycle(t *testing.T) {
	u := fastDryRun(true)
	rec := record(u.Cell())

	u.Start(NewVersion(1, 0, 0), AnyVersion())
	waitDone(t, u.Done())

	want := []Status{CheckingForUpdate()}
	for i := 0; i <= 100; i++ {
		want = append(want, Downloading(float64(i)))
	}
	for i := 0; i <= 100; i++ {
		want = append(want, Installing(float64(i)))
	}
	want = append(want, FinishedInstalling())

	got := rec.statuses()
	if len(got) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}

	// terminal: nothing else follows
	u.Start(NewVersion(1, 0, 0), AnyVersion())
	time.Sleep(5 * time.Millisecond)
	if n := len(rec.statuses()); n != len(want) {
		t.Errorf("got %d transitions after restart attempt, want %d", n, len(want))
	}
	if !u.Status().IsTerminal() {
		t.Errorf("Status() = %v, want finished", u.Status())
	}
}

func TestDryRunProgressMonotonic(t *testing.T) {
	u := fastDryRun(true)
	rec := record(u.Cell())
	u.Start(NewVersion(0, 0, 0), AnyVersion())
	waitDone(t, u.Done())

	var last Status
	for i, s := range rec.statuses() {
		if i > 0 && s.Phase == last.Phase && s.Progress < last.Progress {
			t.Fatalf("progress decreased at %d: %v after %v", i, s, last)
		}
		if i > 0 && s.Phase < last.Phase {
			t.Fatalf("phase moved backwards at %d: %v after %v", i, s, last)
		}
		last = s
	}
}

func TestDryRunNoUpdate(t *testing.T) {
	u := fastDryRun(false)
	rec := record(u.Cell())

	u.Start(NewVersion(1, 0, 0), AnyVersion())
	if got := u.Status(); got != UpToDate() {
		t.Fatalf("Status() right after Start = %v, want up_to_date", got)
	}
	waitDone(t, u.Done())

	for i := 0; i < 3; i++ {
		u.Start(NewVersion(1, 0, 0), AnyVersion())
	}
	time.Sleep(5 * time.Millisecond)
	if got := u.Status(); got != UpToDate() {
		t.Errorf("Status() = %v, want up_to_date", got)
	}
	if n := len(rec.statuses()); n != 1 {
		t.Errorf("got %d transitions, want 1", n)
	}
}

func TestDryRunConcurrentStartSpawnsOneWorker(t *testing.T) {
	u := fastDryRun(true)
	rec := record(u.Cell())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.Start(NewVersion(1, 0, 0), AnyVersion())
		}()
	}
	wg.Wait()
	waitDone(t, u.Done())

	finished := 0
	for _, s := range rec.statuses() {
		if s.IsTerminal() {
			finished++
		}
	}
	if finished != 1 {
		t.Errorf("saw %d terminal transitions, want 1", finished)
	}
	if n := len(rec.statuses()); n != 1+101+101+1 {
		t.Errorf("got %d transitions, want %d", n, 1+101+101+1)
	}
}

func TestDryRunDefaults(t *testing.T) {
	u := NewDryRun(DryRunOptions{})
	if u.checkDelay != DefaultCheckDelay {
		t.Errorf("checkDelay = %v, want %v", u.checkDelay, DefaultCheckDelay)
	}
	if u.step != DefaultStepInterval {
		t.Errorf("step = %v, want %v", u.step, DefaultStepInterval)
	}
	if u.Status() != CheckingForUpdate() {
		t.Errorf("initial Status() = %v", u.Status())
	}
}

func TestDryRunNoPause(t *testing.T) {
	u := NewDryRun(DryRunOptions{
		FakeUpdateAvailable: true,
		CheckDelay:          NoPause,
		StepInterval:        NoPause,
	})
	if u.checkDelay != 0 || u.step != 0 {
		t.Fatalf("checkDelay = %v, step = %v, want no pauses", u.checkDelay, u.step)
	}

	u.Start(NewVersion(1, 0, 0), AnyVersion())
	select {
	case <-u.Done():
	case <-time.After(time.Second):
		t.Fatal("simulation without pauses did not finish within 1s")
	}
	if u.Status() != FinishedInstalling() {
		t.Errorf("Status() = %v, want finished", u.Status())
	}
}
