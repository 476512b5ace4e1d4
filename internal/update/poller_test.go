package update

import "testing"

type stubUpdater struct {
	status  Status
	started int
}

func (s *stubUpdater) Start(Version, Constraint) { s.started++ }
func (s *stubUpdater) Status() Status            { return s.status }

func TestStatusPollerCopiesStatus(t *testing.T) {
	u := &stubUpdater{status: CheckingForUpdate()}
	p := NewStatusPoller(u)

	if got := p.Last(); got != CheckingForUpdate() {
		t.Fatalf("Last() before Tick = %v", got)
	}

	steps := []struct {
		status  Status
		changed bool
	}{
		{CheckingForUpdate(), false},
		{Downloading(0), true},
		{Downloading(0), false},
		{Downloading(12.5), true},
		{UpToDate(), true},
		{UpToDate(), false},
	}
	for i, s := range steps {
		u.status = s.status
		if got := p.Tick(); got != s.status {
			t.Errorf("tick %d: Tick() = %v, want %v", i, got, s.status)
		}
		if got := p.Last(); got != s.status {
			t.Errorf("tick %d: Last() = %v, want %v", i, got, s.status)
		}
		if got := p.Changed(); got != s.changed {
			t.Errorf("tick %d: Changed() = %v, want %v", i, got, s.changed)
		}
	}
}

func TestAutoUpdateBundle(t *testing.T) {
	u := &stubUpdater{status: CheckingForUpdate()}
	a := New(NewVersion(1, 2, 3), MustParseConstraint("^1"), u)

	a.Start()
	a.Start()
	if u.started != 2 {
		t.Errorf("Start forwarded %d times, want 2", u.started)
	}

	u.status = Installing(40)
	if got := a.Poll(); got != Installing(40) {
		t.Errorf("Poll() = %v", got)
	}
	if a.Status() != Installing(40) || !a.Changed() {
		t.Errorf("Status() = %v Changed() = %v", a.Status(), a.Changed())
	}
	if a.Updater() != u {
		t.Error("Updater() did not return the wrapped updater")
	}
}

func TestAutoUpdateDefaults(t *testing.T) {
	a := NewDefault(&stubUpdater{})
	if a.Current != NewVersion(0, 0, 0) {
		t.Errorf("Current = %v, want 0.0.0", a.Current)
	}
	if a.Constraint.String() != "*" {
		t.Errorf("Constraint = %v, want *", a.Constraint)
	}
	if !a.Constraint.Matches(NewVersion(7, 0, 0)) {
		t.Error("default constraint should match any release")
	}
}

func TestAutoUpdateWithDryRun(t *testing.T) {
	d := fastDryRun(false)
	a := NewDefault(d)
	a.Start()
	waitDone(t, d.Done())
	if got := a.Poll(); got != UpToDate() {
		t.Errorf("Poll() = %v, want up_to_date", got)
	}
}
