package progress

import "testing"

func TestDisabledBarIsNoop(t *testing.T) {
	b := New(false)
	b.Start(10)
	b.Update(5)
	b.Finish()
	if b.bar != nil {
		t.Error("disabled Bar should never construct an underlying progressbar")
	}
}

func TestEnabledBarLifecycle(t *testing.T) {
	b := New(true)
	b.Start(10)
	if b.bar == nil {
		t.Fatal("Start() on an enabled Bar should construct an underlying progressbar")
	}
	b.Update(3)
	b.Update(10)
	b.Finish()
}

func TestEnabledBarSpinnerMode(t *testing.T) {
	b := New(true)
	b.Start(-1)
	if b.bar == nil {
		t.Fatal("Start(-1) should still construct a bar, in spinner mode")
	}
	b.Finish()
}

func TestSinkInterfaceSatisfiedByBar(t *testing.T) {
	var _ Sink = New(true)
}
