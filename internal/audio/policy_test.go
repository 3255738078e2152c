package audio

import "testing"

func TestPolicyNotifiesOnChange(t *testing.T) {
	p := NewPolicy(true)

	var got []State
	unsubscribe := p.Subscribe(func(s State) { got = append(got, s) })

	if p.SetMuted(true) {
		t.Fatal("SetMuted with unchanged value should report false")
	}
	if !p.SetMuted(false) {
		t.Fatal("SetMuted(false) should report a change")
	}
	if muted := p.Toggle(); !muted {
		t.Fatal("Toggle() should return the new muted value")
	}
	p.SetVolume(0.5)

	if len(got) != 3 {
		t.Fatalf("listener calls = %d, want 3", len(got))
	}
	if got[0].Muted || !got[1].Muted || got[2].Volume != 0.5 {
		t.Fatalf("unexpected notifications: %+v", got)
	}

	unsubscribe()
	unsubscribe()
	p.SetMuted(false)
	if len(got) != 3 {
		t.Fatal("unsubscribed listener was notified")
	}
}

func TestPolicyClampsVolume(t *testing.T) {
	p := NewPolicy(false)

	tests := []struct {
		in   float64
		want float64
	}{
		{-0.2, 0},
		{0.25, 0.25},
		{1.7, 1},
	}
	for _, tt := range tests {
		p.SetVolume(tt.in)
		if got := p.Volume(); got != tt.want {
			t.Errorf("SetVolume(%v) -> %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPolicyResetRestoresDefaultsAndDropsListeners(t *testing.T) {
	p := NewPolicy(true)
	called := false
	p.Subscribe(func(State) { called = true })

	p.SetMuted(false)
	p.SetVolume(0.3)
	called = false

	p.Reset()

	if !p.Muted() || p.Volume() != 1 {
		t.Fatalf("Reset() left state %+v", p.State())
	}
	if p.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d after Reset", p.Subscribers())
	}
	p.SetMuted(false)
	if called {
		t.Fatal("listener survived Reset")
	}
}
