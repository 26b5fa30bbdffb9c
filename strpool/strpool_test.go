package strpool

import "testing"

func TestIntern_Idempotent(t *testing.T) {
	p := New()

	id1 := p.Intern("com.example.Widget")
	id2 := p.Intern("com.example.Widget")
	if id1 != id2 {
		t.Errorf("Intern not idempotent: %d != %d", id1, id2)
	}

	idOther := p.Intern("com.example.Gadget")
	if idOther == id1 {
		t.Errorf("distinct strings got same id %d", id1)
	}
}

func TestIntern_AssignsInOrder(t *testing.T) {
	p := New()

	if id := p.Intern("a"); id != 0 {
		t.Errorf("first intern = %d, want 0", id)
	}
	if id := p.Intern("b"); id != 1 {
		t.Errorf("second intern = %d, want 1", id)
	}
	if id := p.Intern("a"); id != 0 {
		t.Errorf("re-intern of a = %d, want 0", id)
	}
}

func TestString_RoundTrip(t *testing.T) {
	p := New()
	id := p.Intern("com.example.Widget")

	got, ok := p.String(id)
	if !ok {
		t.Fatal("String: id not found")
	}
	if got != "com.example.Widget" {
		t.Errorf("String(%d) = %q, want com.example.Widget", id, got)
	}
}

func TestString_UnknownID(t *testing.T) {
	p := New()
	if _, ok := p.String(42); ok {
		t.Error("String: expected not-found for unknown id")
	}
}

func TestLookup(t *testing.T) {
	p := New()
	if _, ok := p.Lookup("missing"); ok {
		t.Error("Lookup: expected not-found before Intern")
	}

	id := p.Intern("present")
	got, ok := p.Lookup("present")
	if !ok || got != id {
		t.Errorf("Lookup = (%d, %v), want (%d, true)", got, ok, id)
	}
}

func TestLen(t *testing.T) {
	p := New()
	p.Intern("a")
	p.Intern("b")
	p.Intern("a")
	if p.Len() != 2 {
		t.Errorf("Len = %d, want 2", p.Len())
	}
}
