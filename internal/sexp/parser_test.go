package sexp

import "testing"

func TestReadTopFormSequence(t *testing.T) {
	src := `(module m) (def f (fn extern int (void) (return 0)))`
	r := NewReader([]byte(src), "t.dt")

	first, rep := r.ReadTopForm()
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if !first.HeadIs("module") {
		t.Fatalf("expected first form to be (module ...), got %s", first)
	}

	second, rep := r.ReadTopForm()
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if !second.HeadIs("def") {
		t.Fatalf("expected second form to be (def ...), got %s", second)
	}

	if !r.AtEOF() {
		t.Fatal("expected stream to be exhausted")
	}
}

func TestEmptyListIsError(t *testing.T) {
	r := NewReader([]byte(`()`), "t.dt")
	_, rep := r.ReadTopForm()
	if rep == nil {
		t.Fatal("expected an error for an empty list")
	}
}

func TestBareAtomAtTopLevelIsError(t *testing.T) {
	r := NewReader([]byte(`foo`), "t.dt")
	_, rep := r.ReadTopForm()
	if rep == nil {
		t.Fatal("expected an error for a bare atom at top level")
	}
}
