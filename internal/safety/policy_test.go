package safety

import (
	"reflect"
	"testing"
)

func TestNewPolicyRejectsEmptySet(t *testing.T) {
	if _, err := NewPolicy(nil); err == nil {
		t.Fatal("empty disclaimer set must be rejected")
	}
	if _, err := NewPolicy([]string{"  ", ""}); err == nil {
		t.Fatal("whitespace-only disclaimers must be rejected")
	}
}

func TestEnsureAppendsMissing(t *testing.T) {
	p := Default()

	got := p.Ensure([]string{"custom note"})
	if got[0] != "custom note" {
		t.Fatalf("existing items must keep their position, got %v", got)
	}
	if len(got) != 1+len(DefaultDisclaimers) {
		t.Fatalf("expected all required disclaimers appended, got %v", got)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	p := Default()

	once := p.Ensure([]string{"custom note"})
	twice := p.Ensure(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("ensure(ensure(x)) != ensure(x): %v vs %v", once, twice)
	}
}

func TestEnsureOnNilInput(t *testing.T) {
	p := Default()

	got := p.Ensure(nil)
	if !reflect.DeepEqual(got, DefaultDisclaimers) {
		t.Fatalf("nil input should yield the required set, got %v", got)
	}
}

func TestFooterText(t *testing.T) {
	p, err := NewPolicy([]string{"one", "two"})
	if err != nil {
		t.Fatal(err)
	}
	if p.FooterText() != "one | two" {
		t.Fatalf("unexpected footer: %q", p.FooterText())
	}
}
