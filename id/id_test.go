package id

import (
	"strings"
	"testing"
)

func TestNew_PrefixAndFormat(t *testing.T) {
	subID := NewSubscriptionID()
	if subID.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if subID.Prefix() != PrefixSubscription {
		t.Fatalf("expected prefix %q, got %q", PrefixSubscription, subID.Prefix())
	}
	if !strings.HasPrefix(subID.String(), "whsub_") {
		t.Fatalf("expected whsub_ prefix, got %q", subID.String())
	}
}

func TestNew_Unique(t *testing.T) {
	a := NewDeliveryID()
	b := NewDeliveryID()
	if a.String() == b.String() {
		t.Fatalf("expected unique IDs, got %q twice", a.String())
	}
}

func TestNewSecret_Prefix(t *testing.T) {
	s := NewSecret()
	if s == "" {
		t.Fatal("expected non-empty secret")
	}
	if !strings.HasPrefix(s, "whs_") {
		t.Fatalf("expected whs_ prefix, got %q", s)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	orig := NewAttemptID()
	parsed, err := Parse(orig.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.String() != orig.String() {
		t.Fatalf("round trip mismatch: %q != %q", parsed.String(), orig.String())
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestParseWithPrefix_Mismatch(t *testing.T) {
	sub := NewSubscriptionID()
	if _, err := ParseDeliveryID(sub.String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
}

func TestNil_Behaviour(t *testing.T) {
	if !Nil.IsNil() {
		t.Fatal("Nil should report IsNil")
	}
	if Nil.String() != "" {
		t.Fatalf("Nil.String() should be empty, got %q", Nil.String())
	}

	v, err := Nil.Value()
	if err != nil {
		t.Fatalf("Nil.Value: %v", err)
	}
	if v != nil {
		t.Fatalf("Nil.Value should be nil, got %v", v)
	}
}

func TestScan_StringAndBytes(t *testing.T) {
	orig := NewSubscriptionID()

	var fromString ID
	if err := fromString.Scan(orig.String()); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString.String() != orig.String() {
		t.Fatalf("scan string mismatch: %q", fromString.String())
	}

	var fromBytes ID
	if err := fromBytes.Scan([]byte(orig.String())); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if fromBytes.String() != orig.String() {
		t.Fatalf("scan bytes mismatch: %q", fromBytes.String())
	}

	var fromNil ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !fromNil.IsNil() {
		t.Fatal("scan nil should produce Nil ID")
	}
}

func TestMarshalText_RoundTrip(t *testing.T) {
	orig := NewDeliveryID()
	text, err := orig.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back ID
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.String() != orig.String() {
		t.Fatalf("text round trip mismatch: %q", back.String())
	}
}
