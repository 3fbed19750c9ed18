package id

import (
	"encoding/json"
	"testing"
)

func TestNewAndParse(t *testing.T) {
	t.Parallel()

	jobID := NewJobID()
	if jobID.IsNil() {
		t.Fatal("NewJobID returned nil ID")
	}
	if jobID.Prefix() != PrefixJob {
		t.Errorf("Prefix = %q, want %q", jobID.Prefix(), PrefixJob)
	}

	parsed, err := Parse(jobID.String())
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", jobID.String(), err)
	}
	if parsed.String() != jobID.String() {
		t.Errorf("round trip = %q, want %q", parsed.String(), jobID.String())
	}
}

func TestParseWithPrefix(t *testing.T) {
	t.Parallel()

	subID := NewSubscriberID()

	if _, err := ParseSubscriberID(subID.String()); err != nil {
		t.Errorf("ParseSubscriberID(%q) error: %v", subID.String(), err)
	}
	if _, err := ParseJobID(subID.String()); err == nil {
		t.Error("ParseJobID accepted a subscriber ID")
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"not a typeid",
		"job_!!!",
	}
	for _, tt := range tests {
		if _, err := Parse(tt); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", tt)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	evtID := NewEventID()

	data, err := json.Marshal(evtID)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.String() != evtID.String() {
		t.Errorf("JSON round trip = %q, want %q", decoded.String(), evtID.String())
	}
}

func TestNilID(t *testing.T) {
	t.Parallel()

	if !Nil.IsNil() {
		t.Error("Nil.IsNil() = false")
	}
	if Nil.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", Nil.String())
	}

	data, err := json.Marshal(Nil)
	if err != nil {
		t.Fatalf("marshal nil ID: %v", err)
	}
	if string(data) != `""` {
		t.Errorf("marshal nil ID = %s, want empty string", data)
	}
}

func TestKSortable(t *testing.T) {
	t.Parallel()

	a := NewJobID()
	b := NewJobID()
	if a.String() == b.String() {
		t.Error("two generated IDs are equal")
	}
}
