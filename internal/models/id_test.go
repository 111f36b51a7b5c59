package models

import (
	"encoding/json"
	"testing"
)

func TestIDUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{name: "quoted string", input: `"42"`, want: "42"},
		{name: "bare number", input: `42`, want: "42"},
		{name: "large number", input: `9007199254740993`, want: "9007199254740993"},
		{name: "uuid string", input: `"550e8400-e29b-41d4-a716-446655440000"`, want: "550e8400-e29b-41d4-a716-446655440000"},
		{name: "null", input: `null`, want: ""},
		{name: "object rejected", input: `{"id":1}`, wantErr: true},
		{name: "array rejected", input: `[1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal %s: %v", tt.input, err)
			}
			if id != tt.want {
				t.Errorf("got %q, want %q", id, tt.want)
			}
		})
	}
}

func TestIDMixedFormsCompareEqual(t *testing.T) {
	var fromString, fromNumber ID
	if err := json.Unmarshal([]byte(`"42"`), &fromString); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`42`), &fromNumber); err != nil {
		t.Fatal(err)
	}
	if !fromString.Equal(fromNumber) {
		t.Errorf("%q and %q must compare equal", fromString, fromNumber)
	}
}

func TestIDInStructField(t *testing.T) {
	// Two payloads for the same entity, ids arriving in different forms
	var a, b struct {
		BountyID ID `json:"bounty_id"`
	}
	if err := json.Unmarshal([]byte(`{"bounty_id": 7}`), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"bounty_id": "7"}`), &b); err != nil {
		t.Fatal(err)
	}
	if !a.BountyID.Equal(b.BountyID) {
		t.Errorf("struct-field ids differ: %q vs %q", a.BountyID, b.BountyID)
	}
}

func TestIDIsZero(t *testing.T) {
	if !ID("").IsZero() {
		t.Error("empty id must be zero")
	}
	if ID("0").IsZero() {
		t.Error(`"0" is a real id, not zero`)
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  ID
	}{
		{name: "string", input: "42", want: "42"},
		{name: "id", input: ID("42"), want: "42"},
		{name: "int", input: 42, want: "42"},
		{name: "int64", input: int64(42), want: "42"},
		{name: "float64 from json", input: float64(42), want: "42"},
		{name: "json.Number", input: json.Number("42"), want: "42"},
		{name: "unsupported", input: []string{"42"}, want: ""},
		{name: "nil", input: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeID(tt.input); got != tt.want {
				t.Errorf("NormalizeID(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
