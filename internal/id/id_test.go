package id

import (
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		typ  Type
		seq  int
		want string
	}{
		{TypeAccount, 1, "A-00001"},
		{TypeAccount, 12345, "A-12345"},
		{TypeContainer, 7, "P-00007"},
		{TypeTask, 42, "T-00042"},
		{TypeComment, 99999, "C-99999"},
		{TypeAttachment, 3, "ATT-00003"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.typ, tt.seq); got != tt.want {
				t.Errorf("Format(%s, %d) = %q, want %q", tt.typ, tt.seq, got, tt.want)
			}
		})
	}

	if got := FormatAccount(5); got != "A-00005" {
		t.Errorf("FormatAccount(5) = %q", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType Type
		wantSeq  int
		wantErr  bool
	}{
		{name: "account ID", input: "A-00001", wantType: TypeAccount, wantSeq: 1},
		{name: "account ID beyond five digits", input: "A-123456", wantType: TypeAccount, wantSeq: 123456},
		{name: "task ID with whitespace", input: "  T-00042 ", wantType: TypeTask, wantSeq: 42},
		{name: "attachment ID", input: "ATT-00010", wantType: TypeAttachment, wantSeq: 10},
		{name: "lowercase prefix", input: "a-00001", wantErr: true},
		{name: "short sequence", input: "A-001", wantErr: true},
		{name: "unknown prefix", input: "X-00001", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, seq, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if typ != tt.wantType || seq != tt.wantSeq {
				t.Errorf("Parse(%q) = (%s, %d), want (%s, %d)", tt.input, typ, seq, tt.wantType, tt.wantSeq)
			}
		})
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID("550e8400-e29b-41d4-a716-446655440000") {
		t.Error("expected lowercase UUID to be accepted")
	}
	if !IsUUID("550E8400-E29B-41D4-A716-446655440000") {
		t.Error("expected uppercase UUID to be accepted")
	}
	if IsUUID("A-00001") {
		t.Error("friendly ID is not a UUID")
	}
}

func TestIsAccountID(t *testing.T) {
	if !IsAccountID("A-00003") {
		t.Error("expected A-00003 to be an account ID")
	}
	if IsAccountID("T-00003") {
		t.Error("task ID is not an account ID")
	}
	if IsFriendlyID("alice") {
		t.Error("slug is not a friendly ID")
	}
}
