package slug

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already normal", input: "alice", want: "alice"},
		{name: "upper case", input: "Bob", want: "bob"},
		{name: "display name", input: "Mary Ann Smith", want: "mary-ann-smith"},
		{name: "underscores", input: "build_bot_2", want: "build-bot-2"},
		{name: "drops punctuation", input: "o'neil!", want: "oneil"},
		{name: "collapses separators", input: "a -- _ b", want: "a-b"},
		{name: "trims hyphens", input: "-ops-", want: "ops"},
		{name: "leading digit", input: "42nd", want: "42nd"},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "only symbols", input: "@#$", wantErr: true},
		{name: "too long", input: strings.Repeat("a", MaxLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"Alice", "Mary Ann", "x__y", "release-bot-v2"} {
		first, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		second, err := Normalize(first)
		if err != nil || second != first {
			t.Errorf("Normalize(%q) not idempotent: %q then %q (%v)", in, first, second, err)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := []string{"alice", "a", "ci-bot", "0day", strings.Repeat("z", MaxLen)}
	for _, s := range valid {
		if err := Validate(s); err != nil {
			t.Errorf("Validate(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "Alice", "-lead", "has space", "under_score", strings.Repeat("z", MaxLen+1)}
	for _, s := range invalid {
		if err := Validate(s); err == nil {
			t.Errorf("Validate(%q) expected error", s)
		}
	}
}
