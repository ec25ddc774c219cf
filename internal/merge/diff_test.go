package merge

import (
	"strings"
	"testing"
)

func TestOwnershipDiff(t *testing.T) {
	before := []string{
		"tracker.Task T-00001 owner=A-00002",
		"tracker.Task T-00002 owner=A-00001",
	}
	after := []string{
		"tracker.Task T-00001 owner=A-00001",
		"tracker.Task T-00002 owner=A-00001",
	}

	diff, err := OwnershipDiff(before, after)
	if err != nil {
		t.Fatalf("OwnershipDiff failed: %v", err)
	}
	if !strings.Contains(diff, "-tracker.Task T-00001 owner=A-00002\n") {
		t.Errorf("missing removal in diff:\n%s", diff)
	}
	if !strings.Contains(diff, "+tracker.Task T-00001 owner=A-00001\n") {
		t.Errorf("missing addition in diff:\n%s", diff)
	}
	if strings.Contains(diff, "T-00002") {
		t.Errorf("unchanged line leaked into diff:\n%s", diff)
	}

	same, err := OwnershipDiff(before, before)
	if err != nil {
		t.Fatalf("OwnershipDiff failed: %v", err)
	}
	if same != "" {
		t.Errorf("expected empty diff, got %q", same)
	}
}
