package rbac

import "testing"

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "quiz:view-structure", true},
		{"student", "quiz:edit-structure", false},
		{"teacher", "quiz:edit-structure", true},
		{"teacher", "section:edit-meta", true},
		{"admin", "quiz:edit-structure", true},
		{"admin", "anything:at-all", true},
		{"ghost", "quiz:view-structure", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q,%q)=%v want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestMatchPermWildcard(t *testing.T) {
	if !matchPerm("quiz:*", "quiz:edit-structure") {
		t.Error("prefix wildcard should match")
	}
	if matchPerm("quiz:*", "section:edit-meta") {
		t.Error("prefix wildcard must not match other prefixes")
	}
}

func TestAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("student", "quiz:edit-structure", "quiz:view-structure") {
		t.Error("Any should pass when one permission matches")
	}
	if c.Any("student", "quiz:edit-structure", "quiz:edit-marks") {
		t.Error("Any should fail when none match")
	}
}
