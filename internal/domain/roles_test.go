package domain

import "testing"

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"teacher", "student"} {
		if _, err := ParseRole(valid); err != nil {
			t.Fatalf("parse %q: %v", valid, err)
		}
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatalf("expected unknown role rejected")
	}
}

func TestRoleCapabilities(t *testing.T) {
	if !RoleStudent.CanTakeQuizzes() || RoleStudent.CanManageRoster() {
		t.Fatalf("unexpected student capabilities")
	}
	if RoleTeacher.CanTakeQuizzes() || !RoleTeacher.CanManageRoster() {
		t.Fatalf("unexpected teacher capabilities")
	}
}
