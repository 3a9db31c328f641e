package domain

import "testing"

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("candidate"); err != nil || r != RoleCandidate {
		t.Errorf("ParseRole(candidate) = %v, %v", r, err)
	}
	if r, err := ParseRole("interviewer"); err != nil || r != RoleInterviewer {
		t.Errorf("ParseRole(interviewer) = %v, %v", r, err)
	}
	if _, err := ParseRole("observer"); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := ParseRole(""); err == nil {
		t.Error("expected error for empty role")
	}
}

func TestRoleOfferer(t *testing.T) {
	if !RoleInterviewer.Offerer() {
		t.Error("interviewer must be the offerer")
	}
	if RoleCandidate.Offerer() {
		t.Error("candidate must not be the offerer")
	}
}

func TestRoleOther(t *testing.T) {
	if RoleInterviewer.Other() != RoleCandidate {
		t.Error("other side of interviewer must be candidate")
	}
	if RoleCandidate.Other() != RoleInterviewer {
		t.Error("other side of candidate must be interviewer")
	}
}
