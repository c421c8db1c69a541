package auth

import (
	"testing"
	"time"
)

func TestParseRole_Verbatim(t *testing.T) {
	r, ok := ParseRole("admin")
	if !ok || r != RoleAdmin || string(r) != "admin" {
		t.Fatalf("expected admin to round-trip verbatim, got %q ok=%v", r, ok)
	}
	if _, ok := ParseRole("Admin"); ok {
		t.Fatalf("did not expect case-folded role to parse")
	}
	if _, ok := ParseRole("department_head "); ok {
		t.Fatalf("did not expect padded role to parse")
	}
	for _, role := range AllRoles() {
		if !role.Valid() {
			t.Fatalf("expected %q to be valid", role)
		}
	}
}

func TestRoleSet_Contains(t *testing.T) {
	set := Roles(RoleAdmin, RoleDepartmentHead)
	if !set.Contains(RoleAdmin) || !set.Contains(RoleDepartmentHead) {
		t.Fatalf("expected members to be found")
	}
	if set.Contains(RoleCitizen) {
		t.Fatalf("did not expect citizen")
	}
	if !Roles().Empty() || set.Empty() {
		t.Fatalf("unexpected emptiness")
	}
	if got := set.Strings(); len(got) != 2 || got[0] != "admin" {
		t.Fatalf("unexpected strings: %v", got)
	}
}

func TestSession_CompleteAndExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Session{
		ID:        "sid",
		UserID:    "u-1",
		Email:     "priya@example.com",
		Role:      RoleCitizen,
		ExpiresAt: now.Add(time.Hour),
	}
	if !s.Complete() || !s.Usable(now) {
		t.Fatalf("expected usable session: %+v", s)
	}

	if !s.Expired(now.Add(time.Hour)) {
		t.Fatalf("expected session to be expired exactly at expiry")
	}
	if s.Usable(now.Add(2 * time.Hour)) {
		t.Fatalf("expired session must not be usable")
	}

	partial := s
	partial.Role = "superuser"
	if partial.Complete() {
		t.Fatalf("unknown role must make the record incomplete")
	}
	partial = s
	partial.Email = ""
	if partial.Complete() {
		t.Fatalf("missing email must make the record incomplete")
	}
}
