package model

import "testing"

func TestStudentCode(t *testing.T) {
	cases := map[int64]string{
		1:     "STU0001",
		42:    "STU0042",
		9999:  "STU9999",
		12345: "STU12345",
	}
	for id, expect := range cases {
		if got := StudentCode(id); got != expect {
			t.Fatalf("id %d: expected %s, got %s", id, expect, got)
		}
	}
}

func TestDisplayCodeFallsBack(t *testing.T) {
	record := StudentRecord{Account: Account{ID: 7}}
	if got := record.DisplayCode(); got != "STU0007" {
		t.Fatalf("expected derived code, got %s", got)
	}

	empty := ""
	record.StudentCode = &empty
	if got := record.DisplayCode(); got != "STU0007" {
		t.Fatalf("expected derived code for empty stored code, got %s", got)
	}

	stored := "LEGACY-1"
	record.StudentCode = &stored
	if got := record.DisplayCode(); got != "LEGACY-1" {
		t.Fatalf("expected stored code, got %s", got)
	}
}
