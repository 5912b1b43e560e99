package models

import "testing"

func TestValidCheckinTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{CheckinStatusPending, CheckinStatusCompleted, true},
		{CheckinStatusPending, CheckinStatusRejected, true},
		{CheckinStatusCompleted, CheckinStatusRejected, false},
		{CheckinStatusCompleted, CheckinStatusPending, false},
		{CheckinStatusRejected, CheckinStatusCompleted, false},
		{CheckinStatusPending, CheckinStatusPending, false},
	}
	for _, tc := range cases {
		if got := ValidCheckinTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidCheckinTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCheckinUnit(t *testing.T) {
	if got := (CheckinRecord{Quantity: 0}).Unit(); got != 1 {
		t.Errorf("unset quantity: got %d, want 1", got)
	}
	if got := (CheckinRecord{Quantity: -3}).Unit(); got != 1 {
		t.Errorf("negative quantity: got %d, want 1", got)
	}
	if got := (CheckinRecord{Quantity: 4}).Unit(); got != 4 {
		t.Errorf("set quantity: got %d, want 4", got)
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	terminal := []string{RequestStatusCompleted, RequestStatusCancelled, RequestStatusRejected}
	for _, s := range terminal {
		if !RequestStatusTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	open := []string{RequestStatusNew, RequestStatusPending, RequestStatusApproved,
		RequestStatusCheckedOut, RequestStatusPartiallyReturned, RequestStatusOverdue}
	for _, s := range open {
		if RequestStatusTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
