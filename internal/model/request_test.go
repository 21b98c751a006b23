package model

import "testing"

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from string
		to   string
		ok   bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusDraft, StatusCancelled, true},
		{StatusDraft, StatusApproved, false},
		{StatusSubmitted, StatusVerified, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusSubmitted, StatusCancelled, true},
		{StatusSubmitted, StatusApproved, false},
		{StatusVerified, StatusApproved, true},
		{StatusVerified, StatusRejected, true},
		{StatusVerified, StatusCancelled, false},
		{StatusApproved, StatusInProcurement, true},
		{StatusApproved, StatusReady, true},
		{StatusApproved, StatusCancelled, false},
		{StatusInProcurement, StatusReady, true},
		{StatusReady, StatusCompleted, true},
		{StatusCompleted, StatusDraft, false},
		{StatusCancelled, StatusSubmitted, false},
		{StatusRejected, StatusSubmitted, false},
	}
	for _, tc := range cases {
		r := Request{Status: tc.from}
		if got := r.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []string{StatusCompleted, StatusCancelled, StatusRejected}
	for _, s := range terminal {
		if !(&Request{Status: s}).IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []string{StatusDraft, StatusSubmitted, StatusVerified, StatusApproved, StatusInProcurement, StatusReady}
	for _, s := range active {
		if (&Request{Status: s}).IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
