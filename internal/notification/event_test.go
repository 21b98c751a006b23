package notification

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEventSubject_PerStatus(t *testing.T) {
	cases := []struct {
		toStatus string
		want     string
	}{
		{"SUBMITTED", "[REQ-2026-000001] Your request has been submitted"},
		{"VERIFIED", "[REQ-2026-000001] Your request has been verified"},
		{"APPROVED", "[REQ-2026-000001] Your request has been approved"},
		{"REJECTED", "[REQ-2026-000001] Your request was rejected"},
		{"IN_PROCUREMENT", "[REQ-2026-000001] Procurement has started"},
		{"READY", "[REQ-2026-000001] Items are ready for pickup"},
		{"COMPLETED", "[REQ-2026-000001] Request completed"},
		{"CANCELLED", "[REQ-2026-000001] Status updated: CANCELLED"},
	}
	for _, tc := range cases {
		e := Event{RequestNumber: "REQ-2026-000001", ToStatus: tc.toStatus}
		if got := e.Subject(); got != tc.want {
			t.Errorf("Subject(%s) = %q, want %q", tc.toStatus, got, tc.want)
		}
	}
}

func TestEventBody_IncludesReasonWhenSet(t *testing.T) {
	e := Event{
		RequestNumber: "REQ-2026-000002",
		Title:         "office chairs",
		FromStatus:    "VERIFIED",
		ToStatus:      "REJECTED",
		ActorName:     "Manager",
		Reason:        "out of budget",
	}
	body := e.Body()
	if !strings.Contains(body, "VERIFIED -> REJECTED") {
		t.Errorf("body missing transition: %q", body)
	}
	if !strings.Contains(body, "Reason: out of budget") {
		t.Errorf("body missing reason: %q", body)
	}

	e.Reason = ""
	if strings.Contains(e.Body(), "Reason:") {
		t.Error("body should omit reason line when empty")
	}
}

func TestEventJSON_OmitsEmptyOptionalFields(t *testing.T) {
	e := Event{RequestNumber: "REQ-2026-000003", ToStatus: "SUBMITTED", OccurredAt: time.Now()}
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "reason") {
		t.Errorf("empty reason serialized: %s", raw)
	}
	if strings.Contains(string(raw), "requester_email") {
		t.Errorf("empty requester email serialized: %s", raw)
	}
}

func TestRetryBackoff_Schedule(t *testing.T) {
	want := []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}
	if len(retryBackoff) != len(want) {
		t.Fatalf("retryBackoff has %d entries, want %d", len(retryBackoff), len(want))
	}
	for i, d := range want {
		if retryBackoff[i] != d {
			t.Errorf("retryBackoff[%d] = %v, want %v", i, retryBackoff[i], d)
		}
	}
}
