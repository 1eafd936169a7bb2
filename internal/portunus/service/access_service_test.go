package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// assignedCard creates a user and a card bound to them.
func assignedCard(t *testing.T, f *fixture, uid string, active bool) types.User {
	t.Helper()
	ctx := context.Background()

	u, err := f.users.Create(ctx, types.UserInput{Name: strPtr("Ada"), IsActive: boolPtr(active)})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := f.store.PutCard(ctx, types.Card{
		CardID: "C-" + uid, CardUID: uid, UserID: u.ID, Status: types.CardActive,
	}); err != nil {
		t.Fatalf("put card: %v", err)
	}
	return u
}

// ── Decisions ────────────────────────────────────────────────────────────────

func TestDecide_AllowAll_RecordsGrantEntry(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{AllowAll: true})

	resp, err := f.access.Decide(context.Background(), types.AccessRequest{
		DeviceID: "door-001",
		CardUID:  "AABBCCDD",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !resp.Granted || resp.Reason != service.ReasonAllowAll {
		t.Errorf("expected allow_all grant, got %+v", resp)
	}

	entries := f.logs.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.DeviceID != "door-001" {
		t.Errorf("expected device_id=door-001, got %q", e.DeviceID)
	}
	if e.DoorID != "door_main" {
		t.Errorf("expected door_id=door_main, got %q", e.DoorID)
	}
	if e.Result != types.ResultGranted {
		t.Error("expected result=granted")
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Error("expected id and timestamp to be set")
	}
}

func TestDecide_AssignedActiveUser_Granted(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	u := assignedCard(t, f, "AABBCCDD", true)

	resp, err := f.access.Decide(context.Background(), types.AccessRequest{
		DeviceID: "door-001",
		CardUID:  "aabbccdd",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !resp.Granted || resp.Reason != service.ReasonCardAllowed {
		t.Fatalf("expected card_allowed grant, got %+v", resp)
	}

	e := f.logs.Entries()[0]
	if e.UserID != u.ID || e.UserName != "Ada" {
		t.Errorf("expected entry attributed to %s, got %+v", u.ID, e)
	}
}

func TestDecide_InactiveUser_Denied(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	assignedCard(t, f, "AABBCCDD", false)

	resp, _ := f.access.Decide(context.Background(), types.AccessRequest{DeviceID: "door-001", CardUID: "AABBCCDD"})
	if resp.Granted || resp.Reason != service.ReasonUserInactive {
		t.Errorf("expected user_inactive denial, got %+v", resp)
	}
}

func TestDecide_RevokedCard_Denied(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	assignedCard(t, f, "AABBCCDD", true)
	if _, err := f.cards.Revoke(context.Background(), "C-AABBCCDD", "lost"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	resp, _ := f.access.Decide(context.Background(), types.AccessRequest{DeviceID: "door-001", CardUID: "AABBCCDD"})
	if resp.Granted || resp.Reason != service.ReasonCardRevoked {
		t.Errorf("expected card_revoked denial, got %+v", resp)
	}
}

func TestDecide_UnseenCard_EnrolledPending(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	ctx := context.Background()

	resp, err := f.access.Decide(ctx, types.AccessRequest{DeviceID: "door-001", CardUID: "04A1B2C3"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Granted || resp.Reason != service.ReasonCardNotAssigned {
		t.Errorf("expected card_not_assigned denial, got %+v", resp)
	}

	card, err := f.store.CardByUID(ctx, "04A1B2C3")
	if err != nil {
		t.Fatalf("expected card to be enrolled: %v", err)
	}
	if !card.Pending() {
		t.Errorf("expected pending card, got %+v", card)
	}

	// A second tap must not enroll a duplicate.
	_, _ = f.access.Decide(ctx, types.AccessRequest{DeviceID: "door-001", CardUID: "04A1B2C3"})
	cards, _ := f.store.ListCards(ctx)
	if len(cards) != 1 {
		t.Errorf("expected 1 card, got %d", len(cards))
	}
}

func TestDecide_UnknownDevice_RecordsDenyEntry(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{AllowAll: true})

	resp, err := f.access.Decide(context.Background(), types.AccessRequest{
		DeviceID: "rogue-device",
		CardUID:  "AABBCCDD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Known {
		t.Error("expected known=false for unknown device")
	}
	if resp.Granted {
		t.Error("expected granted=false for unknown device")
	}

	entries := f.logs.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry even for unknown device, got %d", len(entries))
	}
	if entries[0].Reason != service.ReasonUnknownDevice {
		t.Errorf("expected reason=unknown_device, got %q", entries[0].Reason)
	}
}

func TestDecide_PublishesAccessLog(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{AllowAll: true})

	_, _ = f.access.Decide(context.Background(), types.AccessRequest{DeviceID: "door-001", CardUID: "AABBCCDD"})

	events := f.pub.ofType(types.EventAccessLog)
	if len(events) != 1 {
		t.Fatalf("expected 1 access_log event, got %d", len(events))
	}
	var e types.AccessLogEntry
	if err := json.Unmarshal(events[0].Data, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.CardUID != "AABBCCDD" || e.Result != types.ResultGranted {
		t.Errorf("unexpected published entry: %+v", e)
	}
}

func TestDecide_RequestedAtParsed(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{AllowAll: true})

	_, err := f.access.Decide(context.Background(), types.AccessRequest{
		DeviceID:    "door-001",
		CardUID:     "AABBCCDD",
		RequestedAt: "2026-02-15T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	ts := f.logs.Entries()[0].Timestamp
	if ts.Year() != 2026 || ts.Month() != 2 || ts.Day() != 15 {
		t.Errorf("unexpected parsed time: %v", ts)
	}
}

func TestDecide_MultipleDecisions_AllRecorded(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{AllowAll: true})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = f.access.Decide(ctx, types.AccessRequest{
			DeviceID: "door-001",
			CardUID:  "AABBCCDD",
		})
	}

	if n := len(f.logs.Entries()); n != 5 {
		t.Errorf("expected 5 entries, got %d", n)
	}
}

// ── Validation (no entry should be recorded) ─────────────────────────────────

func TestDecide_MissingDeviceID_NoEntryRecorded(t *testing.T) {
	f := newFixture(nil, service.AccessPolicy{})

	_, err := f.access.Decide(context.Background(), types.AccessRequest{
		CardUID: "AABBCCDD",
	})
	if !errors.Is(err, service.ErrInvalidDeviceID) {
		t.Fatalf("expected ErrInvalidDeviceID, got %v", err)
	}

	if len(f.logs.Entries()) != 0 {
		t.Error("expected no entry for validation failure")
	}
}

func TestDecide_MissingCardUID_NoEntryRecorded(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})

	_, err := f.access.Decide(context.Background(), types.AccessRequest{
		DeviceID: "door-001",
	})
	if !errors.Is(err, service.ErrInvalidCardID) {
		t.Fatalf("expected ErrInvalidCardID, got %v", err)
	}

	if len(f.logs.Entries()) != 0 {
		t.Error("expected no entry for validation failure")
	}
}

// ── Stats ────────────────────────────────────────────────────────────────────

func TestStats_Periods(t *testing.T) {
	f := newFixture([]string{"door-001"}, service.AccessPolicy{})
	ctx := context.Background()
	now := time.Now().UTC()

	for _, e := range []types.AccessLogEntry{
		{ID: "1", Result: types.ResultGranted, Timestamp: types.NewTimestamp(now)},
		{ID: "2", Result: types.ResultDenied, Timestamp: types.NewTimestamp(now)},
		{ID: "3", Result: types.ResultGranted, Timestamp: types.NewTimestamp(now.AddDate(0, 0, -3))},
		{ID: "4", Result: types.ResultGranted, Timestamp: types.NewTimestamp(now.AddDate(0, 0, -20))},
	} {
		if err := f.logs.RecordEntry(ctx, e); err != nil {
			t.Fatalf("RecordEntry: %v", err)
		}
	}

	cases := []struct {
		period  string
		granted int
		denied  int
	}{
		{"today", 1, 1},
		{"week", 2, 1},
		{"month", 3, 1},
	}
	for _, tc := range cases {
		st, err := f.access.Stats(ctx, tc.period, now)
		if err != nil {
			t.Fatalf("Stats(%s): %v", tc.period, err)
		}
		if st.Granted != tc.granted || st.Denied != tc.denied || st.TotalAccess != tc.granted+tc.denied {
			t.Errorf("Stats(%s) = %+v", tc.period, st)
		}
	}

	if _, err := f.access.Stats(ctx, "decade", now); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown period, got %v", err)
	}
}
