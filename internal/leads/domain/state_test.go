package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestClaimableStatuses(t *testing.T) {
	cases := map[Status]bool{
		StatusOpen:      true,
		StatusFull:      false,
		StatusQuoted:    true,
		StatusAccepted:  false,
		StatusExpired:   false,
		StatusCancelled: false,
	}
	for status, want := range cases {
		if got := Claimable(status); got != want {
			t.Fatalf("Claimable(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestQuotableFromOpenAndFullOnly(t *testing.T) {
	if !QuotableFrom(StatusOpen) || !QuotableFrom(StatusFull) {
		t.Fatal("expected open and full leads to accept quote submission")
	}
	if QuotableFrom(StatusAccepted) || QuotableFrom(StatusExpired) {
		t.Fatal("quote submission must never advance accepted or expired leads")
	}
}

func TestShouldExpireNeverOverridesAccepted(t *testing.T) {
	lead := &Lead{
		Status:    StatusAccepted,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if ShouldExpire(lead, time.Now()) {
		t.Fatal("accepted lead must not expire even past its outer bound")
	}
}

func TestShouldExpirePastOuterBound(t *testing.T) {
	now := time.Now()
	for _, status := range []Status{StatusOpen, StatusFull, StatusQuoted} {
		lead := &Lead{Status: status, ExpiresAt: now.Add(-time.Minute)}
		if !ShouldExpire(lead, now) {
			t.Fatalf("%s lead past expiresAt should expire", status)
		}
	}

	fresh := &Lead{Status: StatusOpen, ExpiresAt: now.Add(time.Hour)}
	if ShouldExpire(fresh, now) {
		t.Fatal("lead before expiresAt must not expire")
	}
}

func TestDirectWindowOpen(t *testing.T) {
	now := time.Now()
	within := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	pending := DirectPending
	accepted := DirectAccepted

	lead := &Lead{DirectStatus: &pending, DirectExpiresAt: &within}
	if !lead.DirectWindowOpen(now) {
		t.Fatal("pending direct lead inside window should be actionable")
	}

	lead = &Lead{DirectStatus: &pending, DirectExpiresAt: &past}
	if lead.DirectWindowOpen(now) {
		t.Fatal("pending direct lead past window must not be actionable")
	}

	lead = &Lead{DirectStatus: &accepted, DirectExpiresAt: &within}
	if lead.DirectWindowOpen(now) {
		t.Fatal("non-pending direct lead must not be actionable")
	}

	lead = &Lead{ID: uuid.New()}
	if lead.DirectWindowOpen(now) {
		t.Fatal("public lead has no direct window")
	}
}

func TestValidators(t *testing.T) {
	if !ValidUrgency(UrgencyEmergency) || ValidUrgency("immediately") {
		t.Fatal("urgency validation mismatch")
	}
	if !ValidBracket(BracketOver50K) || ValidBracket("priceless") {
		t.Fatal("bracket validation mismatch")
	}
}
