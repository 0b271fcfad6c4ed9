package booking

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatusTables_CoverEveryStatus(t *testing.T) {
	for _, s := range AllStatuses {
		if _, ok := statusInfo[s]; !ok {
			t.Fatalf("missing metadata for %s", s)
		}
		if _, ok := allowedTransitions[s]; !ok {
			t.Fatalf("missing transitions for %s", s)
		}
		if _, ok := roleAllowedTransitions[s]; !ok {
			t.Fatalf("missing role transitions for %s", s)
		}
	}
	if len(statusInfo) != len(AllStatuses) || len(allowedTransitions) != len(AllStatuses) {
		t.Fatalf("tables list statuses outside the enum")
	}
}

func TestIsValidStatusTransition_NoSelfLoops(t *testing.T) {
	for _, s := range AllStatuses {
		if IsValidStatusTransition(s, s) {
			t.Fatalf("%s -> %s should not be valid", s, s)
		}
	}
}

func TestIsValidStatusTransition_TerminalStatesHaveNoExits(t *testing.T) {
	for _, term := range []Status{StatusCompleted, StatusCancelled, StatusDenied} {
		if !IsTerminal(term) {
			t.Fatalf("expected %s terminal", term)
		}
		for _, to := range AllStatuses {
			if IsValidStatusTransition(term, to) {
				t.Fatalf("%s -> %s should not be valid", term, to)
			}
		}
	}
}

func TestIsValidStatusTransition_Table(t *testing.T) {
	want := map[Status][]Status{
		StatusPendingOwnerApproval: {StatusConfirmed, StatusDenied},
		StatusConfirmed:            {StatusActive, StatusCancelled},
		StatusActive:               {StatusCompleted, StatusCancelled},
	}
	for from, tos := range want {
		got := NextStatuses(from)
		if len(got) != len(tos) {
			t.Fatalf("%s: expected %v, got %v", from, tos, got)
		}
		for i := range tos {
			if got[i] != tos[i] {
				t.Fatalf("%s: expected %v, got %v", from, tos, got)
			}
		}
	}
	if IsValidStatusTransition(StatusPendingOwnerApproval, StatusCompleted) {
		t.Fatalf("pending must not jump straight to completed")
	}
}

func TestIsValidStatusTransition_PanicsOnUnknownFrom(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown status")
		}
	}()
	IsValidStatusTransition(Status("shipped"), StatusConfirmed)
}

func TestRequiresPayment_OnlyConfirmed(t *testing.T) {
	for _, s := range AllStatuses {
		if got := RequiresPayment(s); got != (s == StatusConfirmed) {
			t.Fatalf("RequiresPayment(%s) = %v", s, got)
		}
	}
}

func TestIsRefundEligible(t *testing.T) {
	eligible := map[Status]bool{
		StatusPendingOwnerApproval: true,
		StatusConfirmed:            true,
		StatusCancelled:            true,
		StatusDenied:               true,
	}
	for _, s := range AllStatuses {
		if got := IsRefundEligible(s); got != eligible[s] {
			t.Fatalf("IsRefundEligible(%s) = %v", s, got)
		}
	}
}

func TestStatusMessage_PicksAudience(t *testing.T) {
	if StatusMessage(StatusConfirmed, true) != statusInfo[StatusConfirmed].OwnerMessage {
		t.Fatalf("owner should get the owner message")
	}
	if StatusMessage(StatusConfirmed, false) != statusInfo[StatusConfirmed].RenterMessage {
		t.Fatalf("renter should get the renter message")
	}
	if StatusDisplay(StatusDenied) != "Denied by owner" {
		t.Fatalf("unexpected display %q", StatusDisplay(StatusDenied))
	}
}

func TestStatus_JSONRoundTrip(t *testing.T) {
	for _, s := range AllStatuses {
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %s: %v", s, err)
		}
		var got Status
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != s {
			t.Fatalf("round trip: expected %s, got %s", s, got)
		}
	}

	var s Status
	if err := json.Unmarshal([]byte(`"Confirmed"`), &s); err == nil {
		t.Fatalf("expected case-mismatched status to be rejected")
	}
}

func TestValidateTransition_OwnerLifecycle(t *testing.T) {
	steps := []Status{StatusConfirmed, StatusActive, StatusCompleted}
	cur := StatusPendingOwnerApproval
	for _, next := range steps {
		if err := ValidateTransition(cur, next, true, false); err != nil {
			t.Fatalf("%s -> %s: %v", cur, next, err)
		}
		cur = next
		if next == StatusConfirmed && !RequiresPayment(cur) {
			t.Fatalf("confirmed should require payment")
		}
	}
	err := ValidateTransition(cur, StatusCancelled, true, false)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from completed, got %v", err)
	}
}

func TestValidateTransition_RenterCannotConfirm(t *testing.T) {
	err := ValidateTransition(StatusPendingOwnerApproval, StatusConfirmed, false, true)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}

func TestValidateTransition_DeniedOnlyFromPending(t *testing.T) {
	err := ValidateTransition(StatusConfirmed, StatusDenied, true, false)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestValidateTransition_RoleRights(t *testing.T) {
	cases := []struct {
		from, to          Status
		isOwner, isRenter bool
		want              error
	}{
		{StatusConfirmed, StatusCancelled, false, true, nil},
		{StatusConfirmed, StatusActive, false, true, ErrAccessDenied},
		{StatusActive, StatusCancelled, false, true, ErrAccessDenied},
		{StatusActive, StatusCancelled, true, false, nil},
		{StatusPendingOwnerApproval, StatusCancelled, false, true, ErrInvalidTransition},
		{StatusPendingOwnerApproval, StatusDenied, false, false, ErrAccessDenied},
		{StatusPendingOwnerApproval, StatusConfirmed, true, true, nil},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to, tc.isOwner, tc.isRenter)
		if tc.want == nil && err != nil {
			t.Fatalf("%s -> %s (owner=%v renter=%v): unexpected %v", tc.from, tc.to, tc.isOwner, tc.isRenter, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s -> %s (owner=%v renter=%v): expected %v, got %v", tc.from, tc.to, tc.isOwner, tc.isRenter, tc.want, err)
		}
	}
}
