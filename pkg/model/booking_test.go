package model

import (
	"regexp"
	"testing"
	"time"
)

func TestNewBookingReference_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^SPE-\d{1,6}-[0-9A-F]{6}$`)

	ref := NewBookingReference("SPE")
	if !pattern.MatchString(ref) {
		t.Errorf("reference %q does not match expected format", ref)
	}
}

func TestNewBookingReference_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := NewBookingReference("SPE")
		if seen[ref] {
			t.Fatalf("duplicate reference generated: %s", ref)
		}
		seen[ref] = true
	}
}

func TestEnsureReference_Immutable(t *testing.T) {
	b := &Booking{BookingReference: "SPE-123456-ABCDEF"}
	b.EnsureReference("SPE")

	if b.BookingReference != "SPE-123456-ABCDEF" {
		t.Errorf("existing reference was overwritten: %s", b.BookingReference)
	}

	empty := &Booking{}
	empty.EnsureReference("SPE")
	if empty.BookingReference == "" {
		t.Error("expected reference to be assigned")
	}
}

func TestEnsureEarnings(t *testing.T) {
	explicit := 15.0

	tests := []struct {
		name     string
		booking  *Booking
		share    float64
		expected float64
	}{
		{
			name: "shared service uses shared price",
			booking: &Booking{
				ServiceType: ServiceShared,
				Price:       PricePair{SharedPrice: 50, PrivatePrice: 100},
			},
			share:    0.7,
			expected: 35,
		},
		{
			name: "private service uses private price",
			booking: &Booking{
				ServiceType: ServicePrivate,
				Price:       PricePair{SharedPrice: 50, PrivatePrice: 100},
			},
			share:    0.7,
			expected: 70,
		},
		{
			name: "explicit earnings win",
			booking: &Booking{
				ServiceType:    ServicePrivate,
				Price:          PricePair{PrivatePrice: 100},
				DriverEarnings: &explicit,
			},
			share:    0.7,
			expected: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.booking.EnsureEarnings(tt.share)
			if got := tt.booking.Earnings(); got != tt.expected {
				t.Errorf("earnings = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusRejected, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{"bogus", StatusPending, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestIsTerminalStatus(t *testing.T) {
	for _, s := range []string{StatusCompleted, StatusRejected, StatusCancelled} {
		if !IsTerminalStatus(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []string{StatusPending, StatusConfirmed, StatusInProgress} {
		if IsTerminalStatus(s) {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestSafeClient_Masking(t *testing.T) {
	b := &Booking{
		Client: Client{
			FirstName: "Marie",
			LastName:  "Dupont",
			Email:     "marie.dupont@example.com",
			Phone:     "+41791234567",
			Address:   Address{City: "Geneva"},
		},
	}

	safe := b.SafeClient()

	if safe.DisplayName != "Marie D." {
		t.Errorf("display name = %q, want %q", safe.DisplayName, "Marie D.")
	}
	if safe.Email != "m***@example.com" {
		t.Errorf("masked email = %q", safe.Email)
	}
	if safe.Phone != "********4567" {
		t.Errorf("masked phone = %q", safe.Phone)
	}
	if safe.City != "Geneva" {
		t.Errorf("city = %q, want Geneva", safe.City)
	}
}

func TestLegDate_Fallback(t *testing.T) {
	out := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	in := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)

	withBoth := &Booking{Journey: Journey{
		Outbound: &Leg{Date: &out},
		Inbound:  &Leg{Date: &in},
	}}
	if d := withBoth.LegDate(); d == nil || !d.Equal(out) {
		t.Errorf("expected outbound date to win, got %v", d)
	}

	inboundOnly := &Booking{Journey: Journey{Inbound: &Leg{Date: &in}}}
	if d := inboundOnly.LegDate(); d == nil || !d.Equal(in) {
		t.Errorf("expected inbound fallback, got %v", d)
	}

	if (&Booking{}).LegDate() != nil {
		t.Error("expected nil date for booking without legs")
	}

	if (&Booking{}).OutboundDate() != nil {
		t.Error("expected nil outbound date for booking without legs")
	}
}

func TestPricePair_Select(t *testing.T) {
	p := PricePair{SharedPrice: 40, PrivatePrice: 90}

	if got := p.Select(ServiceShared); got != 40 {
		t.Errorf("shared select = %v", got)
	}
	if got := p.Select(ServicePrivate); got != 90 {
		t.Errorf("private select = %v", got)
	}
	if got := p.Select(""); got != 40 {
		t.Errorf("default select = %v", got)
	}
}
