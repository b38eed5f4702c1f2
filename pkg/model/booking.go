package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusRejected   = "rejected"
	StatusInProgress = "inProgress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	ServiceShared  = "shared"
	ServicePrivate = "private"
)

const (
	JourneyOutbound  = "outbound"
	JourneyInbound   = "inbound"
	JourneyRoundTrip = "roundTrip"
)

const (
	PaymentCard     = "card"
	PaymentCash     = "cash"
	PaymentInvoice  = "invoice"
	PaymentPaid     = "paid"
	PaymentTransfer = "transfer"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusCancelled = "cancelled"
)

const (
	EarningsPending = "pending"
	EarningsPaid    = "paid"
)

type PricePair struct {
	SharedPrice  float64 `json:"shared_price" bson:"shared_price" validate:"min=0"`
	PrivatePrice float64 `json:"private_price" bson:"private_price" validate:"min=0"`
}

// Select returns the price field the service type makes authoritative.
func (p PricePair) Select(serviceType string) float64 {
	if serviceType == ServicePrivate {
		return p.PrivatePrice
	}
	return p.SharedPrice
}

type Address struct {
	Street     string `json:"street" bson:"street" validate:"required,min=2,max=100"`
	Number     string `json:"number" bson:"number" validate:"required,max=10"`
	PostalCode string `json:"postal_code" bson:"postal_code" validate:"required,postal_code"`
	City       string `json:"city" bson:"city" validate:"required,min=2,max=50"`
	Locality   string `json:"locality,omitempty" bson:"locality,omitempty" validate:"omitempty,max=100"`
}

type Client struct {
	FirstName string  `json:"first_name" bson:"first_name" validate:"required,min=2,max=50"`
	LastName  string  `json:"last_name" bson:"last_name" validate:"required,min=2,max=50"`
	Email     string  `json:"email" bson:"email" validate:"required,simple_email"`
	Phone     string  `json:"phone" bson:"phone" validate:"required,min=6,max=20"`
	Address   Address `json:"address" bson:"address" validate:"required"`
}

func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

type Leg struct {
	Date         *time.Time `json:"date,omitempty" bson:"date,omitempty"`
	Time         string     `json:"time,omitempty" bson:"time,omitempty" validate:"omitempty,hhmm"`
	Airport      string     `json:"airport,omitempty" bson:"airport,omitempty" validate:"omitempty,min=3,max=50"`
	FlightNumber string     `json:"flight_number,omitempty" bson:"flight_number,omitempty" validate:"omitempty,max=10"`
	Price        *PricePair `json:"price,omitempty" bson:"price,omitempty"`
	PickupTime   string     `json:"pickup_time,omitempty" bson:"pickup_time,omitempty" validate:"omitempty,hhmm"`
}

type Journey struct {
	Type     string `json:"type" bson:"type" validate:"required,oneof=outbound inbound roundTrip"`
	Outbound *Leg   `json:"outbound,omitempty" bson:"outbound,omitempty"`
	Inbound  *Leg   `json:"inbound,omitempty" bson:"inbound,omitempty"`
}

type Options struct {
	Luggage      int    `json:"luggage" bson:"luggage" validate:"min=0,max=12"`
	ChildSeats   int    `json:"child_seats" bson:"child_seats" validate:"min=0,max=2"`
	BoosterSeats int    `json:"booster_seats" bson:"booster_seats" validate:"min=0,max=2"`
	Other        string `json:"other,omitempty" bson:"other,omitempty" validate:"omitempty,max=500"`
}

type Booking struct {
	ID                   string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingReference     string     `json:"booking_reference" bson:"booking_reference"`
	Client               Client     `json:"client" bson:"client" validate:"required"`
	Journey              Journey    `json:"journey" bson:"journey" validate:"required"`
	Passengers           int        `json:"passengers" bson:"passengers" validate:"required,min=1,max=8"`
	ServiceType          string     `json:"service_type" bson:"service_type" validate:"required,oneof=shared private"`
	Price                PricePair  `json:"price" bson:"price"`
	Options              Options    `json:"options" bson:"options"`
	Status               string     `json:"status" bson:"status" validate:"omitempty,oneof=pending confirmed rejected completed cancelled inProgress"`
	PaymentMethod        string     `json:"payment_method" bson:"payment_method" validate:"required,oneof=card cash invoice paid transfer"`
	PaymentStatus        string     `json:"payment_status" bson:"payment_status" validate:"omitempty,oneof=pending paid refunded cancelled"`
	DriverID             string     `json:"driver_id,omitempty" bson:"driver_id,omitempty" validate:"omitempty,mongodb"`
	DriverEarnings       *float64   `json:"driver_earnings,omitempty" bson:"driver_earnings,omitempty" validate:"omitempty,min=0"`
	DriverEarningsStatus string     `json:"driver_earnings_status" bson:"driver_earnings_status" validate:"omitempty,oneof=pending paid"`
	Rating               *int       `json:"rating,omitempty" bson:"rating,omitempty" validate:"omitempty,min=1,max=10"`
	Comment              string     `json:"comment,omitempty" bson:"comment,omitempty" validate:"omitempty,max=500"`
	BookingGroupID       string     `json:"booking_group_id,omitempty" bson:"booking_group_id,omitempty"`
	VATNumber            string     `json:"vat_number,omitempty" bson:"vat_number,omitempty" validate:"omitempty,max=30"`
	ReferralSource       string     `json:"referral_source,omitempty" bson:"referral_source,omitempty" validate:"omitempty,max=100"`
	CreatedAt            time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// SelectedPrice returns the total price the booking's service type selects.
func (b *Booking) SelectedPrice() float64 {
	return b.Price.Select(b.ServiceType)
}

// Earnings returns the stored driver earnings, or zero when unset.
func (b *Booking) Earnings() float64 {
	if b.DriverEarnings == nil {
		return 0
	}
	return *b.DriverEarnings
}

// EnsureEarnings computes driver earnings as share x selected price when
// no value has been supplied. An explicit value, including zero, wins.
func (b *Booking) EnsureEarnings(share float64) {
	if b.DriverEarnings != nil {
		return
	}
	earnings := share * b.SelectedPrice()
	b.DriverEarnings = &earnings
}

// EnsureReference assigns a booking reference once. References already
// present are never overwritten.
func (b *Booking) EnsureReference(prefix string) {
	if b.BookingReference != "" {
		return
	}
	b.BookingReference = NewBookingReference(prefix)
}

// NewBookingReference builds a reference of the form
// PREFIX-<timestamp6>-<random6hex>.
func NewBookingReference(prefix string) string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}

	buf := make([]byte, 3)
	rand.Read(buf)

	return fmt.Sprintf("%s-%s-%s", prefix, ts, strings.ToUpper(hex.EncodeToString(buf)))
}

// OutboundDate returns the outbound leg date, the anchor used by the
// week/month earnings partitions.
func (b *Booking) OutboundDate() *time.Time {
	if b.Journey.Outbound == nil {
		return nil
	}
	return b.Journey.Outbound.Date
}

// LegDate returns the outbound leg date when present, otherwise the
// inbound leg date.
func (b *Booking) LegDate() *time.Time {
	if d := b.OutboundDate(); d != nil {
		return d
	}
	if b.Journey.Inbound == nil {
		return nil
	}
	return b.Journey.Inbound.Date
}

// ClientSafe is the masked client projection exposed to drivers and
// emitted on booking events.
type ClientSafe struct {
	DisplayName string `json:"display_name"`
	City        string `json:"city"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// SafeClient masks client contact details: first name with last-name
// initial, partially hidden email and phone.
func (b *Booking) SafeClient() ClientSafe {
	safe := ClientSafe{
		DisplayName: b.Client.FirstName,
		City:        b.Client.Address.City,
		Email:       maskEmail(b.Client.Email),
		Phone:       maskPhone(b.Client.Phone),
	}

	if b.Client.LastName != "" {
		safe.DisplayName = fmt.Sprintf("%s %s.", b.Client.FirstName, strings.ToUpper(b.Client.LastName[:1]))
	}

	return safe
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
