package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	bookingserrors "navette/internal/bookings/errors"
	"navette/internal/bookings/validator"
	"navette/pkg/config"
	mongotx "navette/pkg/db/mongo"
	apperrors "navette/pkg/errors"
	"navette/pkg/logger"
	"navette/pkg/model"
)

type fakeRepository struct {
	bookings map[string]*model.Booking
	nextID   int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{bookings: make(map[string]*model.Booking)}
}

func (r *fakeRepository) newID() string {
	r.nextID++
	return fmt.Sprintf("%024x", r.nextID)
}

func (r *fakeRepository) Create(ctx context.Context, b *model.Booking) error {
	b.ID = r.newID()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *fakeRepository) CreatePair(ctx context.Context, first, second *model.Booking) error {
	if err := r.Create(ctx, first); err != nil {
		return err
	}
	return r.Create(ctx, second)
}

func (r *fakeRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if len(id) != 24 {
		return nil, bookingserrors.ErrInvalidID
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *fakeRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	out := []*model.Booking{}
	for _, b := range r.bookings {
		if status != "" && b.Status != status {
			continue
		}
		clone := *b
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRepository) Count(ctx context.Context, status string) (int64, error) {
	found, _ := r.FindAll(ctx, status, 0, 0)
	return int64(len(found)), nil
}

func (r *fakeRepository) FindByGroup(ctx context.Context, groupID string) ([]*model.Booking, error) {
	out := []*model.Booking{}
	for _, b := range r.bookings {
		if b.BookingGroupID == groupID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRepository) FindByDriver(ctx context.Context, driverID string, statuses []string) ([]*model.Booking, error) {
	out := []*model.Booking{}
	for _, b := range r.bookings {
		if b.DriverID != driverID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, b.Status) {
			continue
		}
		clone := *b
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRepository) FindOwnedActive(ctx context.Context, id, driverID string) (*model.Booking, error) {
	b, ok := r.bookings[id]
	if !ok || b.DriverID != driverID || b.Status == model.StatusCompleted {
		return nil, bookingserrors.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *fakeRepository) FindCompletedInRange(ctx context.Context, driverID string, from, to time.Time) ([]*model.Booking, error) {
	out := []*model.Booking{}
	for _, b := range r.bookings {
		if b.DriverID != driverID || b.Status != model.StatusCompleted || b.CompletedAt == nil {
			continue
		}
		if b.CompletedAt.Before(from) || b.CompletedAt.After(to) {
			continue
		}
		clone := *b
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRepository) UpdateFields(ctx context.Context, id string, fields bson.M) (*model.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}

	for key, value := range fields {
		switch key {
		case "status":
			b.Status = value.(string)
		case "driver_id":
			b.DriverID = value.(string)
		case "completed_at":
			t := value.(time.Time)
			b.CompletedAt = &t
		case "rating":
			n := value.(int)
			b.Rating = &n
		case "comment":
			b.Comment = value.(string)
		case "journey.outbound.pickup_time":
			if b.Journey.Outbound != nil {
				b.Journey.Outbound.PickupTime = value.(string)
			}
		case "driver_earnings":
			f := value.(float64)
			b.DriverEarnings = &f
		case "driver_earnings_status":
			b.DriverEarningsStatus = value.(string)
		case "updated_at":
			b.UpdatedAt = value.(time.Time)
		}
	}

	clone := *b
	return &clone, nil
}

func (r *fakeRepository) Delete(ctx context.Context, id string) error {
	if _, ok := r.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *fakeRepository) CountByDriverAndStatuses(ctx context.Context, driverID string, statuses []string) (int64, error) {
	found, _ := r.FindByDriver(ctx, driverID, statuses)
	return int64(len(found)), nil
}

func (r *fakeRepository) TotalCompletedEarnings(ctx context.Context, driverID string) (float64, error) {
	var total float64
	for _, b := range r.bookings {
		if b.DriverID == driverID && b.Status == model.StatusCompleted {
			total += b.Earnings()
		}
	}
	return total, nil
}

func (r *fakeRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (r *fakeRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeNotifier struct {
	received  []string
	confirmed []string
	rejected  []string
	reviews   []string
	fail      bool
}

func (n *fakeNotifier) BookingReceived(b *model.Booking) error {
	n.received = append(n.received, b.BookingReference)
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

func (n *fakeNotifier) BookingConfirmed(b *model.Booking) error {
	n.confirmed = append(n.confirmed, b.BookingReference)
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

func (n *fakeNotifier) BookingRejected(b *model.Booking) error {
	n.rejected = append(n.rejected, b.BookingReference)
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

func (n *fakeNotifier) ReviewRequest(b *model.Booking) error {
	n.reviews = append(n.reviews, b.BookingReference)
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

type fakePublisher struct {
	published []string
}

func (p *fakePublisher) PublishBooking(ctx context.Context, eventType string, b *model.Booking) error {
	p.published = append(p.published, eventType)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeStatsUpdater struct {
	rating         float64
	completedRides int
	totalRides     int
	earningsTotal  float64
}

func (u *fakeStatsUpdater) UpdateRatingStats(ctx context.Context, driverID string, rating float64, completedRides, totalRides int) error {
	u.rating = rating
	u.completedRides = completedRides
	u.totalRides = totalRides
	return nil
}

func (u *fakeStatsUpdater) IncrementEarnings(ctx context.Context, driverID string, amount float64) error {
	u.earningsTotal += amount
	return nil
}

type fixture struct {
	svc      BookingService
	repo     *fakeRepository
	notifier *fakeNotifier
	events   *fakePublisher
	stats    *fakeStatsUpdater
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bv, err := validator.NewBookingValidator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	cfg := &config.Config{
		BookingRefPrefix:    "SPE",
		DriverEarningsShare: 0.7,
		Log:                 logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}

	f := &fixture{
		repo:     newFakeRepository(),
		notifier: &fakeNotifier{},
		events:   &fakePublisher{},
		stats:    &fakeStatsUpdater{},
	}
	f.svc = NewBookingService(f.repo, bv, cfg, f.notifier, f.events, f.stats)
	return f
}

func testBooking() *model.Booking {
	date := time.Now().UTC().AddDate(0, 0, 7)

	return &model.Booking{
		Client: model.Client{
			FirstName: "Marie",
			LastName:  "Dupont",
			Email:     "Marie@Example.com",
			Phone:     "+41791234567",
			Address: model.Address{
				Street:     "Rue du Rhone",
				Number:     "12",
				PostalCode: "1204",
				City:       "Geneva",
			},
		},
		Journey: model.Journey{
			Type: model.JourneyOutbound,
			Outbound: &model.Leg{
				Date:    &date,
				Time:    "14:30",
				Airport: "GVA",
			},
		},
		Passengers:    2,
		ServiceType:   model.ServicePrivate,
		Price:         model.PricePair{SharedPrice: 60, PrivatePrice: 100},
		PaymentMethod: model.PaymentCash,
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	if b.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}
	if b.Earnings() != 70 {
		t.Errorf("earnings = %v, want 70", b.Earnings())
	}
	if !regexp.MustCompile(`^SPE-\d{1,6}-[0-9A-F]{6}$`).MatchString(b.BookingReference) {
		t.Errorf("reference = %q", b.BookingReference)
	}
	if b.Client.Email != "marie@example.com" {
		t.Errorf("email not normalized: %q", b.Client.Email)
	}
	if len(f.notifier.received) != 1 {
		t.Errorf("admin notifications = %d, want 1", len(f.notifier.received))
	}
	if len(f.events.published) != 1 || f.events.published[0] != "booking.created" {
		t.Errorf("events = %v", f.events.published)
	}
}

func TestCreate_NotificationFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true

	if err := f.svc.Create(context.Background(), testBooking()); err != nil {
		t.Fatalf("create should succeed despite notification failure: %v", err)
	}
}

func TestCreate_ValidationError(t *testing.T) {
	f := newFixture(t)

	b := testBooking()
	b.Journey.Outbound.Airport = ""

	err := f.svc.Create(context.Background(), b)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestCreateLinkedPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outbound := testBooking()

	inbound := testBooking()
	date := time.Now().UTC().AddDate(0, 0, 14)
	inbound.Journey = model.Journey{
		Type:    model.JourneyInbound,
		Inbound: &model.Leg{Date: &date, Time: "09:00", Airport: "GVA"},
	}

	if err := f.svc.CreateLinkedPair(ctx, outbound, inbound); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	if outbound.BookingGroupID == "" || outbound.BookingGroupID != inbound.BookingGroupID {
		t.Errorf("group ids: %q vs %q", outbound.BookingGroupID, inbound.BookingGroupID)
	}
	if outbound.BookingReference == inbound.BookingReference {
		t.Error("pair members must have distinct references")
	}

	linked, err := f.svc.GetLinked(ctx, outbound.BookingGroupID)
	if err != nil {
		t.Fatalf("get linked: %v", err)
	}
	if len(linked) != 2 {
		t.Errorf("linked count = %d, want 2", len(linked))
	}
}

func TestCreateLinkedPair_WrongJourneyTypes(t *testing.T) {
	f := newFixture(t)

	first := testBooking()
	second := testBooking()

	err := f.svc.CreateLinkedPair(context.Background(), first, second)
	if err == nil {
		t.Fatal("expected error for two outbound journeys")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := f.svc.Confirm(ctx, b.ID, "08:45")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if result.GroupID != "" {
		t.Error("unexpected grouped pointer")
	}
	if result.Booking.Status != model.StatusConfirmed {
		t.Errorf("status = %s", result.Booking.Status)
	}
	if result.Booking.Journey.Outbound.PickupTime != "08:45" {
		t.Errorf("pickup time = %q", result.Booking.Journey.Outbound.PickupTime)
	}
	if len(f.notifier.confirmed) != 1 {
		t.Errorf("confirmation emails = %d", len(f.notifier.confirmed))
	}
}

func TestConfirm_GroupedBookingReturnsPointerWithoutMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outbound := testBooking()
	inbound := testBooking()
	date := time.Now().UTC().AddDate(0, 0, 14)
	inbound.Journey = model.Journey{
		Type:    model.JourneyInbound,
		Inbound: &model.Leg{Date: &date, Time: "09:00", Airport: "GVA"},
	}
	if err := f.svc.CreateLinkedPair(ctx, outbound, inbound); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	result, err := f.svc.Confirm(ctx, outbound.ID, "08:00")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if result.GroupID != outbound.BookingGroupID {
		t.Errorf("group id = %q, want %q", result.GroupID, outbound.BookingGroupID)
	}
	if result.Booking != nil {
		t.Error("grouped confirm must not return a mutated booking")
	}

	stored, err := f.svc.GetByID(ctx, outbound.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != model.StatusPending {
		t.Errorf("grouped booking was mutated: status = %s", stored.Status)
	}
}

func TestConfirm_IllegalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, b.ID, ""); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	_, err := f.svc.Confirm(ctx, b.ID, "")
	if err == nil {
		t.Fatal("expected conflict on double confirm")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.SetStatus(ctx, b.ID, model.StatusRejected)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != model.StatusRejected {
		t.Errorf("status = %s", updated.Status)
	}
	if len(f.notifier.rejected) != 1 {
		t.Errorf("rejection emails = %d", len(f.notifier.rejected))
	}

	// rejected is terminal
	if _, err := f.svc.SetStatus(ctx, b.ID, model.StatusPending); err == nil {
		t.Fatal("expected conflict resurrecting a rejected booking")
	}
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetStatus(context.Background(), strings.Repeat("a", 24), "archived")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestAssignDriver_RequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.AssignDriver(ctx, b.ID, "665f1c2b8f1b2c3d4e5f6a7b"); err == nil {
		t.Fatal("expected conflict assigning driver to pending booking")
	}

	if _, err := f.svc.Confirm(ctx, b.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	updated, err := f.svc.AssignDriver(ctx, b.ID, "665f1c2b8f1b2c3d4e5f6a7b")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.Status != model.StatusInProgress {
		t.Errorf("status = %s", updated.Status)
	}
	if updated.DriverID != "665f1c2b8f1b2c3d4e5f6a7b" {
		t.Errorf("driver id = %s", updated.DriverID)
	}
}

func completeRide(t *testing.T, f *fixture, driverID string, rating *int) *model.Booking {
	t.Helper()
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, b.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.AssignDriver(ctx, b.ID, driverID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := f.svc.Complete(ctx, b.ID, driverID, rating, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return updated
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	ratings := []int{8, 6, 10}
	var last *model.Booking
	for i := range ratings {
		last = completeRide(t, f, driverID, &ratings[i])
	}

	if last.Status != model.StatusCompleted {
		t.Errorf("status = %s", last.Status)
	}
	if last.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	if f.stats.rating != 8.0 {
		t.Errorf("driver rating = %v, want 8.0", f.stats.rating)
	}
	if f.stats.completedRides != 3 {
		t.Errorf("completed rides = %d, want 3", f.stats.completedRides)
	}
	if f.stats.totalRides != 3 {
		t.Errorf("total rides = %d, want 3", f.stats.totalRides)
	}
	// each ride is private at 100, share 0.7
	if f.stats.earningsTotal != 210 {
		t.Errorf("earnings total = %v, want 210", f.stats.earningsTotal)
	}
}

func TestComplete_RollsUpTotalRides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	// one assigned booking stays in progress
	open := testBooking()
	if err := f.svc.Create(ctx, open); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, open.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.AssignDriver(ctx, open.ID, driverID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	completeRide(t, f, driverID, nil)

	if f.stats.completedRides != 1 || f.stats.totalRides != 2 {
		t.Errorf("rollup = %d completed / %d total, want 1/2", f.stats.completedRides, f.stats.totalRides)
	}
}

func TestComplete_TwiceReturnsNotFound(t *testing.T) {
	f := newFixture(t)
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	b := completeRide(t, f, driverID, nil)

	_, err := f.svc.Complete(context.Background(), b.ID, driverID, nil, "")
	if err == nil {
		t.Fatal("expected second completion to fail")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", apperrors.AsAppError(err).Code)
	}
}

func TestComplete_WrongDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, b.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.AssignDriver(ctx, b.ID, "665f1c2b8f1b2c3d4e5f6a7b"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := f.svc.Complete(ctx, b.ID, "ffff1c2b8f1b2c3d4e5f6a7b", nil, "")
	if err == nil {
		t.Fatal("expected not found for another driver's booking")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestCancelByDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, b.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.AssignDriver(ctx, b.ID, driverID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := f.svc.CancelByDriver(ctx, b.ID, driverID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != model.StatusCancelled {
		t.Errorf("status = %s", updated.Status)
	}
}

func TestUpdateDriverEarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.UpdateDriverEarnings(ctx, b.ID, 42.5, model.EarningsPaid)
	if err != nil {
		t.Fatalf("update earnings: %v", err)
	}
	if updated.Earnings() != 42.5 {
		t.Errorf("earnings = %v", updated.Earnings())
	}
	if updated.DriverEarningsStatus != model.EarningsPaid {
		t.Errorf("earnings status = %s", updated.DriverEarningsStatus)
	}
	// no driver assigned yet, nothing accrues
	if f.stats.earningsTotal != 0 {
		t.Errorf("accrued earnings = %v, want 0", f.stats.earningsTotal)
	}

	if _, err := f.svc.UpdateDriverEarnings(ctx, b.ID, -1, ""); err == nil {
		t.Fatal("expected error for negative earnings")
	}
}

func TestUpdateDriverEarnings_AccruesOnDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, b.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.AssignDriver(ctx, b.ID, driverID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := f.svc.UpdateDriverEarnings(ctx, b.ID, 55, ""); err != nil {
		t.Fatalf("update earnings: %v", err)
	}
	if f.stats.earningsTotal != 55 {
		t.Errorf("accrued earnings = %v, want 55", f.stats.earningsTotal)
	}
}

func TestRides_Partition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	upcoming := testBooking()
	if err := f.svc.Create(ctx, upcoming); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, upcoming.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.AssignDriver(ctx, upcoming.ID, driverID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	past := testBooking()
	pastDate := time.Now().UTC().AddDate(0, 0, -3)
	past.Journey.Outbound.Date = &pastDate
	if err := f.svc.Create(ctx, past); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Confirm(ctx, past.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.AssignDriver(ctx, past.ID, driverID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	completed := completeRide(t, f, driverID, nil)

	rides, err := f.svc.Rides(ctx, driverID)
	if err != nil {
		t.Fatalf("rides: %v", err)
	}

	if len(rides.Upcoming) != 1 || rides.Upcoming[0].ID != upcoming.ID {
		t.Errorf("upcoming = %d rides", len(rides.Upcoming))
	}
	if len(rides.Past) != 2 {
		t.Errorf("past = %d rides, want 2", len(rides.Past))
	}
	for _, b := range rides.Past {
		if b.ID != past.ID && b.ID != completed.ID {
			t.Errorf("unexpected past ride %s", b.ID)
		}
	}
}

func TestListForDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	mine := completeRide(t, f, driverID, nil)
	completeRide(t, f, "ffff1c2b8f1b2c3d4e5f6a7b", nil)

	bookings, err := f.svc.ListForDriver(ctx, driverID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bookings) != 1 || bookings[0].ID != mine.ID {
		t.Errorf("bookings = %d, want only the caller's own", len(bookings))
	}

	bookings, err = f.svc.ListForDriver(ctx, driverID, model.StatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bookings) != 0 {
		t.Errorf("pending bookings = %d, want 0", len(bookings))
	}

	if _, err := f.svc.ListForDriver(ctx, driverID, "archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestSendReviewRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driverID := "665f1c2b8f1b2c3d4e5f6a7b"

	b := testBooking()
	if err := f.svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.SendReviewRequest(ctx, b.ID); err == nil {
		t.Fatal("expected conflict for non-completed booking")
	}

	completed := completeRide(t, f, driverID, nil)
	if err := f.svc.SendReviewRequest(ctx, completed.ID); err != nil {
		t.Fatalf("send review request: %v", err)
	}
	if len(f.notifier.reviews) != 1 {
		t.Errorf("review requests = %d", len(f.notifier.reviews))
	}
}
