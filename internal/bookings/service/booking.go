package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	bookingserrors "navette/internal/bookings/errors"
	"navette/internal/bookings/repository"
	"navette/internal/bookings/validator"
	"navette/pkg/config"
	apperrors "navette/pkg/errors"
	"navette/pkg/events"
	"navette/pkg/model"
	"navette/pkg/sanitizer"
)

// Notifier dispatches templated booking emails. Implementations are
// best-effort; the service logs failures and keeps the mutation.
type Notifier interface {
	BookingReceived(b *model.Booking) error
	BookingConfirmed(b *model.Booking) error
	BookingRejected(b *model.Booking) error
	ReviewRequest(b *model.Booking) error
}

// DriverStatsUpdater rolls completion results into the driver record.
type DriverStatsUpdater interface {
	UpdateRatingStats(ctx context.Context, driverID string, rating float64, completedRides, totalRides int) error
	IncrementEarnings(ctx context.Context, driverID string, amount float64) error
}

// ConfirmResult is the outcome of a confirmation attempt. When the
// booking belongs to a linked pair, GroupID is set, Booking is nil and
// nothing was mutated: the caller must confirm both halves explicitly.
type ConfirmResult struct {
	Booking *model.Booking `json:"booking,omitempty"`
	GroupID string         `json:"booking_group_id,omitempty"`
}

// DriverRides partitions a driver's assigned bookings by journey date
// and status.
type DriverRides struct {
	Upcoming []*model.Booking `json:"upcoming"`
	Past     []*model.Booking `json:"past"`
}

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	CreateLinkedPair(ctx context.Context, outbound, inbound *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, int64, error)
	ListForDriver(ctx context.Context, driverID, status string) ([]*model.Booking, error)
	GetLinked(ctx context.Context, groupID string) ([]*model.Booking, error)
	Confirm(ctx context.Context, id, pickupTime string) (*ConfirmResult, error)
	SetStatus(ctx context.Context, id, status string) (*model.Booking, error)
	AssignDriver(ctx context.Context, id, driverID string) (*model.Booking, error)
	Complete(ctx context.Context, id, driverID string, rating *int, comment string) (*model.Booking, error)
	CancelByDriver(ctx context.Context, id, driverID string) (*model.Booking, error)
	UpdatePickupTime(ctx context.Context, id, pickupTime string) (*model.Booking, error)
	UpdateDriverEarnings(ctx context.Context, id string, amount float64, status string) (*model.Booking, error)
	Rides(ctx context.Context, driverID string) (*DriverRides, error)
	Delete(ctx context.Context, id string) error
	SendReviewRequest(ctx context.Context, id string) error
}

type bookingService struct {
	repo        repository.BookingRepository
	validator   *validator.BookingValidator
	cfg         *config.Config
	notifier    Notifier
	events      events.Publisher
	driverStats DriverStatsUpdater
}

func NewBookingService(
	repo repository.BookingRepository,
	bookingValidator *validator.BookingValidator,
	cfg *config.Config,
	notifier Notifier,
	publisher events.Publisher,
	driverStats DriverStatsUpdater,
) BookingService {
	return &bookingService{
		repo:        repo,
		validator:   bookingValidator,
		cfg:         cfg,
		notifier:    notifier,
		events:      publisher,
		driverStats: driverStats,
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.prepare(booking)

	if err := s.validator.Validate(booking); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "reference", booking.BookingReference, "error", err)
		return apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"reference", booking.BookingReference,
		"service_type", booking.ServiceType,
		"payment_method", booking.PaymentMethod,
	)

	s.notify(booking, s.notifier.BookingReceived, "admin notification")
	s.publish(ctx, events.TypeBookingCreated, booking)

	return nil
}

// CreateLinkedPair persists two one-way bookings sharing a fresh group
// id inside one transaction, so a crash cannot leave half a pair.
func (s *bookingService) CreateLinkedPair(ctx context.Context, outbound, inbound *model.Booking) error {
	if outbound.Journey.Type != model.JourneyOutbound {
		return apperrors.InvalidInput("First booking of a linked pair must be an outbound journey")
	}
	if inbound.Journey.Type != model.JourneyInbound {
		return apperrors.InvalidInput("Second booking of a linked pair must be an inbound journey")
	}

	groupID := uuid.NewString()
	outbound.BookingGroupID = groupID
	inbound.BookingGroupID = groupID

	for _, b := range []*model.Booking{outbound, inbound} {
		s.prepare(b)
		if err := s.validator.Validate(b); err != nil {
			return err
		}
	}

	if err := s.repo.CreatePair(ctx, outbound, inbound); err != nil {
		s.cfg.Log.Error("Failed to create linked booking pair", "group_id", groupID, "error", err)
		return apperrors.Internal("Failed to create linked booking pair", err)
	}

	s.cfg.Log.Info("Linked booking pair created",
		"group_id", groupID,
		"outbound_id", outbound.ID,
		"inbound_id", inbound.ID,
	)

	s.notify(outbound, s.notifier.BookingReceived, "admin notification")
	s.publish(ctx, events.TypeBookingCreated, outbound)
	s.publish(ctx, events.TypeBookingCreated, inbound)

	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if status != "" && !model.IsValidStatus(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("Unknown booking status: %s", status))
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.repo.FindAll(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list bookings", err)
	}

	total, err := s.repo.Count(ctx, status)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	return bookings, total, nil
}

// ListForDriver returns the driver's own bookings, optionally filtered
// by status. The admin listing goes through GetAll instead.
func (s *bookingService) ListForDriver(ctx context.Context, driverID, status string) ([]*model.Booking, error) {
	if driverID == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}
	if status != "" && !model.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown booking status: %s", status))
	}

	var statuses []string
	if status != "" {
		statuses = []string{status}
	}

	bookings, err := s.repo.FindByDriver(ctx, driverID, statuses)
	if err != nil {
		return nil, apperrors.Internal("Failed to list driver bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) GetLinked(ctx context.Context, groupID string) ([]*model.Booking, error) {
	if groupID == "" {
		return nil, apperrors.InvalidInput("Booking group ID cannot be empty")
	}

	bookings, err := s.repo.FindByGroup(ctx, groupID)
	if err != nil {
		return nil, apperrors.Internal("Failed to find booking group", err)
	}
	if len(bookings) == 0 {
		return nil, apperrors.NotFoundWithID("Booking group", groupID)
	}

	return bookings, nil
}

func (s *bookingService) Confirm(ctx context.Context, id, pickupTime string) (*ConfirmResult, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// A grouped booking is never confirmed through this path: the
	// caller resolves the pair and confirms each half explicitly.
	if booking.BookingGroupID != "" {
		return &ConfirmResult{GroupID: booking.BookingGroupID}, nil
	}

	if err := checkTransition(booking.Status, model.StatusConfirmed); err != nil {
		return nil, err
	}

	fields := bson.M{"status": model.StatusConfirmed}
	if pickupTime != "" {
		if !validator.IsHHMM(pickupTime) {
			return nil, apperrors.InvalidInput("Pickup time must be in HH:MM format")
		}
		if booking.Journey.Outbound != nil {
			fields["journey.outbound.pickup_time"] = pickupTime
		}
	}

	updated, err := s.update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking confirmed", "id", id, "pickup_time", pickupTime)

	s.notify(updated, s.notifier.BookingConfirmed, "confirmation email")
	s.publish(ctx, events.TypeBookingConfirmed, updated)

	return &ConfirmResult{Booking: updated}, nil
}

func (s *bookingService) SetStatus(ctx context.Context, id, status string) (*model.Booking, error) {
	if !model.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown booking status: %s", status))
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(booking.Status, status); err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, id, bson.M{"status": status})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking status updated", "id", id, "from", booking.Status, "to", status)

	switch status {
	case model.StatusConfirmed:
		s.notify(updated, s.notifier.BookingConfirmed, "confirmation email")
		s.publish(ctx, events.TypeBookingConfirmed, updated)
	case model.StatusRejected:
		s.notify(updated, s.notifier.BookingRejected, "rejection email")
		s.publish(ctx, events.TypeBookingRejected, updated)
	case model.StatusCancelled:
		s.publish(ctx, events.TypeBookingCancelled, updated)
	}

	return updated, nil
}

func (s *bookingService) AssignDriver(ctx context.Context, id, driverID string) (*model.Booking, error) {
	if driverID == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(booking.Status, model.StatusInProgress); err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, id, bson.M{
		"driver_id": driverID,
		"status":    model.StatusInProgress,
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Driver assigned to booking", "id", id, "driver_id", driverID)
	s.publish(ctx, events.TypeDriverAssigned, updated)

	return updated, nil
}

func (s *bookingService) Complete(ctx context.Context, id, driverID string, rating *int, comment string) (*model.Booking, error) {
	if rating != nil && (*rating < 1 || *rating > 10) {
		return nil, apperrors.InvalidInput("Rating must be between 1 and 10")
	}

	booking, err := s.repo.FindOwnedActive(ctx, id, driverID)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}

	if err := checkTransition(booking.Status, model.StatusCompleted); err != nil {
		return nil, err
	}

	fields := bson.M{
		"status":       model.StatusCompleted,
		"completed_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if rating != nil {
		fields["rating"] = *rating
	}
	if comment != "" {
		fields["comment"] = sanitizer.Clean(comment)
	}

	updated, err := s.update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking completed",
		"id", id,
		"driver_id", driverID,
		"rated", rating != nil,
	)

	s.rollupDriverStats(ctx, driverID, updated.Earnings())
	s.publish(ctx, events.TypeBookingCompleted, updated)

	return updated, nil
}

func (s *bookingService) CancelByDriver(ctx context.Context, id, driverID string) (*model.Booking, error) {
	booking, err := s.repo.FindOwnedActive(ctx, id, driverID)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}

	if err := checkTransition(booking.Status, model.StatusCancelled); err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, id, bson.M{"status": model.StatusCancelled})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking cancelled by driver", "id", id, "driver_id", driverID)
	s.publish(ctx, events.TypeBookingCancelled, updated)

	return updated, nil
}

func (s *bookingService) UpdatePickupTime(ctx context.Context, id, pickupTime string) (*model.Booking, error) {
	if !validator.IsHHMM(pickupTime) {
		return nil, apperrors.InvalidInput("Pickup time must be in HH:MM format")
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Journey.Outbound == nil {
		return nil, apperrors.InvalidInput("Booking has no outbound leg")
	}

	updated, err := s.update(ctx, id, bson.M{"journey.outbound.pickup_time": pickupTime})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Pickup time updated", "id", id, "pickup_time", pickupTime)
	return updated, nil
}

// UpdateDriverEarnings overrides the computed earnings value. An
// explicit admin override always wins over the derived share.
func (s *bookingService) UpdateDriverEarnings(ctx context.Context, id string, amount float64, status string) (*model.Booking, error) {
	if amount < 0 {
		return nil, apperrors.InvalidInput("Driver earnings cannot be negative")
	}
	if status != "" && status != model.EarningsPending && status != model.EarningsPaid {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown earnings status: %s", status))
	}

	fields := bson.M{"driver_earnings": amount}
	if status != "" {
		fields["driver_earnings_status"] = status
	}

	updated, err := s.update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	// The override also accrues on the driver's running total.
	if updated.DriverID != "" {
		if err := s.driverStats.IncrementEarnings(ctx, updated.DriverID, amount); err != nil {
			s.cfg.Log.Warn("Failed to accrue overridden earnings", "id", id, "driver_id", updated.DriverID, "error", err)
		}
	}

	s.cfg.Log.Info("Driver earnings updated", "id", id, "amount", amount, "status", status)
	return updated, nil
}

// Rides partitions the driver's bookings: non-terminal bookings with a
// journey date today or later are upcoming, everything else is past.
func (s *bookingService) Rides(ctx context.Context, driverID string) (*DriverRides, error) {
	if driverID == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	bookings, err := s.repo.FindByDriver(ctx, driverID, nil)
	if err != nil {
		return nil, apperrors.Internal("Failed to list driver rides", err)
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	rides := &DriverRides{
		Upcoming: []*model.Booking{},
		Past:     []*model.Booking{},
	}

	for _, b := range bookings {
		date := b.LegDate()
		if model.IsTerminalStatus(b.Status) || date == nil || date.Before(today) {
			rides.Past = append(rides.Past, b)
			continue
		}
		rides.Upcoming = append(rides.Upcoming, b)
	}

	return rides, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapRepoError(err, id)
	}

	s.cfg.Log.Info("Booking deleted", "id", id)
	return nil
}

// SendReviewRequest dispatches a review email for a completed booking.
// Unlike lifecycle notifications this is the operation itself, so a
// delivery failure is the caller's error.
func (s *bookingService) SendReviewRequest(ctx context.Context, id string) error {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if booking.Status != model.StatusCompleted {
		return apperrors.Conflict("Review requests can only be sent for completed bookings")
	}

	if err := s.notifier.ReviewRequest(booking); err != nil {
		s.cfg.Log.Error("Failed to send review request", "id", id, "error", err)
		return apperrors.Internal("Failed to send review request", err)
	}

	s.cfg.Log.Info("Review request sent", "id", id, "reference", booking.BookingReference)
	return nil
}

// prepare applies creation defaults: sanitized client fields,
// normalized email, pending statuses, reference and earnings.
func (s *bookingService) prepare(b *model.Booking) {
	b.Client.FirstName = sanitizer.Clean(b.Client.FirstName)
	b.Client.LastName = sanitizer.Clean(b.Client.LastName)
	b.Client.Email = sanitizer.NormalizeEmail(b.Client.Email)
	b.Client.Address.Street = sanitizer.Clean(b.Client.Address.Street)
	b.Client.Address.City = sanitizer.Clean(b.Client.Address.City)
	b.Client.Address.Locality = sanitizer.Clean(b.Client.Address.Locality)

	if b.Status == "" {
		b.Status = model.StatusPending
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.PaymentStatusPending
	}
	if b.DriverEarningsStatus == "" {
		b.DriverEarningsStatus = model.EarningsPending
	}

	b.EnsureReference(s.cfg.BookingRefPrefix)
	b.EnsureEarnings(s.cfg.DriverEarningsShare)
}

// rollupDriverStats recomputes the driver's rating and completed-ride
// count from the booking set and applies the earnings increment. Both
// are best-effort: the completed booking is the source of truth and a
// later completion recomputes from scratch.
func (s *bookingService) rollupDriverStats(ctx context.Context, driverID string, earnings float64) {
	completed, err := s.repo.FindByDriver(ctx, driverID, []string{model.StatusCompleted})
	if err != nil {
		s.cfg.Log.Warn("Failed to load completed bookings for stats rollup", "driver_id", driverID, "error", err)
		return
	}

	var sum, rated int
	for _, b := range completed {
		if b.Rating != nil {
			sum += *b.Rating
			rated++
		}
	}

	var avg float64
	if rated > 0 {
		avg = math.Round(float64(sum)/float64(rated)*10) / 10
	}

	total, err := s.repo.CountByDriverAndStatuses(ctx, driverID, nil)
	if err != nil {
		s.cfg.Log.Warn("Failed to count driver bookings for stats rollup", "driver_id", driverID, "error", err)
		total = int64(len(completed))
	}

	if err := s.driverStats.UpdateRatingStats(ctx, driverID, avg, len(completed), int(total)); err != nil {
		s.cfg.Log.Warn("Failed to update driver rating stats", "driver_id", driverID, "error", err)
	}

	if err := s.driverStats.IncrementEarnings(ctx, driverID, earnings); err != nil {
		s.cfg.Log.Warn("Failed to increment driver earnings", "driver_id", driverID, "error", err)
	}
}

func (s *bookingService) update(ctx context.Context, id string, fields bson.M) (*model.Booking, error) {
	updated, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	return updated, nil
}

func (s *bookingService) notify(b *model.Booking, send func(*model.Booking) error, kind string) {
	if err := send(b); err != nil {
		s.cfg.Log.Warn("Failed to send "+kind,
			"id", b.ID,
			"reference", b.BookingReference,
			"error", err,
		)
	}
}

func (s *bookingService) publish(ctx context.Context, eventType string, b *model.Booking) {
	if err := s.events.PublishBooking(ctx, eventType, b); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"type", eventType,
			"id", b.ID,
			"error", err,
		)
	}
}

func (s *bookingService) mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput(fmt.Sprintf("Invalid booking ID: %s", id))
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	default:
		return apperrors.Internal("Booking operation failed", err)
	}
}

func checkTransition(from, to string) error {
	if !model.CanTransition(from, to) {
		return apperrors.Conflict(fmt.Sprintf("Cannot transition booking from %s to %s", from, to))
	}
	return nil
}
