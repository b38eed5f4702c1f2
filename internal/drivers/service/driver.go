package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	driverserrors "navette/internal/drivers/errors"
	"navette/internal/drivers/repository"
	"navette/internal/drivers/validator"
	"navette/pkg/config"
	apperrors "navette/pkg/errors"
	"navette/pkg/model"
	"navette/pkg/sanitizer"
	"navette/pkg/token"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 30 * time.Minute
	bcryptCost       = 12
)

// BookingSource exposes the booking queries the driver directory needs:
// deletion guards and the admin driver-detail view.
type BookingSource interface {
	CountByDriverAndStatuses(ctx context.Context, driverID string, statuses []string) (int64, error)
	FindByDriver(ctx context.Context, driverID string, statuses []string) ([]*model.Booking, error)
}

type CreateDriverInput struct {
	FirstName    string                  `json:"first_name"`
	LastName     string                  `json:"last_name"`
	Email        string                  `json:"email"`
	Phone        string                  `json:"phone"`
	Password     string                  `json:"password"`
	Vehicle      *model.VehicleInfo      `json:"vehicle,omitempty"`
	Professional *model.ProfessionalInfo `json:"professional,omitempty"`
}

// RideStats summarizes a driver's booking history. TotalEarnings sums
// selected prices of completed bookings, not accrued driver earnings;
// the admin view has always shown the gross figure here.
type RideStats struct {
	TotalRides     int     `json:"total_rides"`
	CompletedRides int     `json:"completed_rides"`
	AverageRating  float64 `json:"average_rating"`
	CompletionRate float64 `json:"completion_rate"`
	TotalEarnings  float64 `json:"total_earnings"`
}

// RideSummary is one booking row in the admin driver-detail view.
type RideSummary struct {
	ID            string     `json:"id"`
	Reference     string     `json:"reference"`
	Date          *time.Time `json:"date,omitempty"`
	Time          string     `json:"time,omitempty"`
	PickupCity    string     `json:"pickup_city"`
	Airport       string     `json:"airport"`
	PassengerName string     `json:"passenger_name"`
	Price         float64    `json:"price"`
	Completed     bool       `json:"completed"`
	Rating        *int       `json:"rating,omitempty"`
}

// DriverWithRides is the admin detail view: the driver record, its ride
// stats, the rating distribution over rated completed rides, and the
// booking history as ride rows.
type DriverWithRides struct {
	Driver  *model.Driver `json:"driver"`
	Stats   RideStats     `json:"stats"`
	Ratings map[int]int   `json:"ratings"`
	Rides   []RideSummary `json:"rides"`
}

type DriverService interface {
	Create(ctx context.Context, input *CreateDriverInput) (*model.Driver, error)
	GetByID(ctx context.Context, id string) (*model.Driver, error)
	GetWithRides(ctx context.Context, id string) (*DriverWithRides, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Driver, int64, error)
	ActiveRoster(ctx context.Context) ([]model.DriverPublic, error)
	Update(ctx context.Context, id string, update *model.DriverUpdate) (*model.Driver, error)
	Delete(ctx context.Context, id string) error
	Login(ctx context.Context, email, password string) (string, *model.Driver, error)
	UpdateRatingStats(ctx context.Context, driverID string, rating float64, completedRides, totalRides int) error
	IncrementEarnings(ctx context.Context, driverID string, amount float64) error
}

type driverService struct {
	repo      repository.DriverRepository
	validator *validator.DriverValidator
	cfg       *config.Config
	tokens    *token.Manager
	bookings  BookingSource
}

func NewDriverService(
	repo repository.DriverRepository,
	driverValidator *validator.DriverValidator,
	cfg *config.Config,
	tokens *token.Manager,
	bookings BookingSource,
) DriverService {
	return &driverService{
		repo:      repo,
		validator: driverValidator,
		cfg:       cfg,
		tokens:    tokens,
		bookings:  bookings,
	}
}

func (s *driverService) Create(ctx context.Context, input *CreateDriverInput) (*model.Driver, error) {
	if len(input.Password) < validator.MinPasswordLength {
		return nil, apperrors.Validation("Driver validation failed", map[string]any{
			"password": fmt.Sprintf("must be at least %d characters", validator.MinPasswordLength),
		})
	}

	driver := &model.Driver{
		FirstName:    sanitizer.Clean(input.FirstName),
		LastName:     sanitizer.Clean(input.LastName),
		Email:        sanitizer.NormalizeEmail(input.Email),
		Phone:        sanitizer.Clean(input.Phone),
		Status:       model.DriverActive,
		Vehicle:      input.Vehicle,
		Professional: input.Professional,
	}

	if err := s.validator.Validate(driver); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}
	driver.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, driver); err != nil {
		if errors.Is(err, driverserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("A driver with this email already exists")
		}
		return nil, apperrors.Internal("Failed to create driver", err)
	}

	s.cfg.Log.Info("Driver created", "id", driver.ID, "email", driver.Email)
	return driver, nil
}

func (s *driverService) GetByID(ctx context.Context, id string) (*model.Driver, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	driver, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	return driver, nil
}

func (s *driverService) GetWithRides(ctx context.Context, id string) (*DriverWithRides, error) {
	driver, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.FindByDriver(ctx, id, nil)
	if err != nil {
		return nil, apperrors.Internal("Failed to load driver bookings", err)
	}

	view := &DriverWithRides{
		Driver:  driver,
		Ratings: map[int]int{},
		Rides:   make([]RideSummary, 0, len(bookings)),
	}

	ratingSum, rated := 0, 0

	for _, b := range bookings {
		completed := b.Status == model.StatusCompleted

		view.Stats.TotalRides++
		if completed {
			view.Stats.CompletedRides++
			view.Stats.TotalEarnings += b.SelectedPrice()
			if b.Rating != nil {
				ratingSum += *b.Rating
				rated++
				view.Ratings[*b.Rating]++
			}
		}

		view.Rides = append(view.Rides, rideSummary(b, completed))
	}

	if rated > 0 {
		view.Stats.AverageRating = float64(ratingSum) / float64(rated)
	}
	if view.Stats.TotalRides > 0 {
		view.Stats.CompletionRate = float64(view.Stats.CompletedRides) / float64(view.Stats.TotalRides) * 100
	}

	return view, nil
}

func rideSummary(b *model.Booking, completed bool) RideSummary {
	ride := RideSummary{
		ID:            b.ID,
		Reference:     b.BookingReference,
		Date:          b.LegDate(),
		PickupCity:    b.Client.Address.City,
		PassengerName: b.Client.FullName(),
		Price:         b.SelectedPrice(),
		Completed:     completed,
		Rating:        b.Rating,
	}

	leg := b.Journey.Outbound
	if leg == nil {
		leg = b.Journey.Inbound
	}
	if leg != nil {
		ride.Airport = leg.Airport
		ride.Time = leg.PickupTime
		if ride.Time == "" {
			ride.Time = leg.Time
		}
	}

	return ride
}

func (s *driverService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Driver, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	drivers, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to list drivers", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count drivers", err)
	}

	return drivers, total, nil
}

func (s *driverService) ActiveRoster(ctx context.Context) ([]model.DriverPublic, error) {
	drivers, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list active drivers", err)
	}

	roster := make([]model.DriverPublic, 0, len(drivers))
	for _, d := range drivers {
		roster = append(roster, d.PublicView())
	}
	return roster, nil
}

// Update applies profile changes. Passwords and aggregate stats never
// move through this path.
func (s *driverService) Update(ctx context.Context, id string, update *model.DriverUpdate) (*model.Driver, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	update.FirstName = sanitizer.Clean(update.FirstName)
	update.LastName = sanitizer.Clean(update.LastName)
	update.Phone = sanitizer.Clean(update.Phone)

	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, err
	}

	driver, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}

	s.cfg.Log.Info("Driver updated", "id", id)
	return driver, nil
}

// Delete refuses to remove a driver that still has pending or confirmed
// bookings.
func (s *driverService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Driver ID cannot be empty")
	}

	active, err := s.bookings.CountByDriverAndStatuses(ctx, id, []string{
		model.StatusPending,
		model.StatusConfirmed,
	})
	if err != nil {
		return apperrors.Internal("Failed to check driver bookings", err)
	}
	if active > 0 {
		return apperrors.Conflict("Cannot delete driver with pending or confirmed bookings")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapRepoError(err, id)
	}

	s.cfg.Log.Info("Driver deleted", "id", id)
	return nil
}

// Login authenticates a driver and returns a signed token. After five
// consecutive failures the account locks for thirty minutes; both
// counters reset on success.
func (s *driverService) Login(ctx context.Context, email, password string) (string, *model.Driver, error) {
	driver, err := s.repo.FindByEmail(ctx, sanitizer.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, driverserrors.ErrNotFound) {
			return "", nil, apperrors.Unauthorized("Invalid email or password")
		}
		return "", nil, apperrors.Internal("Login failed", err)
	}

	now := time.Now().UTC()
	if driver.Locked(now) {
		return "", nil, apperrors.Unauthorized("Account temporarily locked, try again later")
	}

	if bcrypt.CompareHashAndPassword([]byte(driver.PasswordHash), []byte(password)) != nil {
		var lockUntil *time.Time
		if driver.FailedLoginAttempts+1 >= maxLoginAttempts {
			until := now.Add(lockoutDuration)
			lockUntil = &until
		}

		if err := s.repo.RegisterFailedLogin(ctx, driver.ID, lockUntil); err != nil {
			s.cfg.Log.Warn("Failed to register failed login", "driver_id", driver.ID, "error", err)
		}

		s.cfg.Log.Warn("Driver login failed",
			"driver_id", driver.ID,
			"attempts", driver.FailedLoginAttempts+1,
			"locked", lockUntil != nil,
		)
		return "", nil, apperrors.Unauthorized("Invalid email or password")
	}

	if err := s.repo.ResetLoginAttempts(ctx, driver.ID); err != nil {
		s.cfg.Log.Warn("Failed to reset login attempts", "driver_id", driver.ID, "error", err)
	}

	signed, err := s.tokens.IssueDriver(driver.ID)
	if err != nil {
		return "", nil, apperrors.Internal("Failed to issue token", err)
	}

	s.cfg.Log.Info("Driver logged in", "driver_id", driver.ID)
	return signed, driver, nil
}

func (s *driverService) UpdateRatingStats(ctx context.Context, driverID string, rating float64, completedRides, totalRides int) error {
	return s.repo.UpdateRatingStats(ctx, driverID, rating, completedRides, totalRides)
}

func (s *driverService) IncrementEarnings(ctx context.Context, driverID string, amount float64) error {
	return s.repo.IncrementEarnings(ctx, driverID, amount)
}

func (s *driverService) mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, driverserrors.ErrInvalidID):
		return apperrors.InvalidInput(fmt.Sprintf("Invalid driver ID: %s", id))
	case errors.Is(err, driverserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Driver", id)
	default:
		return apperrors.Internal("Driver operation failed", err)
	}
}
