package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	driverserrors "navette/internal/drivers/errors"
	"navette/internal/drivers/validator"
	"navette/pkg/config"
	apperrors "navette/pkg/errors"
	"navette/pkg/logger"
	"navette/pkg/model"
	"navette/pkg/token"
)

type fakeDriverRepository struct {
	drivers map[string]*model.Driver
	nextID  int
}

func newFakeDriverRepository() *fakeDriverRepository {
	return &fakeDriverRepository{drivers: make(map[string]*model.Driver)}
}

func (r *fakeDriverRepository) Create(ctx context.Context, d *model.Driver) error {
	for _, existing := range r.drivers {
		if existing.Email == d.Email {
			return driverserrors.ErrDuplicateEmail
		}
	}
	r.nextID++
	d.ID = fmt.Sprintf("%024x", r.nextID)
	clone := *d
	r.drivers[d.ID] = &clone
	return nil
}

func (r *fakeDriverRepository) FindByID(ctx context.Context, id string) (*model.Driver, error) {
	d, ok := r.drivers[id]
	if !ok {
		return nil, driverserrors.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *fakeDriverRepository) FindByEmail(ctx context.Context, email string) (*model.Driver, error) {
	for _, d := range r.drivers {
		if d.Email == email {
			clone := *d
			return &clone, nil
		}
	}
	return nil, driverserrors.ErrNotFound
}

func (r *fakeDriverRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Driver, error) {
	out := []*model.Driver{}
	for _, d := range r.drivers {
		clone := *d
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeDriverRepository) FindActive(ctx context.Context) ([]*model.Driver, error) {
	out := []*model.Driver{}
	for _, d := range r.drivers {
		if d.Status == model.DriverActive {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeDriverRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(r.drivers)), nil
}

func (r *fakeDriverRepository) Update(ctx context.Context, id string, update *model.DriverUpdate) (*model.Driver, error) {
	d, ok := r.drivers[id]
	if !ok {
		return nil, driverserrors.ErrNotFound
	}
	if update.FirstName != "" {
		d.FirstName = update.FirstName
	}
	if update.LastName != "" {
		d.LastName = update.LastName
	}
	if update.Phone != "" {
		d.Phone = update.Phone
	}
	if update.Status != "" {
		d.Status = update.Status
	}
	if update.Vehicle != nil {
		d.Vehicle = update.Vehicle
	}
	if update.Professional != nil {
		d.Professional = update.Professional
	}
	clone := *d
	return &clone, nil
}

func (r *fakeDriverRepository) Delete(ctx context.Context, id string) error {
	if _, ok := r.drivers[id]; !ok {
		return driverserrors.ErrNotFound
	}
	delete(r.drivers, id)
	return nil
}

func (r *fakeDriverRepository) RegisterFailedLogin(ctx context.Context, id string, lockUntil *time.Time) error {
	d, ok := r.drivers[id]
	if !ok {
		return driverserrors.ErrNotFound
	}
	d.FailedLoginAttempts++
	if lockUntil != nil {
		d.LockedUntil = lockUntil
	}
	return nil
}

func (r *fakeDriverRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	d, ok := r.drivers[id]
	if !ok {
		return driverserrors.ErrNotFound
	}
	d.FailedLoginAttempts = 0
	d.LockedUntil = nil
	return nil
}

func (r *fakeDriverRepository) UpdateRatingStats(ctx context.Context, id string, rating float64, completedRides, totalRides int) error {
	d, ok := r.drivers[id]
	if !ok {
		return driverserrors.ErrNotFound
	}
	d.Rating = rating
	d.CompletedRides = completedRides
	d.TotalRides = totalRides
	return nil
}

func (r *fakeDriverRepository) IncrementEarnings(ctx context.Context, id string, amount float64) error {
	d, ok := r.drivers[id]
	if !ok {
		return driverserrors.ErrNotFound
	}
	d.TotalEarnings += amount
	return nil
}

func (r *fakeDriverRepository) EnsureIndexes(ctx context.Context) error { return nil }

type fakeBookingSource struct {
	activeCount int64
	bookings    []*model.Booking
}

func (s *fakeBookingSource) CountByDriverAndStatuses(ctx context.Context, driverID string, statuses []string) (int64, error) {
	return s.activeCount, nil
}

func (s *fakeBookingSource) FindByDriver(ctx context.Context, driverID string, statuses []string) ([]*model.Booking, error) {
	return s.bookings, nil
}

type driverFixture struct {
	svc      DriverService
	repo     *fakeDriverRepository
	bookings *fakeBookingSource
}

func newDriverFixture(t *testing.T) *driverFixture {
	t.Helper()

	dv, err := validator.NewDriverValidator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	cfg := &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}

	f := &driverFixture{
		repo:     newFakeDriverRepository(),
		bookings: &fakeBookingSource{},
	}
	f.svc = NewDriverService(f.repo, dv, cfg, token.NewManager("test-secret", time.Hour), f.bookings)
	return f
}

func testInput() *CreateDriverInput {
	return &CreateDriverInput{
		FirstName: "Jean",
		LastName:  "Muller",
		Email:     "Jean.Muller@Example.com",
		Phone:     "+41781234567",
		Password:  "correct-horse",
		Vehicle:   &model.VehicleInfo{Brand: "Mercedes", Model: "V-Class", Seats: 7},
	}
}

func TestCreateDriver(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	driver, err := f.svc.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if driver.Email != "jean.muller@example.com" {
		t.Errorf("email not normalized: %q", driver.Email)
	}
	if driver.Status != model.DriverActive {
		t.Errorf("status = %s", driver.Status)
	}
	if driver.PasswordHash == "" || driver.PasswordHash == "correct-horse" {
		t.Error("password must be stored hashed")
	}
	if bcrypt.CompareHashAndPassword([]byte(driver.PasswordHash), []byte("correct-horse")) != nil {
		t.Error("stored hash does not match password")
	}
}

func TestCreateDriver_DuplicateEmail(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, testInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := f.svc.Create(ctx, testInput())
	if err == nil {
		t.Fatal("expected conflict for duplicate email")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestCreateDriver_ShortPassword(t *testing.T) {
	f := newDriverFixture(t)

	input := testInput()
	input.Password = "short"

	_, err := f.svc.Create(context.Background(), input)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestLogin(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	signed, driver, err := f.svc.Login(ctx, "jean.muller@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if signed == "" {
		t.Error("expected a token")
	}
	if driver.ID != created.ID {
		t.Errorf("driver id = %s", driver.ID)
	}
}

func TestLogin_LockoutAfterFiveFailures(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, _, err := f.svc.Login(ctx, "jean.muller@example.com", "wrong"); err == nil {
			t.Fatal("expected login failure")
		}
	}

	stored := f.repo.drivers[created.ID]
	if stored.FailedLoginAttempts != 5 {
		t.Errorf("attempts = %d, want 5", stored.FailedLoginAttempts)
	}
	if stored.LockedUntil == nil {
		t.Fatal("expected lockout to be set")
	}

	// correct password while locked still fails
	if _, _, err := f.svc.Login(ctx, "jean.muller@example.com", "correct-horse"); err == nil {
		t.Fatal("expected locked account to reject login")
	}

	// expired lockout allows login again and resets counters
	past := time.Now().UTC().Add(-time.Minute)
	stored.LockedUntil = &past

	if _, _, err := f.svc.Login(ctx, "jean.muller@example.com", "correct-horse"); err != nil {
		t.Fatalf("login after lockout expiry: %v", err)
	}
	if stored.FailedLoginAttempts != 0 || stored.LockedUntil != nil {
		t.Error("expected counters to reset on successful login")
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newDriverFixture(t)

	_, _, err := f.svc.Login(context.Background(), "nobody@example.com", "whatever")
	if err == nil {
		t.Fatal("expected unauthorized")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeUnauthorized {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}
}

func TestDeleteDriver_ActiveBookingsConflict(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.bookings.activeCount = 2
	err = f.svc.Delete(ctx, created.ID)
	if err == nil {
		t.Fatal("expected conflict deleting driver with active bookings")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("code = %s", apperrors.AsAppError(err).Code)
	}

	f.bookings.activeCount = 0
	if err := f.svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, created.ID); err == nil {
		t.Fatal("expected driver to be removed")
	}
}

func TestActiveRoster(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	active, err := f.svc.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inactiveInput := testInput()
	inactiveInput.Email = "other@example.com"
	inactive, err := f.svc.Create(ctx, inactiveInput)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Update(ctx, inactive.ID, &model.DriverUpdate{Status: model.DriverInactive}); err != nil {
		t.Fatalf("update: %v", err)
	}

	roster, err := f.svc.ActiveRoster(ctx)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}

	if len(roster) != 1 || roster[0].ID != active.ID {
		t.Errorf("roster = %+v", roster)
	}
	if roster[0].Vehicle == nil || roster[0].Vehicle.Brand != "Mercedes" {
		t.Error("roster should include vehicle info")
	}
}

func TestUpdateDriver_InvalidStatus(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Update(ctx, created.ID, &model.DriverUpdate{Status: "retired"})
	if err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}

func TestGetWithRides(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rating := 9
	f.bookings.bookings = []*model.Booking{
		{
			ID:          "000000000000000000000001",
			DriverID:    created.ID,
			Status:      model.StatusCompleted,
			ServiceType: model.ServiceShared,
			Price:       model.PricePair{SharedPrice: 100},
			Rating:      &rating,
			Client: model.Client{
				FirstName: "Marie",
				LastName:  "Dupont",
				Address:   model.Address{City: "Geneva"},
			},
			Journey: model.Journey{
				Type:     model.JourneyOutbound,
				Outbound: &model.Leg{Date: &date, Airport: "GVA", PickupTime: "08:30"},
			},
		},
		{
			ID:          "000000000000000000000002",
			DriverID:    created.ID,
			Status:      model.StatusConfirmed,
			ServiceType: model.ServiceShared,
			Price:       model.PricePair{SharedPrice: 80},
		},
	}

	detail, err := f.svc.GetWithRides(ctx, created.ID)
	if err != nil {
		t.Fatalf("get with rides: %v", err)
	}
	if detail.Driver.ID != created.ID || len(detail.Rides) != 2 {
		t.Fatalf("detail = %+v", detail)
	}

	if detail.Stats.TotalRides != 2 || detail.Stats.CompletedRides != 1 {
		t.Errorf("stats = %+v", detail.Stats)
	}
	if detail.Stats.CompletionRate != 50 {
		t.Errorf("completion rate = %v", detail.Stats.CompletionRate)
	}
	// gross price of completed rides, not driver earnings
	if detail.Stats.TotalEarnings != 100 {
		t.Errorf("total earnings = %v", detail.Stats.TotalEarnings)
	}
	if detail.Stats.AverageRating != 9 || detail.Ratings[9] != 1 {
		t.Errorf("ratings = %v avg %v", detail.Ratings, detail.Stats.AverageRating)
	}

	ride := detail.Rides[0]
	if !ride.Completed || ride.PassengerName != "Marie Dupont" || ride.PickupCity != "Geneva" {
		t.Errorf("ride = %+v", ride)
	}
	if ride.Airport != "GVA" || ride.Time != "08:30" || ride.Price != 100 {
		t.Errorf("ride = %+v", ride)
	}
	if detail.Rides[1].Completed {
		t.Error("confirmed ride must not be marked completed")
	}
}
