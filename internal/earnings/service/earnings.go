package service

import (
	"context"
	"sort"
	"time"

	"navette/pkg/config"
	apperrors "navette/pkg/errors"
	"navette/pkg/model"
)

// BookingSource exposes the booking queries the aggregator reads from.
// The bookings repository satisfies it.
type BookingSource interface {
	FindByDriver(ctx context.Context, driverID string, statuses []string) ([]*model.Booking, error)
	FindCompletedInRange(ctx context.Context, driverID string, from, to time.Time) ([]*model.Booking, error)
	TotalCompletedEarnings(ctx context.Context, driverID string) (float64, error)
}

// LineItem is one booking's contribution to a stats report.
type LineItem struct {
	BookingID     string     `json:"booking_id"`
	Reference     string     `json:"reference"`
	Date          *time.Time `json:"date,omitempty"`
	Earnings      float64    `json:"earnings"`
	ClientName    string     `json:"client_name"`
	OriginCity    string     `json:"origin_city"`
	Airport       string     `json:"airport"`
	PaymentMethod string     `json:"payment_method"`
}

// DriverStats is the per-driver earnings report. WeekCashPayments sums
// driver earnings over cash bookings in the current Sunday-start week.
// The weekly-breakdown report sums prices instead; the two reports have
// always disagreed on this and consumers rely on both readings.
type DriverStats struct {
	TotalEarnings    float64    `json:"total_earnings"`
	WeekCashPayments float64    `json:"week_cash_payments"`
	TotalRides       int        `json:"total_rides"`
	Items            []LineItem `json:"items"`
}

// Breakdown partitions a driver's bookings into the current ISO week,
// the current month and the previous month, anchored on the outbound
// leg date. Bookings without an outbound leg fall out of every
// partition.
type Breakdown struct {
	WeekCash          float64 `json:"week_cash"`
	WeekRides         int     `json:"week_rides"`
	MonthRevenue      float64 `json:"month_revenue"`
	MonthEarnings     float64 `json:"month_earnings"`
	MonthRides        int     `json:"month_rides"`
	LastMonthEarnings float64 `json:"last_month_earnings"`
	LastMonthRides    int     `json:"last_month_rides"`
}

// DailyEarnings is one day's bucket in a completed-earnings report.
type DailyEarnings struct {
	Date     string  `json:"date"`
	Earnings float64 `json:"earnings"`
	Rides    int     `json:"rides"`
}

// CompletedReport aggregates completed bookings over a completion-date
// range: totals, per-ride average, daily buckets and line items.
type CompletedReport struct {
	TotalEarnings  float64         `json:"total_earnings"`
	Rides          int             `json:"rides"`
	AveragePerRide float64         `json:"average_per_ride"`
	Daily          []DailyEarnings `json:"daily"`
	Items          []LineItem      `json:"items"`
}

type EarningsService interface {
	DriverStats(ctx context.Context, driverID string, from, to *time.Time) (*DriverStats, error)
	WeeklyMonthlyBreakdown(ctx context.Context, driverID string) (*Breakdown, error)
	FleetTotalEarnings(ctx context.Context, driverID string) (float64, error)
	CompletedEarnings(ctx context.Context, driverID string, from, to *time.Time) (*CompletedReport, error)
	EarningsHistory(ctx context.Context, driverID string, from, to *time.Time) ([]LineItem, error)
}

type earningsService struct {
	repo BookingSource
	cfg  *config.Config
}

func NewEarningsService(repo BookingSource, cfg *config.Config) EarningsService {
	return &earningsService{
		repo: repo,
		cfg:  cfg,
	}
}

// reportStatuses are the booking statuses that count toward earnings
// reports: confirmed work counts alongside completed work.
var reportStatuses = []string{model.StatusCompleted, model.StatusConfirmed}

func (s *earningsService) DriverStats(ctx context.Context, driverID string, from, to *time.Time) (*DriverStats, error) {
	if driverID == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	bookings, err := s.repo.FindByDriver(ctx, driverID, reportStatuses)
	if err != nil {
		return nil, apperrors.Internal("Failed to load driver bookings", err)
	}

	weekStart := sundayWeekStart(time.Now().UTC())
	weekEnd := weekStart.AddDate(0, 0, 7)

	stats := &DriverStats{Items: []LineItem{}}

	for _, b := range bookings {
		date := b.LegDate()

		if from != nil && (date == nil || date.Before(*from)) {
			continue
		}
		if to != nil && (date == nil || date.After(*to)) {
			continue
		}

		stats.TotalEarnings += b.Earnings()
		stats.TotalRides++
		stats.Items = append(stats.Items, lineItem(b, date))

		if b.PaymentMethod == model.PaymentCash && inRange(date, weekStart, weekEnd) {
			stats.WeekCashPayments += b.Earnings()
		}
	}

	return stats, nil
}

func (s *earningsService) WeeklyMonthlyBreakdown(ctx context.Context, driverID string) (*Breakdown, error) {
	if driverID == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	bookings, err := s.repo.FindByDriver(ctx, driverID, reportStatuses)
	if err != nil {
		return nil, apperrors.Internal("Failed to load driver bookings", err)
	}

	now := time.Now().UTC()
	weekStart := isoWeekStart(now)
	weekEnd := weekStart.AddDate(0, 0, 7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	breakdown := &Breakdown{}

	for _, b := range bookings {
		// Anchored on the outbound leg only. An inbound-only
		// booking contributes nothing here.
		date := b.OutboundDate()
		if date == nil {
			continue
		}

		if inRange(date, weekStart, weekEnd) {
			breakdown.WeekRides++
			if b.PaymentMethod == model.PaymentCash {
				breakdown.WeekCash += b.SelectedPrice()
			}
		}

		if inRange(date, monthStart, monthEnd) {
			breakdown.MonthRides++
			breakdown.MonthRevenue += b.SelectedPrice()
			breakdown.MonthEarnings += b.Earnings()
		}

		if inRange(date, lastMonthStart, monthStart) {
			breakdown.LastMonthRides++
			breakdown.LastMonthEarnings += b.Earnings()
		}
	}

	return breakdown, nil
}

// FleetTotalEarnings sums driver earnings over completed bookings with
// the store-side aggregation.
func (s *earningsService) FleetTotalEarnings(ctx context.Context, driverID string) (float64, error) {
	if driverID == "" {
		return 0, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	total, err := s.repo.TotalCompletedEarnings(ctx, driverID)
	if err != nil {
		return 0, apperrors.Internal("Failed to aggregate earnings", err)
	}
	return total, nil
}

// CompletedEarnings reports completed bookings over an optional
// completion-date range: totals, per-ride average, per-day buckets and
// line items.
func (s *earningsService) CompletedEarnings(ctx context.Context, driverID string, from, to *time.Time) (*CompletedReport, error) {
	if driverID == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	var bookings []*model.Booking
	var err error
	if from != nil && to != nil {
		if to.Before(*from) {
			return nil, apperrors.InvalidInput("Range end must not precede range start")
		}
		bookings, err = s.repo.FindCompletedInRange(ctx, driverID, *from, *to)
	} else {
		bookings, err = s.repo.FindByDriver(ctx, driverID, []string{model.StatusCompleted})
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to load completed bookings", err)
	}

	report := &CompletedReport{Daily: []DailyEarnings{}, Items: []LineItem{}}
	buckets := map[string]*DailyEarnings{}

	for _, b := range bookings {
		if b.CompletedAt == nil {
			continue
		}

		report.TotalEarnings += b.Earnings()
		report.Rides++
		report.Items = append(report.Items, lineItem(b, b.CompletedAt))

		day := b.CompletedAt.UTC().Format("2006-01-02")
		bucket, ok := buckets[day]
		if !ok {
			bucket = &DailyEarnings{Date: day}
			buckets[day] = bucket
		}
		bucket.Earnings += b.Earnings()
		bucket.Rides++
	}

	if report.Rides > 0 {
		report.AveragePerRide = report.TotalEarnings / float64(report.Rides)
	}

	for _, bucket := range buckets {
		report.Daily = append(report.Daily, *bucket)
	}
	sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Date < report.Daily[j].Date })

	return report, nil
}

// EarningsHistory lists bookings with accrued earnings as line items,
// newest outbound date first. Confirmed work appears alongside
// completed work, matching the stats reports.
func (s *earningsService) EarningsHistory(ctx context.Context, driverID string, from, to *time.Time) ([]LineItem, error) {
	if driverID == "" {
		return nil, apperrors.InvalidInput("Driver ID cannot be empty")
	}

	bookings, err := s.repo.FindByDriver(ctx, driverID, reportStatuses)
	if err != nil {
		return nil, apperrors.Internal("Failed to load driver bookings", err)
	}

	items := []LineItem{}
	for _, b := range bookings {
		if b.Earnings() <= 0 {
			continue
		}

		date := b.OutboundDate()
		if from != nil && (date == nil || date.Before(*from)) {
			continue
		}
		if to != nil && (date == nil || date.After(*to)) {
			continue
		}

		items = append(items, lineItem(b, date))
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Date, items[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	return items, nil
}

func lineItem(b *model.Booking, date *time.Time) LineItem {
	airport := ""
	if b.Journey.Outbound != nil {
		airport = b.Journey.Outbound.Airport
	} else if b.Journey.Inbound != nil {
		airport = b.Journey.Inbound.Airport
	}

	return LineItem{
		BookingID:     b.ID,
		Reference:     b.BookingReference,
		Date:          date,
		Earnings:      b.Earnings(),
		ClientName:    b.Client.FullName(),
		OriginCity:    b.Client.Address.City,
		Airport:       airport,
		PaymentMethod: b.PaymentMethod,
	}
}

func inRange(date *time.Time, start, end time.Time) bool {
	if date == nil {
		return false
	}
	return !date.Before(start) && date.Before(end)
}

// sundayWeekStart truncates to the most recent Sunday midnight.
func sundayWeekStart(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -int(now.Weekday()))
}

// isoWeekStart truncates to the most recent Monday midnight.
func isoWeekStart(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(now.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}
