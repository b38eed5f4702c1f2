package model

import (
	"fmt"
	"time"
)

const (
	DriverActive   = "active"
	DriverInactive = "inactive"
)

type VehicleInfo struct {
	Brand        string `json:"brand,omitempty" bson:"brand,omitempty" validate:"omitempty,max=50"`
	Model        string `json:"model,omitempty" bson:"model,omitempty" validate:"omitempty,max=50"`
	Year         int    `json:"year,omitempty" bson:"year,omitempty" validate:"omitempty,min=1980,max=2100"`
	Seats        int    `json:"seats,omitempty" bson:"seats,omitempty" validate:"omitempty,min=1,max=9"`
	LicensePlate string `json:"license_plate,omitempty" bson:"license_plate,omitempty" validate:"omitempty,max=15"`
}

type ProfessionalInfo struct {
	LicenseNumber   string     `json:"license_number,omitempty" bson:"license_number,omitempty" validate:"omitempty,max=50"`
	LicenseExpiry   *time.Time `json:"license_expiry,omitempty" bson:"license_expiry,omitempty"`
	InsuranceNumber string     `json:"insurance_number,omitempty" bson:"insurance_number,omitempty" validate:"omitempty,max=50"`
	InsuranceExpiry *time.Time `json:"insurance_expiry,omitempty" bson:"insurance_expiry,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty" bson:"start_date,omitempty"`
}

type Driver struct {
	ID                  string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	FirstName           string            `json:"first_name" bson:"first_name" validate:"required,min=2,max=50"`
	LastName            string            `json:"last_name" bson:"last_name" validate:"required,min=2,max=50"`
	Email               string            `json:"email" bson:"email" validate:"required,simple_email"`
	Phone               string            `json:"phone" bson:"phone" validate:"required,min=6,max=20"`
	PasswordHash        string            `json:"-" bson:"password_hash"`
	Status              string            `json:"status" bson:"status" validate:"omitempty,oneof=active inactive"`
	Vehicle             *VehicleInfo      `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	Professional        *ProfessionalInfo `json:"professional,omitempty" bson:"professional,omitempty"`
	Rating              float64           `json:"rating" bson:"rating" validate:"min=0,max=10"`
	TotalRides          int               `json:"total_rides" bson:"total_rides" validate:"min=0"`
	CompletedRides      int               `json:"completed_rides" bson:"completed_rides" validate:"min=0"`
	TotalEarnings       float64           `json:"total_earnings" bson:"total_earnings" validate:"min=0"`
	FailedLoginAttempts int               `json:"-" bson:"failed_login_attempts"`
	LockedUntil         *time.Time        `json:"-" bson:"locked_until,omitempty"`
	LastLogin           *time.Time        `json:"last_login,omitempty" bson:"last_login,omitempty"`
	CreatedAt           time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at" bson:"updated_at"`
}

func (d *Driver) FullName() string {
	return fmt.Sprintf("%s %s", d.FirstName, d.LastName)
}

// Locked reports whether the lockout window is still open at now.
func (d *Driver) Locked(now time.Time) bool {
	return d.LockedUntil != nil && d.LockedUntil.After(now)
}

// DriverPublic is the roster projection exposed without authentication.
type DriverPublic struct {
	ID        string       `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Vehicle   *VehicleInfo `json:"vehicle,omitempty"`
	Rating    float64      `json:"rating"`
}

func (d *Driver) PublicView() DriverPublic {
	return DriverPublic{
		ID:        d.ID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Vehicle:   d.Vehicle,
		Rating:    d.Rating,
	}
}

// DriverUpdate carries profile fields a driver or admin may change.
// Credentials and aggregate stats are never updated through this path.
type DriverUpdate struct {
	FirstName    string            `json:"first_name,omitempty" validate:"omitempty,min=2,max=50"`
	LastName     string            `json:"last_name,omitempty" validate:"omitempty,min=2,max=50"`
	Phone        string            `json:"phone,omitempty" validate:"omitempty,min=6,max=20"`
	Status       string            `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	Vehicle      *VehicleInfo      `json:"vehicle,omitempty"`
	Professional *ProfessionalInfo `json:"professional,omitempty"`
}
