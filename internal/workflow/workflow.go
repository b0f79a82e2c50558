// Package workflow ties a capture session to what happens with the captured
// face: registration, login and attendance.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/password"
)

// DefaultLocation is sent with attendance calls when none is given.
const DefaultLocation = "Office"

// Validation errors for registration details.
var (
	ErrInvalidName  = errors.New("name must be at least 3 characters")
	ErrInvalidEmail = errors.New("email address is not valid")
)

// Runner runs a capture session. *capture.Session implements it.
type Runner interface {
	Run(ctx context.Context, submit capture.SubmitFunc) (*capture.Capture, error)
}

// Details is the personal information collected before the face capture.
type Details struct {
	Name     string
	Email    string
	Password string
	Gender   string
}

// Normalize trims and sanitizes the details in place.
func (d *Details) Normalize() {
	d.Name = password.Sanitize(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Gender = strings.ToLower(strings.TrimSpace(d.Gender))
	if d.Gender == "" {
		d.Gender = "other"
	}
}

// Validate checks the details. The password is only checked when rules is non-nil.
func (d Details) Validate(rules *password.Rules) error {
	var errs []error
	if !password.ValidName(d.Name) {
		errs = append(errs, ErrInvalidName)
	}
	if !password.ValidEmail(d.Email) {
		errs = append(errs, ErrInvalidEmail)
	}
	if rules != nil {
		errs = append(errs, rules.Validate(d.Password)...)
	}
	return errors.Join(errs...)
}

// Account is a registered user.
type Account struct {
	UserID int64
	Name   string
	Email  string
}

// Registrar persists a new user with its face.
type Registrar interface {
	Register(ctx context.Context, details Details, face embedding.Vector) (*Account, error)
}

// Identity is a user recognized by face.
type Identity struct {
	UserID    int64
	Name      string
	Email     string
	Distance  float64
	Assertion string
	SessionID string
}

// Identifier finds the user a face belongs to. It returns an error wrapping
// facematch.ErrNoMatch when nobody is close enough.
type Identifier interface {
	Identify(ctx context.Context, face embedding.Vector) (*Identity, error)
}

// AttendanceResult is a recorded check-in or check-out.
type AttendanceResult struct {
	UserID   int64
	Name     string
	Distance float64
	Message  string
	Status   string
}

// Attendance records arrivals and departures of the user behind a face.
type Attendance interface {
	CheckIn(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error)
	CheckOut(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error)
}

// Register runs a registration capture and submits details with the captured face.
// Details are validated before the camera is opened.
func Register(ctx context.Context, session Runner, registrar Registrar, details Details, rules *password.Rules) (*Account, error) {
	details.Normalize()
	if err := details.Validate(rules); err != nil {
		return nil, err
	}

	var account *Account
	_, err := session.Run(ctx, func(ctx context.Context, c *capture.Capture) error {
		a, err := registrar.Register(ctx, details, c.Embedding)
		if err != nil {
			return fmt.Errorf("register %s: %w", details.Email, err)
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Login runs a login capture and identifies the captured face.
func Login(ctx context.Context, session Runner, identifier Identifier) (*Identity, error) {
	var identity *Identity
	_, err := session.Run(ctx, func(ctx context.Context, c *capture.Capture) error {
		id, err := identifier.Identify(ctx, c.Embedding)
		if err != nil {
			return err
		}
		identity = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// CheckIn runs a login capture and records an arrival for the captured face.
func CheckIn(ctx context.Context, session Runner, attendance Attendance, location string) (*AttendanceResult, error) {
	return recordAttendance(ctx, session, attendance.CheckIn, location)
}

// CheckOut runs a login capture and records a departure for the captured face.
func CheckOut(ctx context.Context, session Runner, attendance Attendance, location string) (*AttendanceResult, error) {
	return recordAttendance(ctx, session, attendance.CheckOut, location)
}

type attendanceFunc func(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error)

func recordAttendance(ctx context.Context, session Runner, record attendanceFunc, location string) (*AttendanceResult, error) {
	if strings.TrimSpace(location) == "" {
		location = DefaultLocation
	}

	var result *AttendanceResult
	_, err := session.Run(ctx, func(ctx context.Context, c *capture.Capture) error {
		r, err := record(ctx, c.Embedding, location)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
