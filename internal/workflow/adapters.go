package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/logging"
)

// GatewayRegistrar registers through the gateway, which creates the backend
// user and enrolls the face.
type GatewayRegistrar struct {
	Client *gateway.Client
}

func (r GatewayRegistrar) Register(ctx context.Context, d Details, face embedding.Vector) (*Account, error) {
	encoded, err := embedding.Encode(face)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Register(ctx, gateway.RegisterRequest{
		Name:          d.Name,
		Email:         d.Email,
		Password:      d.Password,
		Gender:        d.Gender,
		FaceEmbedding: encoded,
	})
	if err != nil {
		return nil, err
	}
	return &Account{UserID: resp.User.ID, Name: resp.User.Name, Email: resp.User.Email}, nil
}

// BackendRegistrar creates the user directly in the backend.
type BackendRegistrar struct {
	Client *backend.Client
}

func (r BackendRegistrar) Register(ctx context.Context, d Details, face embedding.Vector) (*Account, error) {
	encoded, err := embedding.Encode(face)
	if err != nil {
		return nil, err
	}
	user, err := r.Client.CreateUser(ctx, backend.CreateUserRequest{
		Name:          d.Name,
		Email:         d.Email,
		Password:      d.Password,
		Gender:        d.Gender,
		FaceEmbedding: encoded,
	})
	if err != nil {
		return nil, err
	}
	return &Account{UserID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// GatewayIdentifier matches faces on the gateway. Only the captured face is sent.
type GatewayIdentifier struct {
	Client *gateway.Client
}

func (g GatewayIdentifier) Identify(ctx context.Context, face embedding.Vector) (*Identity, error) {
	resp, err := g.Client.Identify(ctx, face)
	if err != nil {
		return nil, err
	}
	id := &Identity{Assertion: resp.Assertion, SessionID: resp.SessionID}
	if resp.User != nil {
		id.UserID, id.Name, id.Email = resp.User.ID, resp.User.Name, resp.User.Email
	}
	if resp.Distance != nil {
		id.Distance = *resp.Distance
	}
	return id, nil
}

// UserLister lists backend users with their encoded faces.
type UserLister interface {
	ListUsers(ctx context.Context) ([]backend.User, error)
}

// LocalIdentifier downloads every user's face and matches locally. Users
// whose stored face cannot be decoded are skipped.
type LocalIdentifier struct {
	Users     UserLister
	Threshold float64
	Logger    *slog.Logger
}

func (l LocalIdentifier) Identify(ctx context.Context, face embedding.Vector) (*Identity, error) {
	users, err := l.Users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	candidates := make([]facematch.Candidate, len(users))
	for i, u := range users {
		candidates[i] = facematch.Candidate{ID: u.ID, Name: u.Name, Email: u.Email, Embedding: u.FaceEmbedding}
	}

	res := facematch.MatchCandidates(face, candidates, l.Threshold)
	logger := l.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Debug("local match", "candidates", len(candidates), "compared", res.Compared,
		"skipped", res.Skipped, "distance", res.Distance, "matched", res.Matched)

	if !res.Matched {
		return nil, fmt.Errorf("%w (best distance %.3f)", facematch.ErrNoMatch, res.Distance)
	}
	c := res.Candidate
	return &Identity{UserID: c.ID, Name: c.Name, Email: c.Email, Distance: res.Distance}, nil
}

// GatewayAttendance identifies on the gateway, which forwards to the backend
// with a signed assertion.
type GatewayAttendance struct {
	Client *gateway.Client
}

func (g GatewayAttendance) CheckIn(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error) {
	resp, err := g.Client.CheckIn(ctx, face, location)
	if err != nil {
		return nil, err
	}
	return gatewayResult(resp), nil
}

func (g GatewayAttendance) CheckOut(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error) {
	resp, err := g.Client.CheckOut(ctx, face, location)
	if err != nil {
		return nil, err
	}
	return gatewayResult(resp), nil
}

func gatewayResult(resp *gateway.AttendanceResponse) *AttendanceResult {
	r := &AttendanceResult{}
	if resp.User != nil {
		r.UserID, r.Name = resp.User.ID, resp.User.Name
	}
	if resp.Distance != nil {
		r.Distance = *resp.Distance
	}
	if resp.Attendance != nil {
		r.Message, r.Status = resp.Attendance.Message, resp.Attendance.Status
	}
	return r
}

// BackendAttendance posts the face straight to the backend, which does its own matching.
type BackendAttendance struct {
	Client *backend.Client
}

func (b BackendAttendance) CheckIn(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error) {
	return b.record(ctx, b.Client.CheckIn, face, location)
}

func (b BackendAttendance) CheckOut(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error) {
	return b.record(ctx, b.Client.CheckOut, face, location)
}

func (b BackendAttendance) record(ctx context.Context,
	call func(context.Context, backend.CheckInRequest) (*backend.AttendanceResponse, error),
	face embedding.Vector, location string,
) (*AttendanceResult, error) {
	encoded, err := embedding.Encode(face)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, backend.CheckInRequest{FaceEmbedding: encoded, Location: location})
	if err != nil {
		return nil, err
	}
	r := &AttendanceResult{Message: resp.Message, Status: resp.Status}
	if resp.User != nil {
		r.UserID, r.Name = resp.User.ID, resp.User.Name
	}
	return r, nil
}
