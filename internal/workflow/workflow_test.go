package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/password"
)

// fakeRunner hands a fixed capture to submit, or fails before capturing.
type fakeRunner struct {
	face    embedding.Vector
	err     error
	runs    int
	submits int
}

func (r *fakeRunner) Run(ctx context.Context, submit capture.SubmitFunc) (*capture.Capture, error) {
	r.runs++
	if r.err != nil {
		return nil, r.err
	}
	c := &capture.Capture{Embedding: r.face, Score: 0.9}
	if submit == nil {
		return c, nil
	}
	r.submits++
	return c, submit(ctx, c)
}

type fakeRegistrar struct {
	got  Details
	face embedding.Vector
	err  error
}

func (f *fakeRegistrar) Register(ctx context.Context, d Details, face embedding.Vector) (*Account, error) {
	f.got, f.face = d, face
	if f.err != nil {
		return nil, f.err
	}
	return &Account{UserID: 12, Name: d.Name, Email: d.Email}, nil
}

type fakeLister struct {
	users []backend.User
	err   error
}

func (f fakeLister) ListUsers(ctx context.Context) ([]backend.User, error) {
	return f.users, f.err
}

type fakeAttendance struct {
	location string
	action   string
}

func (f *fakeAttendance) CheckIn(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error) {
	f.location, f.action = location, "in"
	return &AttendanceResult{UserID: 3, Message: "Check-in successful"}, nil
}

func (f *fakeAttendance) CheckOut(ctx context.Context, face embedding.Vector, location string) (*AttendanceResult, error) {
	f.location, f.action = location, "out"
	return &AttendanceResult{UserID: 3, Message: "Check-out successful"}, nil
}

func validDetails() Details {
	return Details{Name: "  Ayu Lestari ", Email: " Ayu@Example.com", Password: "Secur3!Pass"}
}

func TestRegister(t *testing.T) {
	runner := &fakeRunner{face: embedding.Vector{0.1, 0.2}}
	reg := &fakeRegistrar{}
	rules := password.DefaultRules()

	account, err := Register(context.Background(), runner, reg, validDetails(), &rules)
	require.NoError(t, err)
	assert.Equal(t, int64(12), account.UserID)
	assert.Equal(t, "Ayu Lestari", reg.got.Name)
	assert.Equal(t, "ayu@example.com", reg.got.Email)
	assert.Equal(t, "other", reg.got.Gender)
	assert.Equal(t, embedding.Vector{0.1, 0.2}, reg.face)
}

func TestRegister_InvalidDetailsSkipCamera(t *testing.T) {
	runner := &fakeRunner{face: embedding.Vector{0.1}}
	rules := password.DefaultRules()

	_, err := Register(context.Background(), runner, &fakeRegistrar{},
		Details{Name: "Al", Email: "nope", Password: "short"}, &rules)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.ErrorIs(t, err, password.ErrTooShort)
	assert.Zero(t, runner.runs, "camera must not be opened for invalid details")
}

func TestRegister_PersistenceError(t *testing.T) {
	runner := &fakeRunner{face: embedding.Vector{0.1}}
	backendErr := &backend.APIError{Status: 400, Message: "Email already registered"}

	_, err := Register(context.Background(), runner, &fakeRegistrar{err: backendErr}, validDetails(), nil)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Email already registered", apiErr.Message)
}

func TestLogin_Local(t *testing.T) {
	users := []backend.User{
		{ID: 1, Name: "broken", FaceEmbedding: "{not json"},
		{ID: 2, Name: "empty"},
		{ID: 3, Name: "Ayu", FaceEmbedding: embedding.MustEncode(embedding.Vector{0.1, 0.1})},
		{ID: 4, Name: "Budi", FaceEmbedding: embedding.MustEncode(embedding.Vector{0.9, 0.9})},
	}
	identifier := LocalIdentifier{Users: fakeLister{users: users}, Threshold: 0.55}
	runner := &fakeRunner{face: embedding.Vector{0.12, 0.1}}

	id, err := Login(context.Background(), runner, identifier)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id.UserID)
	assert.InDelta(t, 0.02, id.Distance, 1e-9)
}

func TestLogin_NoMatch(t *testing.T) {
	users := []backend.User{
		{ID: 4, Name: "Budi", FaceEmbedding: embedding.MustEncode(embedding.Vector{0.9, 0.9})},
	}
	identifier := LocalIdentifier{Users: fakeLister{users: users}, Threshold: 0.55}

	_, err := Login(context.Background(), &fakeRunner{face: embedding.Vector{0.1, 0.1}}, identifier)
	assert.ErrorIs(t, err, facematch.ErrNoMatch)
}

func TestLogin_BackendDown(t *testing.T) {
	identifier := LocalIdentifier{Users: fakeLister{err: errors.New("connection refused")}, Threshold: 0.55}

	_, err := Login(context.Background(), &fakeRunner{face: embedding.Vector{0.1}}, identifier)
	require.Error(t, err)
	assert.NotErrorIs(t, err, facematch.ErrNoMatch)
}

func TestLogin_Cancelled(t *testing.T) {
	runner := &fakeRunner{err: capture.ErrCancelled}

	_, err := Login(context.Background(), runner, LocalIdentifier{Users: fakeLister{}})
	assert.ErrorIs(t, err, capture.ErrCancelled)
	assert.Zero(t, runner.submits)
}

func TestCheckInOut(t *testing.T) {
	att := &fakeAttendance{}

	res, err := CheckIn(context.Background(), &fakeRunner{face: embedding.Vector{0.1}}, att, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, att.location)
	assert.Equal(t, "in", att.action)
	assert.Equal(t, int64(3), res.UserID)

	res, err = CheckOut(context.Background(), &fakeRunner{face: embedding.Vector{0.1}}, att, "Branch")
	require.NoError(t, err)
	assert.Equal(t, "Branch", att.location)
	assert.Equal(t, "out", att.action)
	assert.Equal(t, "Check-out successful", res.Message)
}
