package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrCameraUnavailable is returned when no camera source can be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrCameraDenied is returned when the camera refuses access.
	ErrCameraDenied = errors.New("camera access denied")
	// ErrStreamStopped is returned by Frame after Stop.
	ErrStreamStopped = errors.New("camera stream stopped")
)

// maxSnapshotSize caps a single snapshot download.
const maxSnapshotSize = 20 << 20

// Camera is a source of frames.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera. Stop releases it and is safe to call more than once.
type Stream interface {
	Frame(ctx context.Context) (Frame, error)
	Stop()
	Live() bool
}

// SnapshotCamera reads JPEG snapshots from an IP camera's HTTP endpoint.
type SnapshotCamera struct {
	URL     string
	MaxSize int
	Client  *http.Client
}

// NewSnapshotCamera creates a camera for the snapshot endpoint at url.
func NewSnapshotCamera(url string, maxSize int) *SnapshotCamera {
	return &SnapshotCamera{URL: url, MaxSize: maxSize, Client: &http.Client{Timeout: 10 * time.Second}}
}

// Open probes the endpoint once so that permission and connectivity
// problems surface before scanning starts.
func (c *SnapshotCamera) Open(ctx context.Context) (Stream, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("%w: no snapshot URL configured", ErrCameraUnavailable)
	}
	s := &snapshotStream{cam: c}
	if _, err := s.fetch(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type snapshotStream struct {
	cam     *SnapshotCamera
	stopped atomic.Bool
}

func (s *snapshotStream) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cam.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	client := s.cam.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req) //nolint:gosec // URL comes from configuration
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrCameraDenied, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrCameraUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	return data, nil
}

func (s *snapshotStream) Frame(ctx context.Context) (Frame, error) {
	if s.stopped.Load() {
		return Frame{}, ErrStreamStopped
	}
	data, err := s.fetch(ctx)
	if err != nil {
		return Frame{}, err
	}
	return NormalizeFrame(data, s.cam.MaxSize)
}

func (s *snapshotStream) Stop()      { s.stopped.Store(true) }
func (s *snapshotStream) Live() bool { return !s.stopped.Load() }

var frameExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// DirCamera replays image files from a directory in name order, looping
// forever. It is used for recorded sessions and kiosks without a live camera.
type DirCamera struct {
	Dir     string
	MaxSize int
}

// NewDirCamera creates a camera replaying the frames in dir.
func NewDirCamera(dir string, maxSize int) *DirCamera {
	return &DirCamera{Dir: dir, MaxSize: maxSize}
}

func (c *DirCamera) Open(ctx context.Context) (Stream, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrCameraDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(frameExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(c.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", ErrCameraUnavailable, c.Dir)
	}
	slices.Sort(files)

	return &dirStream{files: files, maxSize: c.MaxSize}, nil
}

type dirStream struct {
	mu      sync.Mutex
	files   []string
	next    int
	maxSize int
	stopped bool
}

func (s *dirStream) Frame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return Frame{}, ErrStreamStopped
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("read frame %s: %w", filepath.Base(path), err)
	}
	return NormalizeFrame(data, s.maxSize)
}

func (s *dirStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *dirStream) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// CameraFromConfig picks the snapshot camera when url is set, otherwise the directory camera.
func CameraFromConfig(url, dir string, maxSize int) (Camera, error) {
	switch {
	case url != "":
		return NewSnapshotCamera(url, maxSize), nil
	case dir != "":
		return NewDirCamera(dir, maxSize), nil
	default:
		return nil, fmt.Errorf("%w: set CAMERA_URL or CAMERA_DIR", ErrCameraUnavailable)
	}
}
