package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeFrame(t *testing.T) {
	tests := []struct {
		name          string
		w, h, maxSize int
		wantW, wantH  int
	}{
		{"landscape downsized", 1000, 500, 640, 640, 320},
		{"portrait downsized", 300, 900, 600, 200, 600},
		{"small kept", 320, 240, 640, 320, 240},
		{"no limit", 800, 600, 0, 800, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := NormalizeFrame(encodePNG(t, tt.w, tt.h), tt.maxSize)
			if err != nil {
				t.Fatalf("NormalizeFrame() error: %v", err)
			}
			if frame.Width != tt.wantW || frame.Height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", frame.Width, frame.Height, tt.wantW, tt.wantH)
			}
			if len(frame.JPEG) < 3 || frame.JPEG[0] != 0xFF || frame.JPEG[1] != 0xD8 {
				t.Error("frame should be JPEG encoded")
			}
		})
	}
}

func TestNormalizeFrame_Invalid(t *testing.T) {
	if _, err := NormalizeFrame(nil, 640); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
	if _, err := NormalizeFrame([]byte("not an image"), 640); err == nil {
		t.Error("expected decode error")
	}
}

func TestDirCamera(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), encodePNG(t, 40, 30), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600); err != nil {
		t.Fatal(err)
	}

	stream, err := NewDirCamera(dir, 640).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	for range 3 {
		frame, err := stream.Frame(context.Background())
		if err != nil {
			t.Fatalf("Frame() error: %v", err)
		}
		if frame.Width != 40 || frame.Height != 30 {
			t.Errorf("unexpected frame size %dx%d", frame.Width, frame.Height)
		}
	}

	stream.Stop()
	stream.Stop()
	if stream.Live() {
		t.Error("stream should not be live after Stop")
	}
	if _, err := stream.Frame(context.Background()); !errors.Is(err, ErrStreamStopped) {
		t.Errorf("expected ErrStreamStopped, got %v", err)
	}
}

func TestDirCamera_Unavailable(t *testing.T) {
	if _, err := NewDirCamera(t.TempDir(), 640).Open(context.Background()); !errors.Is(err, ErrCameraUnavailable) {
		t.Errorf("empty dir: expected ErrCameraUnavailable, got %v", err)
	}
	if _, err := NewDirCamera(filepath.Join(t.TempDir(), "missing"), 640).Open(context.Background()); !errors.Is(err, ErrCameraUnavailable) {
		t.Errorf("missing dir: expected ErrCameraUnavailable, got %v", err)
	}
}

func TestSnapshotCamera(t *testing.T) {
	img := encodePNG(t, 64, 48)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	})
	mux.HandleFunc("/denied.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/broken.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	stream, err := NewSnapshotCamera(server.URL+"/ok.jpg", 640).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	frame, err := stream.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame() error: %v", err)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("unexpected frame size %dx%d", frame.Width, frame.Height)
	}
	stream.Stop()
	if _, err := stream.Frame(context.Background()); !errors.Is(err, ErrStreamStopped) {
		t.Errorf("expected ErrStreamStopped, got %v", err)
	}

	if _, err := NewSnapshotCamera(server.URL+"/denied.jpg", 640).Open(context.Background()); !errors.Is(err, ErrCameraDenied) {
		t.Errorf("expected ErrCameraDenied, got %v", err)
	}
	if _, err := NewSnapshotCamera(server.URL+"/broken.jpg", 640).Open(context.Background()); !errors.Is(err, ErrCameraUnavailable) {
		t.Errorf("expected ErrCameraUnavailable, got %v", err)
	}
}

func TestCameraFromConfig(t *testing.T) {
	cam, err := CameraFromConfig("http://cam/snapshot.jpg", "/frames", 640)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cam.(*SnapshotCamera); !ok {
		t.Errorf("URL should take precedence, got %T", cam)
	}

	cam, err = CameraFromConfig("", "/frames", 640)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cam.(*DirCamera); !ok {
		t.Errorf("expected DirCamera, got %T", cam)
	}

	if _, err := CameraFromConfig("", "", 640); !errors.Is(err, ErrCameraUnavailable) {
		t.Errorf("expected ErrCameraUnavailable, got %v", err)
	}
}
