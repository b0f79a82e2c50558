package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/facematch"
)

const defaultDetectorURL = "http://localhost:8000"

// Detection is the single face picked from a frame.
type Detection struct {
	Embedding embedding.Vector
	Box       facematch.Box
	Score     float64 // detector confidence, 0-1
	Faces     int     // faces found in the frame
}

// Detector finds the most prominent face in a frame. It returns nil, nil when
// the frame contains no face.
type Detector interface {
	Detect(ctx context.Context, frame Frame) (*Detection, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, frame Frame) (*Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, frame Frame) (*Detection, error) {
	return f(ctx, frame)
}

// HTTPDetector calls the face embedding service.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDetector creates a detector for the embedding service at baseURL.
func NewHTTPDetector(baseURL string) *HTTPDetector {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &HTTPDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// faceDetection is a single face in the service response
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Detect posts the frame to /embed/face and returns the highest scoring face.
func (d *HTTPDetector) Detect(ctx context.Context, frame Frame) (*Detection, error) {
	body, err := d.postFrame(ctx, "/embed/face", frame.JPEG)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return pickFace(resp.Faces)
}

func pickFace(faces []faceDetection) (*Detection, error) {
	best := -1
	for i, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		if best < 0 || f.DetScore > faces[best].DetScore {
			best = i
		}
	}
	if best < 0 {
		return nil, nil
	}

	f := faces[best]
	box, ok := facematch.BoxFromCorners(f.BBox)
	if !ok {
		return nil, errors.New("detector returned an invalid bounding box")
	}
	return &Detection{
		Embedding: embedding.FromFloat32(f.Embedding),
		Box:       box,
		Score:     f.DetScore,
		Faces:     len(faces),
	}, nil
}

func (d *HTTPDetector) postFrame(ctx context.Context, endpoint string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write frame data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
