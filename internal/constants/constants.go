// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Embedding constants
const (
	// DefaultEmbeddingDim is the descriptor length produced by the face recognition net
	DefaultEmbeddingDim = 128
)

// Face matching constants
const (
	// DefaultMatchThreshold is the maximum Euclidean distance for two embeddings
	// to be considered the same person. Lower values = stricter matching
	DefaultMatchThreshold = 0.55

	// DefaultMinConfidence is the minimum detector score for a face to count at all
	DefaultMinConfidence = 0.5

	// DefaultMinQualityScore is the stricter detector score required during registration
	DefaultMinQualityScore = 0.6
)

// Capture session constants
const (
	// DefaultDetectionInterval is how often a frame is evaluated while scanning
	DefaultDetectionInterval = 300 * time.Millisecond

	// DefaultDetectTimeout bounds a single detection call
	DefaultDetectTimeout = 5 * time.Second

	// DefaultCountdownTicks is the number of countdown ticks before a registration capture
	DefaultCountdownTicks = 3

	// DefaultCountdownTick is the duration of a single countdown tick
	DefaultCountdownTick = 800 * time.Millisecond

	// DefaultGuideRadiusPercent is the guide circle radius as a fraction of the smaller frame side
	DefaultGuideRadiusPercent = 0.25

	// DefaultGuideTolerance scales the guide radius; the face centre must fall inside radius*tolerance
	DefaultGuideTolerance = 0.9

	// EventChannelBuffer is the buffer size for capture status channels
	EventChannelBuffer = 32
)

// Camera constants
const (
	// MaxFrameSize is the maximum dimension (width or height) of a frame sent to the detector
	MaxFrameSize = 640

	// FrameJPEGQuality is the JPEG quality used when re-encoding frames
	FrameJPEGQuality = 85
)
