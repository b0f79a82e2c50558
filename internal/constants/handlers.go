// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Gateway constants
const (
	// MaxRequestBodySize caps JSON request bodies (an encoded embedding is a few KB)
	MaxRequestBodySize = 1 << 20

	// DefaultAssertionTTL is how long an identity assertion stays valid
	DefaultAssertionTTL = 15 * time.Minute

	// SessionCleanupInterval is how often expired sessions are purged
	SessionCleanupInterval = 10 * time.Minute

	// BackendTimeout bounds a single call to the external backend
	BackendTimeout = 30 * time.Second
)

// Status messages surfaced to the person in front of the camera
const (
	MsgNoFace      = "No face detected. Make sure there is enough light."
	MsgLowQuality  = "Face is not clear enough. Move closer or find better light."
	MsgReposition  = "Position your face inside the guide circle."
	MsgStayStill   = "Stay still, capturing..."
	MsgCaptured    = "Face captured."
	MsgMatchFailed = "Face not recognized. Register first or try again."
	MsgCameraError = "Could not access the camera. Check permissions."
)
