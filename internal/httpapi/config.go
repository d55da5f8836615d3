package httpapi

import (
	"time"

	"koboldswitch/internal/controller"
)

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// maxWait caps the ?wait= duration accepted by PUT and DELETE /model.
var maxWait = 10 * time.Minute

// SetMaxWait sets the ?wait= cap; non-positive restores the default.
func SetMaxWait(d time.Duration) {
	if d <= 0 {
		maxWait = 10 * time.Minute
		return
	}
	maxWait = d
}

// Context size bounds used by request validation.
var (
	contextSizeMin = controller.DefaultContextSizeMin
	contextSizeMax = controller.DefaultContextSizeMax
)

// SetContextSizeRange sets the inclusive contextSize bounds; non-positive values keep the defaults.
func SetContextSizeRange(minSize, maxSize int) {
	contextSizeMin, contextSizeMax = controller.DefaultContextSizeMin, controller.DefaultContextSizeMax
	if minSize > 0 {
		contextSizeMin = minSize
	}
	if maxSize > 0 {
		contextSizeMax = maxSize
	}
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. Empty methods
// or headers fall back to what the model endpoints need.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
