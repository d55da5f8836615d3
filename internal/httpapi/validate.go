package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"koboldswitch/internal/controller"
	"koboldswitch/pkg/types"
)

// validateModelRequest returns every problem with a start request.
func validateModelRequest(req types.ModelRequest) []string {
	var errs []string
	if strings.TrimSpace(req.Model) == "" {
		errs = append(errs, "model is required")
	}
	if req.ContextSize != nil && (*req.ContextSize < contextSizeMin || *req.ContextSize > contextSizeMax) {
		errs = append(errs, fmt.Sprintf("contextSize must be in range [%d to %d]", contextSizeMin, contextSizeMax))
	}
	if req.GPULayers != nil && *req.GPULayers < -1 {
		errs = append(errs, "gpuLayers must be >= -1")
	}
	if req.Threads != nil && *req.Threads < 0 {
		errs = append(errs, "threads must be >= 0")
	}
	if req.TensorSplit != nil {
		if len(req.TensorSplit) < 2 {
			errs = append(errs, "tensorSplit must be float array with minimal length of two")
		}
		for _, v := range req.TensorSplit {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				errs = append(errs, "tensorSplit values must be valid non-negative floats")
				break
			}
		}
	}
	return errs
}

func toRunArgs(req types.ModelRequest) controller.RunArgs {
	return controller.RunArgs{
		Model:       strings.TrimSpace(req.Model),
		ContextSize: req.ContextSize,
		GPULayers:   req.GPULayers,
		Threads:     req.Threads,
		TensorSplit: req.TensorSplit,
	}
}

// toStatusResponse reports the error only while failed and the model only
// while one is loaded; the controller keeps both across transitions.
func toStatusResponse(st controller.Status) types.ModelStatusResponse {
	resp := types.ModelStatusResponse{
		Status:      string(st.State),
		Model:       st.Name,
		Independent: st.Independent,
	}
	if st.State == controller.StateFailed {
		resp.Error = st.Error
	}
	if st.State == controller.StateOffline {
		resp.Model = ""
		resp.Independent = false
	}
	return resp
}

// parseWait reads the optional ?wait= duration (Go syntax, e.g. 30s).
// Values above the configured cap are clamped.
func parseWait(r *http.Request) (time.Duration, error) {
	v := r.URL.Query().Get("wait")
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("wait must be a non-negative duration such as 30s, got %q", v)
	}
	if d > maxWait {
		d = maxWait
	}
	return d, nil
}
