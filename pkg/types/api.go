package types

// ModelRequest is the body of PUT /model.
type ModelRequest struct {
	// Model file name (resolved against the models base path) or absolute path.
	// example: Llama-3.2-1B-Instruct-Q4_K_M.gguf
	Model string `json:"model" example:"Llama-3.2-1B-Instruct-Q4_K_M.gguf"`
	// Context size in tokens.
	// example: 12288
	ContextSize *int `json:"contextSize,omitempty" example:"12288"`
	// Number of layers to offload to the GPU; -1 offloads all layers.
	// example: 81
	GPULayers *int `json:"gpuLayers,omitempty" example:"81"`
	// CPU threads; 0 or omitted uses the host's available parallelism.
	// example: 8
	Threads *int `json:"threads,omitempty" example:"8"`
	// Split ratios across GPUs, at least two non-negative values.
	// example: [29,52]
	TensorSplit []float64 `json:"tensorSplit,omitempty" example:"29,52"`
}

// ModelStatusResponse is returned by GET /model.
type ModelStatusResponse struct {
	// Lifecycle state: offline, loading, online, stopping or failed.
	// example: online
	Status string `json:"status" example:"online"`
	// Loaded model name without extension.
	// example: Llama-3.2-1B-Instruct-Q4_K_M
	Model string `json:"model,omitempty" example:"Llama-3.2-1B-Instruct-Q4_K_M"`
	// Last failure detail.
	Error string `json:"error,omitempty"`
	// True when the running model was not started by this controller.
	Independent bool `json:"independent,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ValidationErrorResponse lists every problem found in a request body.
type ValidationErrorResponse struct {
	// Validation messages.
	// example: ["model is required"]
	Errors []string `json:"errors" example:"model is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
