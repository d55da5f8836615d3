package types

// Model represents a loadable GGUF model file found under the models base path.
type Model struct {
	// File name of the model, as accepted by PUT /model.
	// example: Llama-3.2-1B-Instruct-Q4_K_M.gguf
	ID string `json:"id" example:"Llama-3.2-1B-Instruct-Q4_K_M.gguf"`
	// Model name with the extension stripped, as reported by GET /model.
	// example: Llama-3.2-1B-Instruct-Q4_K_M
	Name string `json:"name" example:"Llama-3.2-1B-Instruct-Q4_K_M"`
	// Absolute path to the model file on disk.
	// example: /srv/llms/Llama-3.2-1B-Instruct-Q4_K_M.gguf
	Path string `json:"path" example:"/srv/llms/Llama-3.2-1B-Instruct-Q4_K_M.gguf"`
	// File size in bytes.
	// example: 807690656
	SizeBytes int64 `json:"size_bytes" example:"807690656"`
}
