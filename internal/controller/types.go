package controller

// State represents the lifecycle state of the supervised model process.
type State string

const (
	StateOffline  State = "offline"
	StateLoading  State = "loading"
	StateOnline   State = "online"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
)

// changing reports whether a lifecycle transition is in flight.
func (s State) changing() bool {
	return s == StateLoading || s == StateStopping
}

// Status is a read-only projection of the controller state.
type Status struct {
	State State
	// Name of the loaded model, without directory or extension.
	Name string
	// Error holds the last failure detail.
	Error string
	// Independent is set when the running model was not started by this controller.
	Independent bool
}

// RunArgs is a validated start request. Optional numeric fields are nil when
// the caller did not supply them.
type RunArgs struct {
	Model       string
	ContextSize *int
	GPULayers   *int
	Threads     *int
	TensorSplit []float64
}
