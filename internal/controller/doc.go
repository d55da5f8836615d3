// Package controller supervises a single koboldcpp child process and keeps an
// authoritative view of its lifecycle. It is structured into small files by concern:
//
//   - controller.go: Controller type, constructor, Start/Stop/Status/Shutdown.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: State, Status and RunArgs.
//   - errors.go: error types and helpers (IsModelState, IsTimeout, ...).
//   - args.go: argument vector construction and model path sanitizing.
//   - process.go: spawning, exit classification and the startup watcher.
//   - proc_unix.go, proc_windows.go: platform process attributes and termination.
//   - sync.go: reconciliation against the child's HTTP status endpoint.
//   - wait.go: the polling wait primitive and WaitForState.
//   - linelog.go: line-buffered logging of the child's stdout/stderr.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus collectors.
//
// The child's own status endpoint is the source of truth for liveness. Every
// Status call re-synchronizes before answering, and a model that answers under a
// name the Controller did not request is marked independent: it is reported but
// never terminated.
package controller
