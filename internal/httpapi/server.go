package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"koboldswitch/internal/controller"
	"koboldswitch/pkg/types"
)

// Service defines the controller operations required by the HTTP API layer.
type Service interface {
	Status(ctx context.Context) (controller.Status, error)
	Start(ctx context.Context, args controller.RunArgs) error
	Stop(ctx context.Context) error
	WaitForState(ctx context.Context, states []controller.State, timeout time.Duration) (controller.Status, error)
}

// ModelLister lists model files available to PUT /model.
type ModelLister interface {
	ListModels() ([]types.Model, error)
}

// ModelListerFunc adapts a function to ModelLister.
type ModelListerFunc func() ([]types.Model, error)

func (f ModelListerFunc) ListModels() ([]types.Model, error) { return f() }

type handlers struct {
	svc    Service
	models ModelLister
}

// NewMux builds the REST router. models may be nil, in which case GET /models
// answers 404.
func NewMux(svc Service, models ModelLister) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, access log, recoverer, metrics
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		methods := corsAllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions}
		}
		headers := corsAllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Content-Type", "X-Request-Id", "X-Log-Level"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc, models: models}
	r.Get("/probe", h.probe)
	r.Get("/model", h.getModel)
	r.Put("/model", h.putModel)
	r.Post("/model", h.putModel)
	r.Delete("/model", h.deleteModel)
	r.Get("/models", h.listModels)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// probe godoc
// @Summary      Controller liveness
// @Tags         system
// @Success      204
// @Router       /probe [get]
func (h *handlers) probe(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// getModel godoc
// @Summary      Current model status
// @Description  Re-synchronizes with koboldcpp and reports the model lifecycle state.
// @Tags         model
// @Produce      json
// @Success      200  {object}  types.ModelStatusResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /model [get]
func (h *handlers) getModel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	st, err := h.svc.Status(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(st))
}

// putModel godoc
// @Summary      Start or reload a model
// @Description  Spawns koboldcpp with the requested model. A managed model that is online is stopped first.
// @Description  With ?wait=<duration> the call blocks until the model is online or failed.
// @Tags         model
// @Accept       json
// @Produce      json
// @Param        request  body   types.ModelRequest  true  "Model and launch options"
// @Param        wait     query  string              false "Block until online or failed, e.g. 60s"
// @Success      201
// @Failure      400  {object}  types.ValidationErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Failure      415  {object}  types.ErrorResponse
// @Failure      500  {object}  types.ErrorResponse
// @Failure      504  {object}  types.ErrorResponse
// @Router       /model [put]
// @Router       /model [post]
func (h *handlers) putModel(w http.ResponseWriter, r *http.Request) {
	// Content-Type check
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		IncrementRejection("content_type")
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		IncrementRejection("invalid_body")
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := validateModelRequest(req); len(errs) > 0 {
		IncrementRejection("validation")
		writeValidationErrors(w, errs)
		return
	}
	wait, err := parseWait(r)
	if err != nil {
		IncrementRejection("validation")
		writeValidationErrors(w, []string{err.Error()})
		return
	}

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := h.svc.Start(ctx, toRunArgs(req)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if wait > 0 {
		st, err := h.svc.WaitForState(ctx, []controller.State{controller.StateOnline, controller.StateFailed}, wait)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if st.State == controller.StateFailed {
			writeJSONError(w, http.StatusInternalServerError, "model failed: "+st.Error)
			return
		}
	}
	w.WriteHeader(http.StatusCreated)
}

// deleteModel godoc
// @Summary      Stop the model
// @Description  Requests a graceful stop. Stopping an offline model is a no-op.
// @Description  With ?wait=<duration> the call blocks until the model is offline.
// @Tags         model
// @Param        wait  query  string  false  "Block until offline, e.g. 30s"
// @Success      204
// @Failure      409  {object}  types.ErrorResponse
// @Failure      504  {object}  types.ErrorResponse
// @Router       /model [delete]
func (h *handlers) deleteModel(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r)
	if err != nil {
		IncrementRejection("validation")
		writeValidationErrors(w, []string{err.Error()})
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := h.svc.Stop(ctx); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if wait > 0 {
		if _, err := h.svc.WaitForState(ctx, []controller.State{controller.StateOffline}, wait); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// listModels godoc
// @Summary      List model files
// @Description  Lists *.gguf files under the models base path.
// @Tags         model
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	if h.models == nil {
		writeJSONError(w, http.StatusNotFound, "model listing is not configured")
		return
	}
	models, err := h.models.ListModels()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}
