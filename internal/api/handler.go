// Package api provides the JSON RPC surface of the blog service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/scripting"
	"github.com/inkroute/inkroute/internal/session"
	"github.com/inkroute/inkroute/internal/tools"
)

// Handler serves the blog RPC endpoints. Every request is scoped to a
// session resolved by the identity middleware.
type Handler struct {
	sessions *session.Manager
	svc      *blog.Service
	images   *blog.ImageService

	tools     map[string]tools.Definition
	toolOrder []string
	scripts   *scripting.Registry
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions *session.Manager, svc *blog.Service, images *blog.ImageService, toolDefs []tools.Definition, scripts *scripting.Registry) *Handler {
	byName, order := indexTools(toolDefs)
	return &Handler{
		sessions:  sessions,
		svc:       svc,
		images:    images,
		tools:     byName,
		toolOrder: order,
		scripts:   scripts,
	}
}

// Routes mounts the blog RPC endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/post/current", h.GetCurrentPost)
	r.Get("/posts", h.GetAllPosts)
	r.Post("/post", h.CreatePost)
	r.Patch("/post", h.UpdatePost)
	r.Post("/post/select", h.SelectPostByID)
	r.Post("/post/clear", h.ClearCurrentPost)
	r.Post("/post/publish", h.PublishPost)
	r.Post("/post/image", h.GenerateImageForPost)
	r.Get("/provider", h.GetActiveProvider)
	r.Post("/provider", h.SetActiveProvider)
	r.Post("/session/spawn", h.SpawnSession)
	r.Get("/tools", h.ListTools)
	r.Post("/tools/{name}", h.InvokeTool)
	r.Get("/script", h.ListScriptFunctions)
	r.Post("/script/{name}", h.CallScriptFunction)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ServiceError maps service-layer errors onto HTTP statuses:
// validation 400, not-found 404, configuration 409, upstream 502.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blog.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, blog.ErrPostNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, blog.ErrNoActiveProvider),
		errors.Is(err, blog.ErrProviderNotFound),
		errors.Is(err, blog.ErrNoPostSelected):
		Error(w, http.StatusConflict, err.Error())
	default:
		Error(w, http.StatusBadGateway, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
