package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkroute/inkroute/internal/scripting"
	"github.com/inkroute/inkroute/internal/tools"
)

// toolDescriptor is the wire form of one tool definition.
type toolDescriptor struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type resultEnvelope struct {
	Result string `json:"result"`
}

// ListTools returns the tool table so an agent host can register the
// definitions.
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	descriptors := make([]toolDescriptor, 0, len(h.toolOrder))
	for _, name := range h.toolOrder {
		def := h.tools[name]
		descriptors = append(descriptors, toolDescriptor{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	JSON(w, http.StatusOK, map[string][]toolDescriptor{"tools": descriptors})
}

// InvokeTool executes one tool with the raw JSON argument object from
// the request body.
func (h *Handler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	def, ok := h.tools[name]
	if !ok {
		Error(w, http.StatusNotFound, fmt.Sprintf("tool %q is not defined", name))
		return
	}

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		Error(w, http.StatusBadRequest, "read arguments: "+err.Error())
		return
	}
	if len(args) == 0 {
		args = []byte("{}")
	}

	result, err := def.Execute(r.Context(), args, sess)
	if err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resultEnvelope{Result: result})
}

type callScriptRequest struct {
	Args []string `json:"args,omitempty"`
}

// CallScriptFunction invokes one registered scripting function with
// positional string arguments.
func (h *Handler) CallScriptFunction(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	var req callScriptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.scripts.Call(r.Context(), chi.URLParam(r, "name"), sess, req.Args...)
	if err != nil {
		switch {
		case errors.Is(err, scripting.ErrFunctionNotFound):
			Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, scripting.ErrArgumentCount):
			Error(w, http.StatusBadRequest, err.Error())
		default:
			ServiceError(w, err)
		}
		return
	}
	JSON(w, http.StatusOK, resultEnvelope{Result: result})
}

// ListScriptFunctions returns the registered scripting function names.
func (h *Handler) ListScriptFunctions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{"functions": h.scripts.Names()})
}

func indexTools(defs []tools.Definition) (map[string]tools.Definition, []string) {
	byName := make(map[string]tools.Definition, len(defs))
	order := make([]string, 0, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
		order = append(order, def.Name)
	}
	return byName, order
}
