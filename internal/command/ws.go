package command

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/identity"
	"github.com/inkroute/inkroute/internal/session"
)

// WebSocketHandler serves the chat command surface: clients send
// "/blog ..." lines as text frames and receive info lines back.
type WebSocketHandler struct {
	svc           *blog.Service
	images        *blog.ImageService
	sessions      *session.Manager
	allowedOrigin string
	root          Func
}

// NewWebSocketHandler creates the chat command endpoint.
func NewWebSocketHandler(svc *blog.Service, images *blog.ImageService, sessions *session.Manager, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		images:        images,
		sessions:      sessions,
		allowedOrigin: allowedOrigin,
		root:          Blog(),
	}
}

// ServeHTTP upgrades the connection and executes command lines until
// the client disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	opts := &websocket.AcceptOptions{OriginPatterns: []string{"*"}}
	if h.allowedOrigin != "" {
		opts.OriginPatterns = []string{h.allowedOrigin}
	}

	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("Failed to accept chat websocket", "session_id", sessionID, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close chat websocket", "session_id", sessionID, "error", closeErr)
		}
	}()

	ctx := r.Context()

	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to load session", "session_id", sessionID, "error", err)
		return
	}
	if err := h.svc.Attach(ctx, sess); err != nil {
		slog.Error("Failed to attach providers", "session_id", sessionID, "error", err)
		return
	}

	env := &Env{
		Blog:     h.svc,
		Images:   h.images,
		Sessions: h.sessions,
		Session:  sess,
		Info: func(line string) {
			if writeErr := ws.Write(ctx, websocket.MessageText, []byte(line)); writeErr != nil {
				slog.Debug("Chat websocket write error", "session_id", sessionID, "error", writeErr)
			}
		},
	}

	if summary := h.svc.ContextSummary(); summary != "" {
		env.Info(summary)
	}

	slog.Info("Chat session connected", "session_id", sessionID)

	for {
		msgType, data, err := ws.Read(ctx)
		if err != nil {
			slog.Info("Chat session disconnected", "session_id", sessionID)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		h.executeLine(ctx, strings.TrimSpace(string(data)), env)
	}
}

func (h *WebSocketHandler) executeLine(ctx context.Context, line string, env *Env) {
	switch {
	case line == "":
		return
	case line == "/blog", strings.HasPrefix(line, "/blog "):
		remainder := strings.TrimSpace(strings.TrimPrefix(line, "/blog"))
		if err := h.root(ctx, remainder, env); err != nil {
			env.Info("Error: " + err.Error())
		}
	default:
		env.Info("Unknown command. " + Description)
	}
}
