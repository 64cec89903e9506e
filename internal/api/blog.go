package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/inkroute/inkroute/internal/blog"
	"github.com/inkroute/inkroute/internal/identity"
	"github.com/inkroute/inkroute/internal/session"
)

// postEnvelope is the single-post result envelope.
type postEnvelope struct {
	Post    *blog.Post `json:"post"`
	Message string     `json:"message"`
}

// postsEnvelope is the post-list result envelope. Count reflects the
// match count before the limit was applied.
type postsEnvelope struct {
	Posts             []blog.Post `json:"posts"`
	Count             int         `json:"count"`
	CurrentlySelected string      `json:"currentlySelected,omitempty"`
	Message           string      `json:"message"`
}

// actionEnvelope reports a mutation without a post payload.
type actionEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(r.Context(), identity.SessionIDFromContext(r.Context()))
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return sess, true
}

// GetCurrentPost returns the session's selected post, or a null post
// with an informational message.
func (h *Handler) GetCurrentPost(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	post, err := h.svc.GetCurrentPost(r.Context(), sess)
	if err != nil {
		ServiceError(w, err)
		return
	}
	if post == nil {
		JSON(w, http.StatusOK, postEnvelope{Message: "No post is currently selected"})
		return
	}
	JSON(w, http.StatusOK, postEnvelope{
		Post:    post,
		Message: fmt.Sprintf("Currently selected: %q (%s)", post.Title, post.Status),
	})
}

// GetAllPosts lists posts with optional status/tag filters and a
// result limit.
func (h *Handler) GetAllPosts(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	posts, err := h.svc.GetAllPosts(r.Context(), sess)
	if err != nil {
		ServiceError(w, err)
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && status != "all" {
		filtered := posts[:0]
		for _, p := range posts {
			if p.Status == blog.Status(status) {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}

	if tag := r.URL.Query().Get("tag"); tag != "" {
		filtered := posts[:0]
		for _, p := range posts {
			for _, t := range p.Tags {
				if t == tag {
					filtered = append(filtered, p)
					break
				}
			}
		}
		posts = filtered
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	count := len(posts)
	limited := posts
	if len(limited) > limit {
		limited = limited[:limit]
	}

	message := fmt.Sprintf("Found %d posts", count)
	if count > limit {
		message += fmt.Sprintf(", showing %d", limit)
	}

	env := postsEnvelope{Posts: limited, Count: count, Message: message}
	if current, err := h.svc.GetCurrentPost(r.Context(), sess); err == nil && current != nil {
		env.CurrentlySelected = current.ID
	}
	JSON(w, http.StatusOK, env)
}

type createPostRequest struct {
	Title             string   `json:"title"`
	ContentInMarkdown string   `json:"contentInMarkdown"`
	Tags              []string `json:"tags,omitempty"`
}

// CreatePost renders the markdown body (leading heading stripped) and
// creates a draft on the active provider.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	content, err := blog.RenderMarkdown(req.ContentInMarkdown)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.svc.CreatePost(r.Context(), blog.CreatePostData{
		Title:   req.Title,
		Content: content,
		Tags:    req.Tags,
	}, sess)
	if err != nil {
		ServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, postEnvelope{
		Post:    post,
		Message: fmt.Sprintf("Post created with ID: %s", post.ID),
	})
}

type updatePostRequest struct {
	Title             *string            `json:"title,omitempty"`
	ContentInMarkdown *string            `json:"contentInMarkdown,omitempty"`
	Tags              []string           `json:"tags,omitempty"`
	Status            *blog.Status       `json:"status,omitempty"`
	FeatureImage      *blog.FeatureImage `json:"feature_image,omitempty"`
}

// UpdatePost applies a partial update to the session's current post.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	var req updatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		Error(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", *req.Status))
		return
	}

	update := blog.UpdatePostData{
		Title:        req.Title,
		Tags:         req.Tags,
		Status:       req.Status,
		FeatureImage: req.FeatureImage,
	}
	if req.ContentInMarkdown != nil {
		content, err := blog.RenderMarkdown(*req.ContentInMarkdown)
		if err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		update.Content = &content
	}
	if update.Empty() {
		Error(w, http.StatusBadRequest, "update contains no changes")
		return
	}

	post, err := h.svc.UpdatePost(r.Context(), update, sess)
	if err != nil {
		ServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, postEnvelope{
		Post:    post,
		Message: fmt.Sprintf("Post updated: %s", post.ID),
	})
}

type selectPostRequest struct {
	ID string `json:"id"`
}

// SelectPostByID makes a post the session's current post.
func (h *Handler) SelectPostByID(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	var req selectPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		Error(w, http.StatusBadRequest, "id is required")
		return
	}

	post, err := h.svc.SelectPostByID(r.Context(), req.ID, sess)
	if err != nil {
		ServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, postEnvelope{
		Post:    post,
		Message: fmt.Sprintf("Selected post: %q", post.Title),
	})
}

// ClearCurrentPost drops the session's post selection.
func (h *Handler) ClearCurrentPost(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	if err := h.svc.ClearCurrentPost(r.Context(), sess); err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, actionEnvelope{
		Success: true,
		Message: "Post selection cleared. No post is currently selected.",
	})
}

// PublishPost runs the publish workflow. The response reports whether
// the post was actually published; review escalation can hold the
// request until a reviewer decides.
func (h *Handler) PublishPost(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	result, err := h.svc.PublishPost(r.Context(), sess)
	if err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, actionEnvelope{
		Success: result.Published,
		Message: result.Message,
	})
}

type generateImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generateImageResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Message  string `json:"message"`
}

// GenerateImageForPost generates a featured image for the current
// post.
func (h *Handler) GenerateImageForPost(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	var req generateImageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.images.GenerateForCurrentPost(r.Context(), req.Prompt, req.AspectRatio, sess)
	if err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, generateImageResponse{
		Success:  true,
		ImageURL: result.ImageURL,
		Message:  result.Message,
	})
}

type providerResponse struct {
	Provider           *string  `json:"provider"`
	AvailableProviders []string `json:"availableProviders"`
}

// GetActiveProvider reports the session's active provider description
// and all registered names.
func (h *Handler) GetActiveProvider(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	resp := providerResponse{AvailableProviders: h.svc.AvailableProviders()}
	if provider, err := h.svc.RequireActiveProvider(sess); err == nil {
		desc := provider.Description()
		resp.Provider = &desc
	}
	JSON(w, http.StatusOK, resp)
}

type setProviderRequest struct {
	Name string `json:"name"`
}

// SetActiveProvider routes the session to a named provider. The
// session state is persisted so the selection survives restarts.
func (h *Handler) SetActiveProvider(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}

	var req setProviderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.SetActiveProvider(req.Name, sess); err != nil {
		JSON(w, http.StatusOK, actionEnvelope{Success: false, Message: err.Error()})
		return
	}
	h.sessions.Save(r.Context(), sess)

	JSON(w, http.StatusOK, actionEnvelope{
		Success: true,
		Message: fmt.Sprintf("Active provider set to: %s", req.Name),
	})
}

type spawnSessionRequest struct {
	ID     string `json:"id"`
	Parent string `json:"parent"`
}

// SpawnSession creates a child session that inherits the parent's
// active provider.
func (h *Handler) SpawnSession(w http.ResponseWriter, r *http.Request) {
	var req spawnSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" || req.Parent == "" {
		Error(w, http.StatusBadRequest, "id and parent are required")
		return
	}

	child, err := h.sessions.Spawn(r.Context(), identity.SanitizeSessionID(req.ID), identity.SanitizeSessionID(req.Parent))
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.sessions.Save(r.Context(), child)

	JSON(w, http.StatusOK, actionEnvelope{
		Success: true,
		Message: fmt.Sprintf("Session %s created from %s", child.ID(), req.Parent),
	})
}
