package blog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/inkroute/inkroute/internal/cdn"
	"github.com/inkroute/inkroute/internal/imagegen"
	"github.com/inkroute/inkroute/internal/session"
)

// ImageService generates a featured image for the current post: the
// active provider names the model and CDN, the model produces the
// bytes, the CDN stores them, and the post is updated with the result.
type ImageService struct {
	blog     *Service
	uploader cdn.Uploader
	models   *imagegen.Registry
}

// NewImageService wires the featured-image workflow.
func NewImageService(blog *Service, uploader cdn.Uploader, models *imagegen.Registry) *ImageService {
	return &ImageService{blog: blog, uploader: uploader, models: models}
}

// ImageResult reports a generated featured image.
type ImageResult struct {
	ImageURL string
	Message  string
}

// GenerateForCurrentPost generates an image from the prompt, uploads
// it to the provider's CDN, and sets it as the current post's featured
// image. aspectRatio is one of square, tall, wide.
func (s *ImageService) GenerateForCurrentPost(ctx context.Context, prompt, aspectRatio string, sess *session.Session) (*ImageResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrValidation)
	}

	provider, err := s.blog.RequireActiveProvider(sess)
	if err != nil {
		return nil, err
	}
	post, err := provider.GetCurrentPost(ctx, sess)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNoPostSelected
	}

	client, err := s.models.Client(provider.ImageGenerationModel())
	if err != nil {
		return nil, err
	}

	images, err := client.GenerateImage(ctx, imagegen.Request{
		Prompt: prompt,
		Size:   imagegen.SizeForAspectRatio(aspectRatio),
		N:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate featured image: %w", err)
	}
	image := images[0]

	filename := uuid.NewString() + "." + extensionFor(image.MediaType)
	upload, err := s.uploader.Upload(ctx, provider.CDNName(), image.Data, cdn.UploadOptions{
		Filename:    filename,
		ContentType: image.MediaType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload featured image: %w", err)
	}

	slog.Info("Featured image uploaded", "session_id", sess.ID(), "post_id", post.ID, "url", upload.URL)

	if _, err := s.blog.UpdatePost(ctx, UpdatePostData{
		FeatureImage: &FeatureImage{ID: upload.ID, URL: upload.URL},
	}, sess); err != nil {
		return nil, err
	}

	return &ImageResult{
		ImageURL: upload.URL,
		Message:  fmt.Sprintf("Image generated and set as featured image for post %q.", post.Title),
	}, nil
}

func extensionFor(mediaType string) string {
	if _, ext, ok := strings.Cut(mediaType, "/"); ok && ext != "" {
		return ext
	}
	return "png"
}
