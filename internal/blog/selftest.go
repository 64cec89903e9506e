package blog

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inkroute/inkroute/internal/cdn"
	"github.com/inkroute/inkroute/internal/session"
)

// helloPNG is a known-good test image uploaded during connectivity
// checks.
//
//go:embed hello.png
var helloPNG []byte

// TestConnection exercises the whole write path against the active
// provider: list posts, create a throwaway post, upload a test image,
// attach it as the featured image. Progress lines go through report so
// any adapter (chat, CLI) can render them.
func (s *ImageService) TestConnection(ctx context.Context, sess *session.Session, report func(string)) error {
	provider, err := s.blog.RequireActiveProvider(sess)
	if err != nil {
		return err
	}

	report("Testing blog connection...")

	report("Listing current posts...")
	posts, err := s.blog.GetAllPosts(ctx, sess)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	report(fmt.Sprintf("Found %d existing posts", len(posts)))

	report("Creating test post...")
	post, err := s.blog.CreatePost(ctx, CreatePostData{
		Title:   fmt.Sprintf("Blog Test - %s", time.Now().UTC().Format(time.RFC3339)),
		Content: "<p>This is a test post to validate blog connectivity.</p>",
		Tags:    []string{"test"},
	}, sess)
	if err != nil {
		return fmt.Errorf("create test post: %w", err)
	}
	report(fmt.Sprintf("Test post created with ID: %s", post.ID))

	report("Uploading test image...")
	upload, err := s.uploader.Upload(ctx, provider.CDNName(), helloPNG, cdn.UploadOptions{
		Filename:    "test-" + uuid.NewString() + ".png",
		ContentType: "image/png",
	})
	if err != nil {
		return fmt.Errorf("upload test image: %w", err)
	}
	report(fmt.Sprintf("Image uploaded: %s, id: %s", upload.URL, upload.ID))

	report("Updating post with image...")
	if _, err := s.blog.UpdatePost(ctx, UpdatePostData{
		FeatureImage: &FeatureImage{ID: upload.ID, URL: upload.URL},
	}, sess); err != nil {
		return fmt.Errorf("attach test image: %w", err)
	}

	report("Blog connection test completed successfully.")
	return nil
}
