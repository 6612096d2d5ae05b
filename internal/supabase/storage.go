package supabase

import (
	"context"
	"net/http"
	"net/url"

	"expensedocs/internal/core"
)

// UploadFile stores the payload under a fresh object name without
// overwriting and returns the object's public URL.
func (c *Client) UploadFile(ctx context.Context, upload core.Upload) (string, error) {
	name := core.ObjectName(upload.Filename)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := http.Header{}
	h.Set("Content-Type", contentType)
	h.Set("cache-control", "max-age=60")
	h.Set("x-upsert", "false")

	err := c.do(ctx, request{
		op:     "upload file",
		method: http.MethodPost,
		path:   storagePath + "object/" + core.DocumentsBucket + "/" + url.PathEscape(name),
		header: h,
		body:   upload.Content,
	}, nil)
	if err != nil {
		return "", err
	}
	return c.PublicURL(name), nil
}

// PublicURL resolves an object in the documents bucket. No request is made.
func (c *Client) PublicURL(name string) string {
	return c.baseURL + core.PublicObjectPath + url.PathEscape(name)
}
