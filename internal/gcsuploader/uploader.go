// Package gcsuploader publishes generated artifacts to a Cloud Storage bucket
// and reads import sources addressed by gs:// URIs.
package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/digcity/portal-tools/internal/logger"
)

var contentTypes = map[string]string{
	".sql":  "text/plain; charset=utf-8",
	".xml":  "application/xml; charset=utf-8",
	".html": "text/html; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
}

// Uploader writes objects into one bucket. It assumes Application Default
// Credentials are configured.
type Uploader struct {
	client *storage.Client
	bucket string
}

func NewUploader(ctx context.Context, bucket string) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewUploader: empty bucket name")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewUploader: create storage client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (u *Uploader) Close() error {
	if u.client != nil {
		return u.client.Close()
	}
	return nil
}

// UploadFile uploads a local file under objectName and returns its gs:// URI.
func (u *Uploader) UploadFile(ctx context.Context, objectName, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = ContentType(filePath)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return ObjectURI(u.bucket, objectName), nil
}

// UploadDir uploads every regular file below dir, naming each object
// prefix/<path relative to dir>. It stops at the first failure.
func (u *Uploader) UploadDir(ctx context.Context, dir, prefix string) ([]string, error) {
	log := logger.FromContext(ctx)

	var uris []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		uri, err := u.UploadFile(ctx, ObjectName(prefix, rel), p)
		if err != nil {
			return err
		}
		log.Info().Str("file", p).Str("object", uri).Msg("Uploaded artifact")
		uris = append(uris, uri)
		return nil
	})
	if err != nil {
		return uris, fmt.Errorf("UploadDir: %s: %w", dir, err)
	}
	return uris, nil
}

// Fetch downloads the object addressed by a gs:// URI.
func (u *Uploader) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := u.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// ObjectName joins a prefix and a relative OS path into an object name.
func ObjectName(prefix, rel string) string {
	name := filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func ObjectURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseURI splits gs://bucket/path/to/object.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ContentType picks the object content type from the file extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
