package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"
)

// StorageSink uploads archives to a supabase storage bucket under
// results/<name> and returns the conventional public-object URL.
type StorageSink struct {
	client *supabase.Client
	url    string
	bucket string
}

func NewStorageSink(supabaseURL, serviceKey, bucket string) (*StorageSink, error) {
	client, err := supabase.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &StorageSink{client: client, url: strings.TrimRight(supabaseURL, "/"), bucket: bucket}, nil
}

func (s *StorageSink) Deliver(_ context.Context, archivePath, name string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	contentType := "application/zip"
	key := path.Join("results", name)
	if _, err := s.client.Storage.UploadFile(s.bucket, key, f, storage_go.FileOptions{ContentType: &contentType}); err != nil {
		return "", fmt.Errorf("storage upload %s/%s: %w", s.bucket, key, err)
	}

	// Bucket objects are publicly readable; the URL follows the storage
	// public-object route rather than coming back in the upload response.
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.bucket, key), nil
}
