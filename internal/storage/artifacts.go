package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/minio/minio-go/v7"
)

const (
	// Default part size for multipart uploads (10MB)
	DefaultPartSize = 10 * 1024 * 1024

	// Minimum part size for multipart uploads (5MB)
	MinPartSize = 5 * 1024 * 1024

	// Maximum number of artifacts uploaded at once
	MaxConcurrentUploads = 4
)

// ArtifactStore layers scan artifact handling on Storage: the sampled
// frames, the downloaded source video and the report JSON a worker leaves
// behind when a scan asks for its artifacts to be kept.
type ArtifactStore struct {
	*Storage
	partSize             int64
	maxConcurrentUploads int
}

// NewArtifactStore creates a new artifact store
func NewArtifactStore(storage *Storage, partSize int64) *ArtifactStore {
	if partSize < MinPartSize {
		partSize = DefaultPartSize
	}

	return &ArtifactStore{
		Storage:              storage,
		partSize:             partSize,
		maxConcurrentUploads: MaxConcurrentUploads,
	}
}

// ArtifactPrefix returns the object prefix all of a scan's artifacts live under
func ArtifactPrefix(scanID string) string {
	return "scans/" + scanID
}

// UploadScanArtifacts uploads every file under dir to the scan's artifact
// prefix and returns the uploaded object keys in sorted order.
func (s *ArtifactStore) UploadScanArtifacts(ctx context.Context, scanID, dir string) ([]string, error) {
	type artifact struct {
		key  string
		path string
	}

	var artifacts []artifact
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		artifacts = append(artifacts, artifact{
			key:  ArtifactPrefix(scanID) + "/" + filepath.ToSlash(rel),
			path: path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk artifact dir: %w", err)
	}

	if len(artifacts) == 0 {
		return nil, nil
	}

	// Upload concurrently, bounded by maxConcurrentUploads
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrentUploads)
	errChan := make(chan error, len(artifacts))

	for _, a := range artifacts {
		wg.Add(1)
		go func(a artifact) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.UploadFileParallel(ctx, a.key, a.path); err != nil {
				errChan <- fmt.Errorf("failed to upload %s: %w", a.key, err)
			}
		}(a)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		keys = append(keys, a.key)
	}
	sort.Strings(keys)

	return keys, nil
}

// UploadFileParallel uploads a file, switching to parallel multipart upload
// when the file is larger than the configured part size.
func (s *ArtifactStore) UploadFileParallel(ctx context.Context, key, filePath string) error {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	fileSize := fileInfo.Size()

	// For small files, use standard upload
	if fileSize < s.partSize {
		return s.UploadFile(ctx, key, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = s.client.PutObject(
		ctx,
		s.bucketName,
		key,
		file,
		fileSize,
		minio.PutObjectOptions{
			PartSize:    uint64(s.partSize),
			ContentType: getContentType(filePath),
			NumThreads:  uint(s.maxConcurrentUploads),
		},
	)

	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// PurgeScan removes every artifact belonging to a scan
func (s *ArtifactStore) PurgeScan(ctx context.Context, scanID string) error {
	keys, err := s.List(ctx, ArtifactPrefix(scanID)+"/")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.BatchDelete(ctx, keys)
}

// BatchDelete deletes multiple objects
func (s *ArtifactStore) BatchDelete(ctx context.Context, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))

	// Send object keys to channel
	go func() {
		defer close(objectsCh)
		for _, key := range keys {
			objectsCh <- minio.ObjectInfo{Key: key}
		}
	}()

	// Delete objects
	errorCh := s.client.RemoveObjects(ctx, s.bucketName, objectsCh, minio.RemoveObjectsOptions{})

	// Check for errors
	for err := range errorCh {
		if err.Err != nil {
			return fmt.Errorf("failed to delete object %s: %w", err.ObjectName, err.Err)
		}
	}

	return nil
}
