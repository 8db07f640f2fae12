package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bowerhall/roster/internal/logger"
)

const (
	DefaultBucket = "roster-datasets"
	backupPrefix  = "datasets/"
)

// Client backs data files up to a MinIO (S3 compatible) bucket.
type Client struct {
	mc     *minio.Client
	bucket string
	keep   int
	now    func() time.Time
}

// Config holds MinIO connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Keep      int // backups retained after each upload, 0 keeps all
}

// FileInfo represents a stored object
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// NewClient creates a new storage client
func NewClient(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	return &Client{mc: mc, bucket: bucket, keep: cfg.Keep, now: time.Now}, nil
}

// Init creates the backup bucket if it doesn't exist
func (c *Client) Init(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}

	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", c.bucket, err)
		}
		logger.Info("bucket created", "bucket", c.bucket)
	}

	return nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Upload stores data under name
func (c *Client) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.mc.PutObject(ctx, c.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", c.bucket, name, err)
	}

	logger.Debug("object uploaded", "bucket", c.bucket, "name", name, "size", len(data))
	return nil
}

// Download fetches the object called name
func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.bucket, name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", c.bucket, name, err)
	}

	return data, nil
}

// List lists objects with the given prefix, newest first
func (c *Client) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	var files []FileInfo

	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	for obj := range c.mc.ListObjects(ctx, c.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", c.bucket, obj.Err)
		}

		files = append(files, FileInfo{
			Name:    obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

// Delete removes an object
func (c *Client) Delete(ctx context.Context, name string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.bucket, name, err)
	}
	return nil
}

// Healthy checks if MinIO is reachable
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.mc.BucketExists(ctx, c.bucket)
	return err == nil
}

// Backup uploads the data file at path and returns the object name.
func (c *Client) Backup(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	name := BackupName(path, c.now())
	if err := c.Upload(ctx, name, data, contentTypeFor(path)); err != nil {
		return "", err
	}

	logger.Info("data file backed up", "path", path, "object", name, "size", len(data))

	if c.keep > 0 {
		c.prune(ctx)
	}

	return name, nil
}

// prune deletes backups beyond the retention limit. Failures are logged; the
// backup that triggered it has already been stored.
func (c *Client) prune(ctx context.Context) {
	files, err := c.Backups(ctx)
	if err != nil {
		logger.Warn("failed to list backups for pruning", "error", err)
		return
	}

	for _, f := range expired(files, c.keep) {
		if err := c.Delete(ctx, f.Name); err != nil {
			logger.Warn("failed to prune backup", "object", f.Name, "error", err)
			continue
		}
		logger.Info("backup pruned", "object", f.Name)
	}
}

// expired returns the backups outside the newest keep, oldest last.
func expired(files []FileInfo, keep int) []FileInfo {
	if keep <= 0 || len(files) <= keep {
		return nil
	}

	sorted := make([]FileInfo, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ModTime.Equal(sorted[j].ModTime) {
			return sorted[i].Name > sorted[j].Name
		}
		return sorted[i].ModTime.After(sorted[j].ModTime)
	})

	return sorted[keep:]
}

// Backups lists stored data file backups, newest first.
func (c *Client) Backups(ctx context.Context) ([]FileInfo, error) {
	return c.List(ctx, backupPrefix)
}

// Restore downloads a backup over the file at path. The caller reloads it.
func (c *Client) Restore(ctx context.Context, name, path string) error {
	if !strings.HasPrefix(name, backupPrefix) {
		name = backupPrefix + name
	}

	data, err := c.Download(ctx, name)
	if err != nil {
		return err
	}

	tmp := path + ".restore"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	logger.Info("data file restored", "object", name, "path", path, "size", len(data))
	return nil
}

// BackupName derives the object name for a backup of path taken at t.
func BackupName(path string, t time.Time) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s%s-%s%s", backupPrefix, stem, t.UTC().Format("20060102T150405Z"), ext)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
