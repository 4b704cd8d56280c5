package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlcontext"
	"github.com/cuong/dayetl/internal/model"
)

// objectStorageExtractor implements the §4.3.1 object-storage sub-protocol
// against an S3-compatible bucket (the `cos` source type). It lists
// objects under {category}/{date}/, enforces a per-file size ceiling,
// downloads each to a scratch directory, and line-parses them into
// ClickEvent records.
type objectStorageExtractor struct {
	cfg         config.SourceConfig
	scratchRoot string
	client      *minio.Client
	downloaded  []string
}

// NewObjectStorageExtractor is the registry.ExtractorFactory for the "cos"
// source type.
func NewObjectStorageExtractor(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
	return &objectStorageExtractor{cfg: sc, scratchRoot: scratchRoot}, nil
}

func (e *objectStorageExtractor) Category() string { return e.cfg.Category }
func (e *objectStorageExtractor) Name() string      { return e.cfg.Name }

func (e *objectStorageExtractor) Setup(ctx context.Context, ec *etlcontext.ETLContext) error {
	client, err := minio.New(e.cfg.COSEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(e.cfg.COSSecretID, e.cfg.COSSecretKey, ""),
		Secure: true,
		Region: e.cfg.COSRegion,
	})
	if err != nil {
		return fmt.Errorf("objectstorage: connect: %w", err)
	}
	e.client = client
	return nil
}

func (e *objectStorageExtractor) Validate(ctx context.Context, ec *etlcontext.ETLContext) error {
	if e.cfg.COSBucket == "" {
		return fmt.Errorf("objectstorage: source %q missing cos.bucket", e.cfg.Name)
	}
	ok, err := e.client.BucketExists(ctx, e.cfg.COSBucket)
	if err != nil {
		return fmt.Errorf("objectstorage: bucket-exists check: %w", err)
	}
	if !ok {
		return fmt.Errorf("objectstorage: bucket %q does not exist", e.cfg.COSBucket)
	}
	return nil
}

func (e *objectStorageExtractor) Extract(ctx context.Context, ec *etlcontext.ETLContext) (<-chan contracts.Payload, error) {
	prefix := fmt.Sprintf("%s%s/%s/", e.cfg.COSPrefix, e.cfg.Category, ec.CurrentDate.Format("2006-01-02"))

	objects := e.client.ListObjects(ctx, e.cfg.COSBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var keys []string
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("objectstorage: list %q: %w", prefix, obj.Err)
		}
		if obj.Size > e.cfg.COSMaxFileSize {
			return nil, fmt.Errorf("objectstorage: object %q (%d bytes) exceeds size ceiling %d", obj.Key, obj.Size, e.cfg.COSMaxFileSize)
		}
		keys = append(keys, obj.Key)
	}

	scratchDir := filepath.Join(e.scratchRoot, ec.CurrentDate.Format("2006-01-02"), e.cfg.Category)
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstorage: scratch dir: %w", err)
	}

	ch := make(chan contracts.Payload, 256)
	go func() {
		defer close(ch)
		for _, key := range keys {
			localPath := filepath.Join(scratchDir, uuid.NewString()+"-"+filepath.Base(key))
			if err := e.client.FGetObject(ctx, e.cfg.COSBucket, key, localPath, minio.GetObjectOptions{}); err != nil {
				select {
				case ch <- contracts.Payload{Err: fmt.Errorf("objectstorage: download %q: %w", key, err)}:
				case <-ctx.Done():
				}
				return
			}
			ec.AppendTempFile(localPath)
			e.downloaded = append(e.downloaded, localPath)

			if err := e.streamParse(ctx, localPath, ch); err != nil {
				select {
				case ch <- contracts.Payload{Err: fmt.Errorf("objectstorage: parse %q: %w", localPath, err)}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return ch, nil
}

// streamParse reads localPath line by line, one JSON-encoded ClickEvent
// per line, and emits each as a Payload. A single parse failure fails the
// whole source, per §4.3.1.
func (e *objectStorageExtractor) streamParse(ctx context.Context, localPath string, ch chan<- contracts.Payload) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw struct {
			EventID     string    `json:"event_id"`
			UserID      string    `json:"user_id"`
			Page        string    `json:"page"`
			ReferrerURL string    `json:"referrer_url"`
			OccurredAt  time.Time `json:"occurred_at"`
		}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return fmt.Errorf("decode line: %w", err)
		}
		evt := model.ClickEvent{
			EventID:     raw.EventID,
			UserID:      raw.UserID,
			Page:        raw.Page,
			ReferrerURL: raw.ReferrerURL,
			OccurredAt:  raw.OccurredAt,
		}
		select {
		case ch <- contracts.Payload{Data: evt}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (e *objectStorageExtractor) Cleanup() error {
	// Temp file deletion is Cleaner's job (§4.7), run once at day end; this
	// Cleanup only releases the extractor's own in-memory client handle.
	e.client = nil
	return nil
}
