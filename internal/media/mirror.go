package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oszuidwest/diario-bordo/internal/eventlog"
	"github.com/oszuidwest/diario-bordo/internal/types"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Mirror limits.
const (
	// MaxUploadRetryAge is the maximum age for retrying uploads.
	MaxUploadRetryAge = 24 * time.Hour

	uploadQueueSize = 64
	uploadTimeout   = 5 * time.Minute
	testTimeout     = 30 * time.Second
	defaultPrefix   = "diario/"
)

// ErrS3NotConfigured is returned when the S3 mirror has no bucket or credentials.
var ErrS3NotConfigured = errors.New("S3 is not configured")

// S3Config holds the mirror destination.
type S3Config struct {
	Endpoint        string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// IsConfigured reports whether bucket and credentials are set.
func (c *S3Config) IsConfigured() bool {
	return util.IsConfigured(c.Bucket, c.AccessKeyID, c.SecretAccessKey)
}

// objectStore is the subset of the S3 client used by the mirror.
type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// createS3Client creates an S3 client with the given configuration.
func createS3Client(cfg *S3Config) *s3.Client {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = "auto"
		},
	}

	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.New(s3.Options{}, options...)
}

// TestS3Connection tests connectivity to a bucket by uploading and deleting a test file.
func TestS3Connection(ctx context.Context, cfg *S3Config) error {
	if !cfg.IsConfigured() {
		return ErrS3NotConfigured
	}
	return testConnection(ctx, createS3Client(cfg), cfg.Bucket)
}

func testConnection(ctx context.Context, client objectStore, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	testKey := fmt.Sprintf("test-connection-%d.txt", time.Now().UnixNano())
	testContent := []byte("Diario de Bordo connection test")

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(testKey),
		Body:          bytes.NewReader(testContent),
		ContentLength: aws.Int64(int64(len(testContent))),
	})
	if err != nil {
		return fmt.Errorf("upload test file: %w", err)
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(testKey),
	})
	if err != nil {
		slog.Warn("failed to delete test file", "key", testKey, "error", err)
	}

	return nil
}

// uploadRequest represents a file to be uploaded to S3.
type uploadRequest struct {
	localPath   string
	s3Key       string
	contentType string
}

// pendingUpload tracks a failed upload for retry.
type pendingUpload struct {
	request      uploadRequest
	firstAttempt time.Time
	retryCount   int
	lastError    string
}

// Mirror copies stored media to S3 in the background. Failed uploads are
// retried with exponential backoff for up to MaxUploadRetryAge.
type Mirror struct {
	client  objectStore
	bucket  string
	prefix  string
	events  *eventlog.Logger
	backoff *util.Backoff

	queue  chan uploadRequest
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu         sync.Mutex
	retryQueue []pendingUpload
	stopOnce   sync.Once
}

// NewMirror returns a mirror for cfg. Call Start to run the worker.
func NewMirror(cfg *S3Config, events *eventlog.Logger) (*Mirror, error) {
	if !cfg.IsConfigured() {
		return nil, ErrS3NotConfigured
	}
	return newMirror(createS3Client(cfg), cfg, events,
		util.NewBackoff(types.InitialRetryDelay, types.MaxRetryDelay)), nil
}

func newMirror(client objectStore, cfg *S3Config, events *eventlog.Logger, backoff *util.Backoff) *Mirror {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Mirror{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		events:  events,
		backoff: backoff,
		queue:   make(chan uploadRequest, uploadQueueSize),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the upload worker.
func (m *Mirror) Start() {
	m.wg.Add(1)
	go m.uploadWorker()
}

// Stop drains queued uploads and waits for the worker to exit.
func (m *Mirror) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// TestConnection checks the mirror bucket is writable.
func (m *Mirror) TestConnection(ctx context.Context) error {
	return testConnection(ctx, m.client, m.bucket)
}

// Enqueue schedules a stored file for upload. It never blocks; a full queue
// drops the request with a warning.
func (m *Mirror) Enqueue(f *StoredFile) {
	req := uploadRequest{
		localPath:   f.Path,
		s3Key:       path.Join(m.prefix, f.Subdir, f.Filename),
		contentType: f.MimeType,
	}

	select {
	case m.queue <- req:
		slog.Info("queued file for upload", "file", f.Filename)
		m.logUpload(eventlog.UploadQueued, req, 0, "")
	default:
		slog.Warn("upload queue full", "file", f.Filename)
	}
}

// Pending returns the number of uploads waiting for a retry.
func (m *Mirror) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.retryQueue)
}

// uploadWorker processes the upload queue, draining remaining items on shutdown.
func (m *Mirror) uploadWorker() {
	defer m.wg.Done()

	retry := time.NewTimer(time.Hour)
	retry.Stop()
	armed := false
	arm := func() {
		if !armed && m.Pending() > 0 {
			retry.Reset(m.backoff.Next())
			armed = true
		}
	}

	for {
		select {
		case <-m.stopCh:
			retry.Stop()
			for {
				select {
				case req := <-m.queue:
					if err := m.uploadFile(req); err != nil {
						slog.Error("upload failed during shutdown", "s3_key", req.s3Key, "error", err)
					}
				default:
					return
				}
			}
		case req := <-m.queue:
			if err := m.uploadFile(req); err != nil {
				m.addToRetryQueue(req, err.Error())
				arm()
			}
		case <-retry.C:
			armed = false
			m.processRetryQueue()
			if m.Pending() == 0 {
				m.backoff.Reset()
			}
			arm()
		}
	}
}

// uploadFile uploads one file to S3.
func (m *Mirror) uploadFile(req uploadRequest) error {
	ctx, cancel := context.WithTimeoutCause(
		context.Background(),
		uploadTimeout,
		errors.New("s3 upload timeout"),
	)
	defer cancel()

	file, err := os.Open(req.localPath)
	if err != nil {
		return err
	}
	defer util.SafeCloseFunc(file, "upload file")()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(req.s3Key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(req.contentType),
	})
	if err != nil {
		slog.Error("upload failed", "s3_key", req.s3Key, "error", err)
		m.logUpload(eventlog.UploadFailed, req, 0, err.Error())
		return err
	}

	slog.Info("upload completed", "s3_key", req.s3Key)
	m.logUpload(eventlog.UploadCompleted, req, 0, "")
	return nil
}

// addToRetryQueue adds a failed upload to the retry queue.
func (m *Mirror) addToRetryQueue(req uploadRequest, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.retryQueue {
		if p.request.localPath == req.localPath {
			return
		}
	}

	m.retryQueue = append(m.retryQueue, pendingUpload{
		request:      req,
		firstAttempt: time.Now(),
		lastError:    errMsg,
	})
	slog.Info("upload queued for retry", "s3_key", req.s3Key)
}

// processRetryQueue attempts to upload all pending files once.
func (m *Mirror) processRetryQueue() {
	m.mu.Lock()
	pending := m.retryQueue
	m.retryQueue = nil
	m.mu.Unlock()

	now := time.Now()
	var failed []pendingUpload
	for i := range pending {
		p := &pending[i]

		if now.Sub(p.firstAttempt) > MaxUploadRetryAge {
			slog.Warn("upload abandoned after 24h", "s3_key", p.request.s3Key, "attempts", p.retryCount+1)
			m.logUpload(eventlog.UploadAbandoned, p.request, p.retryCount, "exceeded 24h retry limit")
			continue
		}
		if _, err := os.Stat(p.request.localPath); os.IsNotExist(err) {
			slog.Warn("retry file no longer exists", "path", p.request.localPath)
			continue
		}

		p.retryCount++
		slog.Info("retrying upload", "s3_key", p.request.s3Key, "attempt", p.retryCount)
		m.logUpload(eventlog.UploadRetry, p.request, p.retryCount, "")

		if err := m.uploadFile(p.request); err != nil {
			p.lastError = err.Error()
			failed = append(failed, *p)
		}
	}

	if len(failed) > 0 {
		m.mu.Lock()
		m.retryQueue = append(m.retryQueue, failed...)
		m.mu.Unlock()
	}
}

func (m *Mirror) logUpload(t eventlog.EventType, req uploadRequest, retry int, errMsg string) {
	if err := m.events.LogUpload(t, eventlog.UploadDetails{
		Filename:   path.Base(req.s3Key),
		S3Key:      req.s3Key,
		Error:      errMsg,
		RetryCount: retry,
	}); err != nil {
		slog.Warn("failed to log upload event", "error", err)
	}
}
