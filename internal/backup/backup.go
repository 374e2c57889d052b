package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"
)

// ErrNotConfigured is returned when S3 or the passphrase is missing.
var ErrNotConfigured = errors.New("backup not configured")

// ErrInProgress is returned when a backup is requested while one is running.
var ErrInProgress = errors.New("backup already in progress")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	Passphrase string
	// Interval between scheduled backups. Zero disables the schedule.
	Interval time.Duration
	// Retention is how long uploaded snapshots are kept. Zero keeps everything.
	Retention time.Duration
	Prefix    string
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Result describes one uploaded snapshot.
type Result struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager snapshots the database, encrypts it and ships it to S3-compatible
// storage, on demand or on a fixed interval.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	status   Status
	running  bool
	onFinish func(error)

	db     *sql.DB
	client s3Client
	logger *slog.Logger
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. onFinish, if set, is called after every
// attempt with its error.
func NewManager(cfg Config, db *sql.DB, onFinish func(error), logger *slog.Logger) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "mealcart"
	}
	m := &Manager{
		cfg:      cfg,
		db:       db,
		onFinish: onFinish,
		logger:   logger,
		now:      time.Now,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether backups can run.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

// Start begins the scheduled backup loop when an interval is configured.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.cfg.Interval <= 0 || m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil && !errors.Is(err, ErrInProgress) {
					m.logger.Error("scheduled backup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// RunNow snapshots, encrypts and uploads the database, then prunes snapshots
// older than the retention window.
func (m *Manager) RunNow(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return nil, ErrNotConfigured
	}
	if m.running {
		m.mu.Unlock()
		return nil, ErrInProgress
	}
	m.running = true
	m.status.State = StateRunning
	m.status.Error = ""
	client, cfg := m.client, m.cfg
	m.mu.Unlock()

	res, err := m.run(ctx, client, cfg)

	m.mu.Lock()
	m.running = false
	if err != nil {
		m.status.State = StateError
		m.status.Error = err.Error()
	} else {
		m.status.State = StateIdle
		m.status.LastBackup = &res.CreatedAt
		m.status.LastKey = res.Key
	}
	m.mu.Unlock()

	if m.onFinish != nil {
		m.onFinish(err)
	}
	if err != nil {
		return nil, err
	}

	m.logger.Info("backup uploaded", "key", res.Key, "size_bytes", res.SizeBytes)
	if cfg.Retention > 0 {
		if err := m.prune(ctx, client, cfg); err != nil {
			m.logger.Warn("backup prune failed", "error", err)
		}
	}
	return res, nil
}

func (m *Manager) run(ctx context.Context, client s3Client, cfg Config) (*Result, error) {
	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	enc, err := Encrypt(snapshot, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	created := m.now().UTC()
	key := fmt.Sprintf("%s/backup-%s.db.enc", cfg.Prefix, created.Format("2006-01-02T150405Z"))
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(enc),
		ContentLength: aws.Int64(int64(len(enc))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}
	return &Result{Key: key, SizeBytes: int64(len(enc)), CreatedAt: created}, nil
}

// snapshot writes a consistent copy of the live database with VACUUM INTO
// and returns its bytes.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "mealcart-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// List returns uploaded snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Result, error) {
	m.mu.Lock()
	client, cfg := m.client, m.cfg
	m.mu.Unlock()
	if client == nil {
		return nil, ErrNotConfigured
	}
	return list(ctx, client, cfg)
}

func list(ctx context.Context, client s3Client, cfg Config) ([]Result, error) {
	var (
		out   []Result
		token *string
	)
	for {
		page, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(cfg.S3.Bucket),
			Prefix:            aws.String(cfg.Prefix + "/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range page.Contents {
			r := Result{Key: aws.ToString(obj.Key), SizeBytes: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				r.CreatedAt = obj.LastModified.UTC()
			}
			if strings.HasSuffix(r.Key, ".db.enc") {
				out = append(out, r)
			}
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Manager) prune(ctx context.Context, client s3Client, cfg Config) error {
	objects, err := list(ctx, client, cfg)
	if err != nil {
		return err
	}
	cutoff := m.now().UTC().Add(-cfg.Retention)
	for _, obj := range objects {
		if !obj.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.S3.Bucket),
			Key:    aws.String(obj.Key),
		}); err != nil {
			return fmt.Errorf("delete %s: %w", obj.Key, err)
		}
		m.logger.Info("pruned backup", "key", obj.Key)
	}
	return nil
}

// Fetch downloads and decrypts the snapshot at key into dstPath, then checks
// that the result is a sound SQLite database. The live database is untouched.
func (m *Manager) Fetch(ctx context.Context, key, dstPath string) error {
	m.mu.Lock()
	client, cfg := m.client, m.cfg
	m.mu.Unlock()
	if client == nil {
		return ErrNotConfigured
	}

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer obj.Body.Close()

	enc, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	plain, err := Decrypt(enc, cfg.Passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, plain, 0600); err != nil {
		return fmt.Errorf("write restored database: %w", err)
	}
	return checkIntegrity(ctx, dstPath)
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
