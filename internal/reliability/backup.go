// Package reliability provides the nightly object-storage backup of
// the engine's databases.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/config"
	"github.com/mkosta/warroom/internal/database"
)

// BackupService snapshots every database with VACUUM INTO, bundles the
// copies into a tar.gz archive with a metadata manifest and uploads the
// archive to an S3-compatible bucket.
type BackupService struct {
	cfg       *config.BackupConfig
	dataDir   string
	databases map[string]*database.DB
	uploader  *manager.Uploader
	cron      *cron.Cron
	log       zerolog.Logger
}

// backupMetadata is the manifest written alongside the database copies.
type backupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []databaseMetadata `json:"databases"`
}

type databaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// NewBackupService creates the backup service and its S3 client.
func NewBackupService(ctx context.Context, cfg *config.BackupConfig, dataDir string, databases map[string]*database.DB, log zerolog.Logger) (*BackupService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
	})

	return &BackupService{
		cfg:       cfg,
		dataDir:   dataDir,
		databases: databases,
		uploader:  manager.NewUploader(client),
		log:       log.With().Str("service", "backup").Logger(),
	}, nil
}

// Start schedules the nightly backup.
func (s *BackupService) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithLocation(time.UTC))
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if err := s.CreateAndUpload(ctx); err != nil {
			s.log.Error().Err(err).Msg("nightly backup failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Str("bucket", s.cfg.Bucket).Msg("backup service started")
	return nil
}

// Stop halts the schedule and waits for a running backup.
func (s *BackupService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// CreateAndUpload runs one full backup.
func (s *BackupService) CreateAndUpload(ctx context.Context) error {
	started := time.Now()
	s.log.Info().Msg("Starting backup")

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := backupMetadata{
		Timestamp: time.Now().UTC(),
		Databases: make([]databaseMetadata, 0, len(s.databases)),
	}

	for name, db := range s.databases {
		copyPath := filepath.Join(stagingDir, name+".db")

		// VACUUM INTO produces a consistent point-in-time copy without
		// blocking writers.
		if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", copyPath)); err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(copyPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s copy: %w", name, err)
		}
		checksum, err := checksumFile(copyPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %s copy: %w", name, err)
		}

		metadata.Databases = append(metadata.Databases, databaseMetadata{
			Name:      name,
			Filename:  name + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	manifest, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "backup-metadata.json"), manifest, 0644); err != nil {
		return fmt.Errorf("failed to write backup manifest: %w", err)
	}

	archiveName := fmt.Sprintf("warroom-backup-%s.tar.gz", time.Now().UTC().Format("2006-01-02-150405"))
	archivePath := filepath.Join(s.dataDir, archiveName)
	if err := createArchive(stagingDir, archivePath); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer os.Remove(archivePath)

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	key := "backups/" + archiveName
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
		Body:   f,
	}); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().Str("key", key).Dur("took", time.Since(started)).Msg("Backup uploaded")
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func createArchive(sourceDir, archivePath string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(sourceDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = entry.Name()
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, f); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
	return nil
}
