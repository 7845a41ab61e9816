package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
)

type MinIOConfig struct {
	Endpoint   string        `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey  string        `env:"MINIO_ACCESS_KEY" envDefault:"admin"`
	SecretKey  string        `env:"MINIO_SECRET_KEY" envDefault:"password123"`
	UseSSL     bool          `env:"MINIO_USE_SSL" envDefault:"false"`
	BucketName string        `env:"MINIO_BUCKET_NAME" envDefault:"quest-proofs"`
	URLExpiry  time.Duration `env:"MINIO_URL_EXPIRY" envDefault:"24h"`
}

// MinIOService stores quest proof photos.
type MinIOService struct {
	appContext.DefaultService
	client *minio.Client
	cfg    MinIOConfig
}

const MINIO_SVC = "minio_svc"

func (svc MinIOService) Id() string {
	return MINIO_SVC
}

func (svc *MinIOService) Configure(ctx *appContext.Context) error {
	if err := env.Parse(&svc.cfg); err != nil {
		return fmt.Errorf("minio config: %w", err)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *MinIOService) Start() error {
	client, err := minio.New(svc.cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(svc.cfg.AccessKey, svc.cfg.SecretKey, ""),
		Secure: svc.cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %v", err)
	}

	svc.client = client

	if err := svc.ensureBucket(); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %v", err)
	}

	log.Printf("MinIO service started successfully with endpoint: %s", svc.cfg.Endpoint)
	return nil
}

func (svc *MinIOService) ensureBucket() error {
	ctx := context.Background()

	exists, err := svc.client.BucketExists(ctx, svc.cfg.BucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		err = svc.client.MakeBucket(ctx, svc.cfg.BucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
		log.Printf("Created MinIO bucket: %s", svc.cfg.BucketName)
	}

	return nil
}

// ProofObjectName is the key a proof is stored under:
// quest-proofs/<user>/<unix ms>-<completion>.<ext>. The completion id keeps
// concurrent uploads from the same player apart.
func ProofObjectName(userID, completionID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s/%d-%s.%s", shared.ProofBucketPrefix, userID, at.UnixMilli(), completionID, ext)
}

func (svc *MinIOService) UploadProof(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := svc.client.PutObject(ctx, svc.cfg.BucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload proof to MinIO: %v", err)
	}
	return nil
}

func (svc *MinIOService) ProofURL(ctx context.Context, objectName string) (string, error) {
	presignedURL, err := svc.client.PresignedGetObject(ctx, svc.cfg.BucketName, objectName, svc.cfg.URLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %v", err)
	}
	return presignedURL.String(), nil
}

func (svc *MinIOService) DeleteProof(ctx context.Context, objectName string) error {
	err := svc.client.RemoveObject(ctx, svc.cfg.BucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete proof from MinIO: %v", err)
	}
	return nil
}
