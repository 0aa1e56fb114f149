package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

var backupName = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// BackupKey is the object key of a user's named backup.
func BackupKey(userID, name string) string {
	return "users/" + userID + "/backups/" + name + ".json"
}

// BackupService hands out presigned URLs for backup bundles. The bundles
// themselves never pass through the server.
type BackupService struct {
	config *config.Config
	logger logging.Logger
}

func NewBackupService(cfg *config.Config, l logging.Logger) *BackupService {
	return &BackupService{config: cfg, logger: l.With("module", "backup_service")}
}

func (s *BackupService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

// Presign returns the object key and a presigned PUT (upload) or GET URL for
// the user's backup called name.
func (s *BackupService) Presign(ctx context.Context, userID, name string, upload bool) (string, string, error) {
	if !backupName.MatchString(name) {
		return "", "", fmt.Errorf("%w: invalid backup name %q", common.ErrorValidation, name)
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := BackupKey(userID, name)
	expires := s3.WithPresignExpires(s.validity())

	var req *v4.PresignedHTTPRequest
	if upload {
		req, err = presignPutObject(pc, ctx, &s3.PutObjectInput{
			Bucket:      &bucket,
			Key:         &key,
			ContentType: aws.String("application/json"),
		}, expires)
	} else {
		req, err = presignGetObject(pc, ctx, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		}, expires)
	}
	if err != nil {
		return "", "", fmt.Errorf("presign %s: %w", key, err)
	}

	s.logger.Debug(ctx, "presigned backup url", "user_id", userID, "key", key, "upload", upload)
	return key, req.URL, nil
}

func (s *BackupService) validity() time.Duration {
	if s.config.PresignValidityDuration > 0 {
		return s.config.PresignValidityDuration
	}
	return 15 * time.Minute
}
