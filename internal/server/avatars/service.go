// Package avatars manages the hosted profile-image cache: presigned S3 URLs
// for storing a copy of a provider profile image, so voter records never
// depend on provider CDN links staying alive.
package avatars

import (
	"context"
	"fmt"
	"time"

	sc "github.com/wevote/reconcile/internal/server/config"
	"github.com/wevote/reconcile/internal/server/repositories/voters"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Service struct {
	config *sc.Config
	voters voters.Repository
}

func NewService(config *sc.Config, voterRepo voters.Repository) *Service {
	return &Service{
		config: config,
		voters: voterRepo,
	}
}

// GetRandomStorageKey returns a fresh object key for a cached avatar,
// partitioned by upload date.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("avatars/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *Service) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return s3.NewPresignClient(client), nil
}

// GetPresignedPutUrl issues a presigned upload URL for a new avatar copy and
// returns the storage key alongside it.
func (s *Service) GetPresignedPutUrl(ctx context.Context) (string, string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// RecordHostedImages stores the hosted copies' URLs on the voter record.
// Unlike merge-time field union these overwrite: a newer cached image always
// replaces the previous one.
func (s *Service) RecordHostedImages(ctx context.Context, voterWeVoteID, large, medium, tiny string) error {
	voter, err := s.voters.GetByWeVoteID(ctx, voterWeVoteID)
	if err != nil {
		return fmt.Errorf("error loading voter: %w", err)
	}
	voter.ProfileImageURLLarge = large
	voter.ProfileImageURLMedium = medium
	voter.ProfileImageURLTiny = tiny
	if err := s.voters.Update(ctx, voter); err != nil {
		return fmt.Errorf("error saving hosted image urls: %w", err)
	}
	return nil
}

// GetPresignedGetUrl issues a presigned download URL for a stored avatar.
func (s *Service) GetPresignedGetUrl(ctx context.Context, key string) (string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
