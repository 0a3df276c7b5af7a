package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"worth-watch/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive stores the exact opinion corpus fed to the generative provider, so
// a surprising verdict can be audited against its inputs later.
type Archive struct {
	client *s3.Client
	cfg    *config.Config
}

// NewArchive creates an S3 client against the configured endpoint. Returns
// nil without error when archiving is not configured.
func NewArchive(cfg *config.Config) (*Archive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ArchiveS3URL,
				SigningRegion:     cfg.ArchiveS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.ArchiveS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ArchiveS3Key, cfg.ArchiveS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return &Archive{client: s3.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// StoreCorpus uploads one run's corpus and returns its link. Key layout:
// corpus/<tmdbID>/<timestamp>.txt.
func (a *Archive) StoreCorpus(ctx context.Context, tmdbID uint, corpus string) (string, error) {
	key := fmt.Sprintf("corpus/%d/%s.txt", tmdbID, time.Now().UTC().Format("20060102T150405"))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.cfg.ArchiveS3Bucket,
		Key:    &key,
		Body:   bytes.NewReader([]byte(corpus)),
	})
	if err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", a.cfg.ArchiveS3URL, a.cfg.ArchiveS3Bucket, key), nil
}
