package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Provider stores artifacts in an AWS S3 bucket
type S3Provider struct {
	client     *s3.Client
	bucketName string
	region     string
	baseURL    string // Base URL for accessing files (e.g., CloudFront)
}

// NewS3Provider creates a new AWS S3 artifact storage provider
func NewS3Provider(accessKeyID, secretAccessKey, region, bucketName string) (*S3Provider, error) {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucketName, region)

	return &S3Provider{
		client:     client,
		bucketName: bucketName,
		region:     region,
		baseURL:    baseURL,
	}, nil
}

func (p *S3Provider) GetProviderName() string {
	return "s3"
}

// PutArtifact uploads the artifact to S3 and returns its public URL.
func (p *S3Provider) PutArtifact(ctx context.Context, userID, generationID string, index int, data []byte, ext string) (string, error) {
	key := artifactKey(userID, generationID, index, ext)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeForExt(ext)),
		ACL:         "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("%s/%s", p.baseURL, key), nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	default:
		return "image/png"
	}
}
