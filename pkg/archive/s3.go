package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/testnetoor/pkg/config"
)

const (
	defaultPrefix   = "testnetoor"
	defaultRegion   = "us-east-1"
	reportMediaType = "text/markdown; charset=utf-8"
)

// s3Archiver implements Archiver for S3-compatible storage.
type s3Archiver struct {
	log    logrus.FieldLogger
	cfg    *config.S3ArchiveConfig
	client *s3.Client
}

var _ Archiver = (*s3Archiver)(nil)

// NewS3Archiver creates an archiver writing to the configured bucket.
func NewS3Archiver(log logrus.FieldLogger, cfg *config.S3ArchiveConfig) Archiver {
	return &s3Archiver{
		log:    log.WithField("component", "s3-archive"),
		cfg:    cfg,
		client: newS3Client(cfg),
	}
}

func newS3Client(cfg *config.S3ArchiveConfig) *s3.Client {
	return s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = defaultRegion
		if cfg.Region != "" {
			o.Region = cfg.Region
		}

		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}

		o.UsePathStyle = cfg.ForcePathStyle

		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			)
		}

		// S3-compatible stores commonly reject the flexible checksum headers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
}

func (a *s3Archiver) Enabled() bool { return true }

// ArchiveReport writes the report to prefix/comparisons/<id>.md.
func (a *s3Archiver) ArchiveReport(ctx context.Context, comparisonID, report string) (string, error) {
	key := a.reportKey(comparisonID)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(report),
		ContentType: aws.String(reportMediaType),
	})
	if err != nil {
		return "", fmt.Errorf("putting object %q: %w", key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.cfg.Bucket, key)

	a.log.WithFields(logrus.Fields{
		"comparison": comparisonID,
		"location":   location,
	}).Info("Archived comparison report")

	return location, nil
}

// FetchReport reads an archived report back.
func (a *s3Archiver) FetchReport(ctx context.Context, comparisonID string) (string, error) {
	key := a.reportKey(comparisonID)

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return "", ErrNotArchived
		}

		return "", fmt.Errorf("getting object %q: %w", key, err)
	}

	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("reading object %q: %w", key, err)
	}

	return string(data), nil
}

// reportKey builds the object key for a comparison report.
func (a *s3Archiver) reportKey(comparisonID string) string {
	prefix := strings.Trim(a.cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}

	return prefix + "/comparisons/" + comparisonID + ".md"
}

// isS3NotFound returns true if the error indicates the object does not exist.
func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	// Some S3-compatible implementations return a generic error with
	// "NoSuchKey" in the message rather than the typed error.
	return strings.Contains(err.Error(), "NoSuchKey")
}
