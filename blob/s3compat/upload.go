package s3compat

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

// UploadParams describes one object upload to an S3-compatible mirror.
type UploadParams struct {
	SourcePath string
	// SourceChecksum is the hex SHA-256 of the source file; when the
	// mirror already holds an object with this checksum the upload is
	// skipped and the object's expiration is extended instead.
	SourceChecksum string
	SourceSize     int64
	ObjectKey      string
	ContentType    string

	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

type uploadService struct {
	client         *s3.Client
	bucket         string
	sourcePath     string
	sourceChecksum string
	sourceSize     int64
	contentType    string
}

// Upload copies a local file into the mirror bucket under params.ObjectKey.
func Upload(ctx context.Context, params UploadParams, logger log.Logger) error {
	if params.Bucket == "" {
		return fmt.Errorf("Bucket must not be empty")
	}
	if params.ObjectKey == "" {
		return fmt.Errorf("ObjectKey must not be empty")
	}
	if params.SourcePath == "" {
		return fmt.Errorf("SourcePath must not be empty")
	}
	if params.SourceSize == 0 {
		return fmt.Errorf("SourceSize must not be empty")
	}

	cfg, err := loadAWSConfig(
		ctx,
		params.Region,
		params.AccessKeyID,
		params.SecretAccessKey,
		logger,
	)
	if err != nil {
		return fmt.Errorf("load aws credentials: %w", err)
	}

	service := &uploadService{
		client:         s3.NewFromConfig(*cfg),
		bucket:         params.Bucket,
		sourcePath:     params.SourcePath,
		sourceChecksum: params.SourceChecksum,
		sourceSize:     params.SourceSize,
		contentType:    params.ContentType,
	}
	return service.upload(ctx, params.ObjectKey, logger)
}

func (service *uploadService) upload(ctx context.Context, objectKey string, logger log.Logger) error {
	checksum, err := service.findChecksumWithRetry(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("validate object: %w", err)
	}

	if checksum != "" && checksum == service.sourceChecksum {
		logger.Debugf("Mirror already holds this object. Extending expiration time...")
		if err := service.copyObjectWithRetry(ctx, objectKey, logger); err != nil {
			return fmt.Errorf("copy object: %w", err)
		}
		return nil
	}

	logger.Debugf("Uploading object...")
	if err := service.putObjectWithRetry(ctx, objectKey); err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

// findChecksumWithRetry returns the mirror object's SHA-256 checksum, or an
// empty string when the key is absent.
func (service *uploadService) findChecksumWithRetry(ctx context.Context, objectKey string) (string, error) {
	var checksum string
	err := retry.Times(numTransferRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		_, err := service.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(service.bucket),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			var apiError smithy.APIError
			if errors.As(err, &apiError) {
				switch apiError.(type) {
				case *types.NotFound:
					// continue with upload
					return nil, true
				default:
					return fmt.Errorf("validating object: %w", err), false
				}
			}
		}

		attributes, err := service.client.GetObjectAttributes(ctx, &s3.GetObjectAttributesInput{
			Bucket: aws.String(service.bucket),
			Key:    aws.String(objectKey),
			ObjectAttributes: []types.ObjectAttributes{
				"Checksum",
			},
		})
		if err != nil {
			return fmt.Errorf("get object attributes: %w", err), false
		}

		if attributes != nil && attributes.Checksum != nil && attributes.Checksum.ChecksumSHA256 != nil {
			decodedChecksum, err := base64.StdEncoding.DecodeString(*attributes.Checksum.ChecksumSHA256)
			if err != nil {
				return fmt.Errorf("base64 decode checksum: %w", err), true
			}

			checksum = hex.EncodeToString(decodedChecksum)
		}

		return nil, true
	})

	return checksum, err
}

// By copying an object onto itself with the same storage class, the
// expiration date gets extended without re-sending the payload.
func (service *uploadService) copyObjectWithRetry(ctx context.Context, objectKey string, logger log.Logger) error {
	return retry.Times(numTransferRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		resp, err := service.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:       aws.String(service.bucket),
			Key:          aws.String(objectKey),
			StorageClass: types.StorageClassStandard,
			CopySource:   aws.String(fmt.Sprintf("%s/%s", service.bucket, objectKey)),
		})
		if err != nil {
			return fmt.Errorf("extend expiration: %w", err), false
		}
		if resp != nil && resp.Expiration != nil {
			logger.Debugf("New expiration date is %s", *resp.Expiration)
		}
		return nil, true
	})
}

func (service *uploadService) putObjectWithRetry(ctx context.Context, objectKey string) error {
	return retry.Times(numTransferRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		file, err := os.Open(service.sourcePath)
		if err != nil {
			return fmt.Errorf("open source path: %w", err), true
		}
		defer file.Close() //nolint:errcheck

		var partMB int64 = 10
		uploader := manager.NewUploader(service.client, func(u *manager.Uploader) {
			u.PartSize = partMB * 1024 * 1024
		})

		contentType := service.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		_, err = uploader.Upload(ctx, &s3.PutObjectInput{
			Body:              file,
			Bucket:            aws.String(service.bucket),
			Key:               aws.String(objectKey),
			ContentType:       aws.String(contentType),
			ContentLength:     aws.Int64(service.sourceSize),
			ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		})
		if err != nil {
			return fmt.Errorf("upload object: %w", err), false
		}

		return nil, true
	})
}
