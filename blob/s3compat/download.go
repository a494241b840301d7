package s3compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

// ErrObjectNotFound is returned when none of the candidate keys exist
// in the mirror bucket.
var ErrObjectNotFound = errors.New("no object found for any of the provided keys")

var errKeyNotFound = errors.New("key not found in s3 bucket")

// DownloadParams describes one object download from an S3-compatible
// mirror. ObjectKeys is an ordered list of candidates; the first key
// that exists in the bucket is downloaded.
type DownloadParams struct {
	ObjectKeys      []string
	DestinationPath string

	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

type downloadService struct {
	client          *s3.Client
	bucket          string
	destinationPath string
}

// Download fetches the first available candidate object into
// params.DestinationPath and returns the key that matched.
// If there is no match for any of the keys, the error is ErrObjectNotFound.
func Download(ctx context.Context, params DownloadParams, logger log.Logger) (string, error) {
	if len(params.ObjectKeys) == 0 {
		return "", fmt.Errorf("ObjectKeys must not be empty")
	}
	if params.Bucket == "" {
		return "", fmt.Errorf("Bucket must not be empty")
	}
	if params.DestinationPath == "" {
		return "", fmt.Errorf("DestinationPath must not be empty")
	}

	cfg, err := loadAWSConfig(
		ctx,
		params.Region,
		params.AccessKeyID,
		params.SecretAccessKey,
		logger,
	)
	if err != nil {
		return "", fmt.Errorf("load aws credentials: %w", err)
	}

	service := &downloadService{
		client:          s3.NewFromConfig(*cfg),
		bucket:          params.Bucket,
		destinationPath: params.DestinationPath,
	}
	return service.download(ctx, params.ObjectKeys, logger)
}

func (service *downloadService) download(ctx context.Context, objectKeys []string, logger log.Logger) (string, error) {
	var firstValidKey string
	err := retry.Times(numTransferRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		for _, key := range objectKeys {
			keyFound, err := service.firstAvailableKey(ctx, key)
			if err != nil {
				if errors.Is(err, errKeyNotFound) {
					logger.Debugf("key %s not found in bucket: %s", key, err)
					continue
				}

				logger.Debugf("validate key %s: %s", key, err)
				return err, false
			}

			firstValidKey = keyFound
			return nil, true
		}
		return ErrObjectNotFound, true
	})
	if err != nil {
		return "", fmt.Errorf("key validation retries failed: %w", err)
	}

	err = retry.Times(numTransferRetries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		if err := service.getObject(ctx, firstValidKey); err != nil {
			return fmt.Errorf("download object: %w", err), false
		}

		return nil, true
	})
	if err != nil {
		return "", fmt.Errorf("all retries failed: %w", err)
	}

	return firstValidKey, nil
}

func (service *downloadService) firstAvailableKey(ctx context.Context, key string) (string, error) {
	_, err := service.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(service.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) {
			switch apiError.(type) {
			case *types.NotFound:
				return "", errKeyNotFound
			default:
				return "", fmt.Errorf("aws api error: %w", err)
			}
		}
		return "", fmt.Errorf("generic aws error: %w", err)
	}

	return key, nil
}

func (service *downloadService) getObject(ctx context.Context, key string) error {
	result, err := service.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(service.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	defer result.Body.Close() //nolint:errcheck

	file, err := os.Create(service.destinationPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(file, result.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
