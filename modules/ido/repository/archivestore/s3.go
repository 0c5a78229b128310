// Package archivestore uploads exported archive files to S3 compatible object storage.
package archivestore

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	idoconfig "github.com/gaze-network/ido-ledger/modules/ido/config"
)

const parquetContentType = "application/vnd.apache.parquet"

type S3Store struct {
	uploader *manager.Uploader
	bucket   string
}

func NewS3Store(ctx context.Context, conf idoconfig.ExportConfig) (*S3Store, error) {
	if conf.Bucket == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "export bucket is required")
	}
	sdkConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws user config")
	}

	s3client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if conf.Region != "" {
			o.Region = conf.Region
		}
		// self-hosted endpoints, e.g. MinIO, don't support virtual hosted buckets
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		uploader: manager.NewUploader(s3client),
		bucket:   conf.Bucket,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, key string, body []byte) (string, error) {
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(parquetContentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload s3://%s/%s", s.bucket, key)
	}
	return out.Location, nil
}
