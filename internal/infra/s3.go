package infra

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/chartloop/backend/internal/app/appconfig"
)

func S3(conf *appconfig.Config) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(conf.StatsArchiveS3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AWSAccessKey, conf.AWSSecretKey, "")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	return s3.NewFromConfig(cfg), nil
}
