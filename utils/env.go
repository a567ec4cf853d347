package utils

import "os"

var (
	CRDB_DSN = os.Getenv("CRDB_DSN")

	// credentials come from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY
	AWS_DEFAULT_REGION = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT    = os.Getenv("S3_ENDPOINT")
	// S3_KEY_PREFIX is prepended to every uploaded fixture key
	S3_KEY_PREFIX = GetEnvOrDefault("S3_KEY_PREFIX", "fixtures")
)
