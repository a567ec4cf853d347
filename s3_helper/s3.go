package s3_helper

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/danthegoodman1/fixturegen/datastore"
	"github.com/danthegoodman1/fixturegen/gologger"
	"github.com/danthegoodman1/fixturegen/utils"
	"github.com/rs/zerolog"
)

var (
	logger = gologger.NewLogger()

	contentTypes = map[string]string{
		".csv":     "text/csv",
		".parquet": "application/vnd.apache.parquet",
	}
)

// ObjectKey is where a fixture file of a run is uploaded: <prefix>/<runID>/<file>.
func ObjectKey(prefix, runID, fileName string) string {
	return path.Join(strings.Trim(prefix, "/"), runID, fileName)
}

func ContentType(fileName string) *string {
	if ct, ok := contentTypes[path.Ext(fileName)]; ok {
		return aws.String(ct)
	}
	return aws.String("application/octet-stream")
}

func newUploader() (*s3manager.Uploader, error) {
	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}

	s3Session, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}
	return s3manager.NewUploader(s3Session), nil
}

func WriteBytesToS3(ctx context.Context, uploader *s3manager.Uploader, key string, byteStream io.Reader, contentType *string) (*s3manager.UploadOutput, error) {
	logger := zerolog.Ctx(ctx)

	input := &s3manager.UploadInput{
		Bucket:      aws.String(utils.S3_BUCKET_NAME),
		Key:         aws.String(key),
		Body:        byteStream,
		ContentType: contentType,
	}

	s := time.Now()
	output, err := uploader.UploadWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("error uploading to s3: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("key", key).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded file to s3")

	return output, nil
}

// UploadFixtures uploads the named files of a run from the store, in order, and
// returns their object keys. The first failure stops the upload.
func UploadFixtures(ctx context.Context, store datastore.DataStore, runID string, fileNames []string) ([]string, error) {
	if utils.S3_BUCKET_NAME == "" {
		return nil, utils.NewFixtureError(utils.KindConfig, "", fmt.Errorf("S3_BUCKET_NAME is not set"))
	}
	uploader, err := newUploader()
	if err != nil {
		return nil, utils.NewFixtureError(utils.KindIO, "", err)
	}

	keys := make([]string, 0, len(fileNames))
	for _, name := range fileNames {
		key := ObjectKey(utils.S3_KEY_PREFIX, runID, name)
		if err := uploadOne(ctx, uploader, store, name, key); err != nil {
			return keys, utils.NewFixtureError(utils.KindIO, strings.TrimSuffix(name, path.Ext(name)), err)
		}
		keys = append(keys, key)
	}
	logger.Info().Str("bucket", utils.S3_BUCKET_NAME).Str("runID", runID).Int("files", len(keys)).Msg("uploaded fixtures")
	return keys, nil
}

func uploadOne(ctx context.Context, uploader *s3manager.Uploader, store datastore.DataStore, name, key string) error {
	f, err := store.OpenFile(ctx, name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = WriteBytesToS3(ctx, uploader, key, f, ContentType(name))
	return err
}
