package connector

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appErr "github.com/paperflowhq/paperflow/internal/pkg/errors"
)

// s3BucketProvider treats a remote S3-compatible bucket as a file store.
// "Folders" are key prefixes; entry ids are object keys.
type s3BucketProvider struct {
	client *s3.Client
	bucket string
	root   string
}

func init() {
	Register("s3bucket", createS3BucketProvider)
}

func createS3BucketProvider(args ProviderArgs) (Provider, error) {
	creds := args.Credentials
	if creds == nil || creds.Bucket == "" || creds.SecretID == "" || creds.SecretKey == "" {
		return nil, fmt.Errorf("s3bucket connector requires bucket/secret_id/secret_key")
	}
	region := creds.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.SecretID, creds.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	var opts []func(*s3.Options)
	if creds.Endpoint != "" {
		endpoint := creds.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			scheme := "http"
			if creds.UseSSL {
				scheme = "https"
			}
			endpoint = scheme + "://" + endpoint
		}
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return &s3BucketProvider{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: creds.Bucket,
		root:   strings.Trim(args.RootFolder, "/"),
	}, nil
}

func (p *s3BucketProvider) Name() string {
	return "s3bucket"
}

func (p *s3BucketProvider) EnsureAuth(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrProviderAuth, err)
	}
	return nil
}

func (p *s3BucketProvider) ListChildren(ctx context.Context, folderID string) ([]Entry, error) {
	prefix := strings.Trim(folderID, "/")
	if prefix == "" {
		prefix = p.root
	}
	if prefix != "" {
		prefix += "/"
	}
	entries := make([]Entry, 0)
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}
	paginator := s3.NewListObjectsV2Paginator(p.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, common := range page.CommonPrefixes {
			folder := strings.TrimSuffix(aws.ToString(common.Prefix), "/")
			entries = append(entries, Entry{
				ID:       folder,
				Name:     path.Base(folder),
				Path:     "/" + folder,
				IsFolder: true,
			})
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			entry := Entry{
				ID:   key,
				Name: path.Base(key),
				Path: "/" + key,
				Size: aws.ToInt64(object.Size),
			}
			if object.LastModified != nil {
				entry.ModifiedAt = object.LastModified.Unix()
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (p *s3BucketProvider) DownloadContent(ctx context.Context, itemID string) (*Content, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(itemID),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	content := &Content{
		Data:        data,
		ContentType: aws.ToString(out.ContentType),
	}
	if out.LastModified != nil {
		content.ModifiedAt = out.LastModified.Unix()
	}
	return content, nil
}
