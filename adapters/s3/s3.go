// Package s3 provides a batch S3 document source and an S3 result sink. The
// source lists objects under a prefix and emits one message per document:
// whole-object for "json", one per line for "ndjson", and one per row for
// "parquet".
package s3

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/reshape/reshape-go/adapters"
)

// Config holds S3 adapter configuration.
type Config struct {
	SourceID       string        `json:"source_id" yaml:"source_id"`
	Region         string        `json:"region" yaml:"region"`
	Bucket         string        `json:"bucket" yaml:"bucket"`
	Prefix         string        `json:"prefix" yaml:"prefix"`
	Format         string        `json:"format" yaml:"format"` // "json", "ndjson", or "parquet"
	MaxObjects     int           `json:"max_objects" yaml:"max_objects"`
	MaxObjectBytes int64         `json:"max_object_bytes" yaml:"max_object_bytes"`
	Endpoint       string        `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle bool          `json:"force_path_style" yaml:"force_path_style"`
	AccessKey      string        `json:"access_key" yaml:"access_key"`
	SecretKey      string        `json:"secret_key" yaml:"secret_key"`
	SessionToken   string        `json:"session_token" yaml:"session_token"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	BufferSize     int           `json:"buffer_size" yaml:"buffer_size"`
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	switch cfg.Format {
	case "json", "ndjson", "parquet":
	default:
		return fmt.Errorf("format must be json, ndjson or parquet")
	}
	if cfg.SourceID == "" {
		cfg.SourceID = fmt.Sprintf("s3-%s", cfg.Bucket)
	}
	if cfg.MaxObjectBytes == 0 {
		cfg.MaxObjectBytes = 10 * 1024 * 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 100
	}
	return nil
}

func newClient(ctx context.Context, cfg *Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
		opts = append(opts, config.WithCredentialsProvider(creds))
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// Source reads documents from objects under a bucket prefix, one pass.
type Source struct {
	config  *Config
	client  *s3.Client
	metrics adapters.Metrics
}

// NewSource creates an S3 source.
func NewSource(ctx context.Context, cfg *Config) (*Source, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Source{
		config:  cfg,
		client:  client,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Start lists the prefix and emits every document it finds, then closes the
// channel.
func (s *Source) Start(ctx context.Context) (<-chan *adapters.Message, error) {
	out := make(chan *adapters.Message, s.config.BufferSize)

	go func() {
		defer close(out)
		emitted := 0

		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.config.Bucket),
			Prefix: aws.String(s.config.Prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("s3 source %s: list: %v", s.config.SourceID, err)
					s.metrics.RecordFailed(s.config.SourceID)
				}
				return
			}
			for _, obj := range page.Contents {
				if s.config.MaxObjects > 0 && emitted >= s.config.MaxObjects {
					return
				}
				key := aws.ToString(obj.Key)
				docs, err := s.readObject(ctx, key)
				if err != nil {
					log.Printf("s3 source %s: skipping %s: %v", s.config.SourceID, key, err)
					s.metrics.RecordFailed(s.config.SourceID)
					continue
				}
				for _, doc := range docs {
					msg := &adapters.Message{
						ID:        uuid.NewString(),
						Key:       key,
						Document:  doc,
						SourceID:  s.config.SourceID,
						Timestamp: aws.ToTime(obj.LastModified),
					}
					s.metrics.RecordReceived(s.config.SourceID)
					select {
					case out <- msg:
						emitted++
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

func (s *Source) readObject(ctx context.Context, key string) ([]map[string]interface{}, error) {
	getCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.GetObject(getCtx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer resp.Body.Close()

	payload, err := readLimited(resp.Body, s.config.MaxObjectBytes)
	if err != nil {
		return nil, err
	}

	switch s.formatFor(key) {
	case "ndjson":
		return decodeNDJSON(payload)
	case "parquet":
		return decodeParquet(payload)
	default:
		var doc map[string]interface{}
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		return []map[string]interface{}{doc}, nil
	}
}

// formatFor prefers the object's extension over the configured default, so a
// mixed prefix still decodes correctly.
func (s *Source) formatFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".ndjson", ".jsonl":
		return "ndjson"
	case ".parquet":
		return "parquet"
	case ".json":
		return "json"
	default:
		return s.config.Format
	}
}

func decodeNDJSON(payload []byte) ([]map[string]interface{}, error) {
	var docs []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("decoding ndjson line: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func decodeParquet(payload []byte) ([]map[string]interface{}, error) {
	reader := parquet.NewGenericReader[map[string]interface{}](bytes.NewReader(payload))
	defer reader.Close()

	var docs []map[string]interface{}
	batch := make([]map[string]interface{}, 256)
	for {
		n, err := reader.Read(batch)
		for i := 0; i < n; i++ {
			docs = append(docs, batch[i])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading parquet: %w", err)
		}
	}
	return docs, nil
}

func readLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("object exceeds %d bytes", limit)
	}
	return data, nil
}

// Close is a no-op; the S3 client holds no connection state worth closing.
func (s *Source) Close() error {
	return nil
}

// Sink writes each transformed document as a JSON object under the
// configured prefix.
type Sink struct {
	config  *Config
	client  *s3.Client
	metrics adapters.Metrics
}

// NewSink creates an S3 sink.
func NewSink(ctx context.Context, cfg *Config) (*Sink, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Sink{
		config:  cfg,
		client:  client,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Write stores one document at <prefix>/<message id>.json.
func (s *Sink) Write(msg *adapters.Message) error {
	body, err := json.Marshal(msg.Document)
	if err != nil {
		return adapters.NewAdapterError(s.config.SourceID, "encode", err)
	}

	key := path.Join(s.config.Prefix, msg.ID+".json")
	putCtx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	_, err = s.client.PutObject(putCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.metrics.RecordFailed(s.config.SourceID)
		return adapters.NewAdapterError(s.config.SourceID, "put", err)
	}
	s.metrics.RecordDelivered(s.config.SourceID)
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error {
	return nil
}
