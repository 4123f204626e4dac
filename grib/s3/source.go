// Package s3 reads GRIB files stored in S3-compatible object stores without
// downloading them: each read is a ranged GET, so scanning a file's message
// index touches only the framing bytes.
//
// Works against AWS S3, MinIO, LocalStack, and other S3-compatible stores.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/justapithecus/grib/grib"
)

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("s3: object not found")

// ErrInvalidKey indicates an empty or escaping object key.
var ErrInvalidKey = errors.New("s3: invalid object key")

// API is the subset of the S3 client interface the source uses. It enables
// testing with mock implementations.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds configuration for a Source.
type Config struct {
	// Bucket is the S3 bucket name. Required.
	Bucket string

	// Prefix is an optional key prefix for all operations. A trailing slash
	// is added if missing.
	Prefix string
}

// Source opens GRIB objects in one bucket for ranged reading.
type Source struct {
	client API
	bucket string
	prefix string
}

// NewSource creates a Source over a pre-configured S3 client.
//
// The client must carry credentials, region, and endpoint. Use
// github.com/aws/aws-sdk-go-v2/config to load them, or NewClient for
// S3-compatible endpoints.
func NewSource(client API, cfg Config) (*Source, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Source{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// List returns the keys under prefix, relative to the source prefix.
// Pagination is handled automatically.
func (s *Source) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix, err := s.validatePrefix(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	var continuationToken *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(fullPrefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: list objects: %w", err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, strings.TrimPrefix(*obj.Key, s.prefix))
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	return keys, nil
}

// Open binds to the object at key. A HeadObject request verifies existence
// and fixes the size; afterwards every read is a ranged GET.
func (s *Source) Open(ctx context.Context, key string) (*Object, error) {
	fullKey, err := s.validateKey(key)
	if err != nil {
		return nil, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3: open %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("s3: head object: %w", err)
	}

	return &Object{
		client: s.client,
		bucket: s.bucket,
		key:    fullKey,
		size:   aws.ToInt64(head.ContentLength),
		ctx:    ctx,
	}, nil
}

// ScanMessages scans the object at key for GRIB message boundaries without
// downloading it: only the bytes the framing walk touches are fetched.
func (s *Source) ScanMessages(ctx context.Context, key string) ([]grib.Message, error) {
	obj, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}

	var msgs []grib.Message
	sc := grib.NewScanner(obj)
	for {
		m, ok := sc.Next()
		if !ok {
			break
		}
		msgs = append(msgs, m)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// validateKey validates and returns the full key for object operations.
func (s *Source) validateKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", ErrInvalidKey
	}
	return s.prefix + cleaned, nil
}

// validatePrefix validates and returns the full prefix for list operations.
func (s *Source) validatePrefix(prefix string) (string, error) {
	if prefix == "" {
		return s.prefix, nil
	}
	cleaned := path.Clean(prefix)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	if cleaned == "." {
		return s.prefix, nil
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	return s.prefix + cleaned, nil
}

// -----------------------------------------------------------------------------
// Object
// -----------------------------------------------------------------------------

// Object is a read-only view of one S3 object, implementing io.ReadSeeker and
// io.ReaderAt over ranged GETs. ReadAt is safe for concurrent use; the seek
// position is not synchronized.
type Object struct {
	client API
	bucket string
	key    string
	size   int64
	ctx    context.Context

	mu  sync.Mutex
	pos int64
}

// Size returns the object's length in bytes, as reported at Open time.
func (o *Object) Size() int64 {
	return o.size
}

// Read implements io.Reader at the current seek position.
func (o *Object) Read(p []byte) (int, error) {
	o.mu.Lock()
	pos := o.pos
	o.mu.Unlock()

	n, err := o.ReadAt(p, pos)

	o.mu.Lock()
	o.pos = pos + int64(n)
	o.mu.Unlock()
	return n, err
}

// Seek implements io.Seeker.
func (o *Object) Seek(offset int64, whence int) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = o.pos + offset
	case io.SeekEnd:
		pos = o.size + offset
	default:
		return 0, fmt.Errorf("s3: invalid seek whence %d", whence)
	}
	if pos < 0 {
		return 0, errors.New("s3: negative seek position")
	}
	o.pos = pos
	return pos, nil
}

// ReadAt implements io.ReaderAt via one ranged GET per call.
func (o *Object) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("s3: negative offset")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= o.size {
		return 0, io.EOF
	}

	// S3 range headers are inclusive on both ends.
	end := off + int64(len(p)) - 1
	rangeHeader := fmt.Sprintf("bytes=%d-%d", off, end)

	out, err := o.client.GetObject(o.ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange" {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("s3: range read: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// Requested range extends beyond EOF.
		err = io.EOF
	}
	return n, err
}

// isNotFound checks if an error indicates the object was not found.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}
