package objectstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// ServiceName is the name the handler is registered under
const ServiceName = "storage"

const maxPresignExpiry = 7 * 24 * time.Hour

// Config configures the object store connection and upload limits
type Config struct {
	Endpoint      string
	Port          int
	UseSSL        bool
	AccessKey     string
	SecretKey     string
	Region        string
	DefaultBucket string
	MaxFileSize   int64
	// AllowedTypes restricts uploads by detected MIME type. Entries may
	// use a wildcard subtype such as image/*. Empty allows everything.
	AllowedTypes []string
	URLExpiry    time.Duration
}

// ObjectArgs identifies an object
type ObjectArgs struct {
	Bucket string `json:"bucket,omitempty" jsonschema:"description=Defaults to the configured bucket"`
	Key    string `json:"key"`
}

// ListArgs is the argument shape of listObjects
type ListArgs struct {
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// UploadArgs is the argument shape of upload
type UploadArgs struct {
	Bucket        string `json:"bucket,omitempty"`
	Key           string `json:"key"`
	Content       string `json:"content,omitempty" jsonschema:"description=Text payload"`
	ContentBase64 string `json:"contentBase64,omitempty" jsonschema:"description=Binary payload, base64 encoded"`
	ContentType   string `json:"contentType,omitempty"`
}

// PresignArgs is the argument shape of presignUpload
type PresignArgs struct {
	Bucket string `json:"bucket,omitempty"`
	Key    string `json:"key"`
	Expiry int    `json:"expiry,omitempty" jsonschema:"description=Seconds until the URL expires"`
}

// Handler serves the object store operations
type Handler struct {
	backend Backend
	cfg     Config
	logger  *zap.Logger
}

// New creates a handler over backend
func New(backend Backend, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 100 << 20
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}
	return &Handler{backend: backend, cfg: cfg, logger: logger.With(zap.String("service", ServiceName))}
}

// Capabilities lists the supported operations
func (h *Handler) Capabilities() []types.Capability {
	return []types.Capability{
		types.Op("listBuckets", "List buckets"),
		types.NewCapability[ListArgs]("listObjects", "List objects in a bucket"),
		types.NewCapability[UploadArgs]("upload", "Upload an object"),
		types.NewCapability[ObjectArgs]("download", "Download an object"),
		types.NewCapability[PresignArgs]("presignUpload", "Create a pre-signed upload URL"),
		types.NewCapability[ObjectArgs]("delete", "Delete an object"),
		types.NewCapability[ObjectArgs]("stat", "Get object metadata"),
		types.Op("test", "Check object store connectivity"),
	}
}

// ValidateParams checks arguments, including upload size and type
func (h *Handler) ValidateParams(params types.Params) error {
	switch params.Operation {
	case "download", "delete", "stat", "presignUpload":
		if err := params.Require("key"); err != nil {
			return err
		}
		if params.Operation == "presignUpload" {
			if exp := time.Duration(params.Int("expiry", 0)) * time.Second; exp < 0 || exp > maxPresignExpiry {
				return types.NewError(types.CodeInvalidParams, "expiry must be between 0 and 7 days",
					map[string]any{"expiry": params.Int("expiry", 0)})
			}
		}
	case "upload":
		if err := params.Require("key"); err != nil {
			return err
		}
		_, _, err := h.payload(params)
		return err
	}
	return nil
}

// Execute runs one operation
func (h *Handler) Execute(ctx context.Context, params types.Params) (*types.Result, error) {
	var (
		data any
		err  error
	)

	switch params.Operation {
	case "listBuckets":
		data, err = h.listBuckets(ctx)
	case "listObjects":
		data, err = h.listObjects(ctx, params)
	case "upload":
		data, err = h.upload(ctx, params)
	case "download":
		data, err = h.download(ctx, params)
	case "presignUpload":
		data, err = h.presign(ctx, params)
	case "delete":
		bucket, key := h.bucket(params), params.String("key")
		if err = h.backend.Remove(ctx, bucket, key); err == nil {
			h.logger.Info("Object deleted", zap.String("bucket", bucket), zap.String("key", key))
			data = map[string]any{"bucket": bucket, "key": key, "deleted": true}
		}
	case "stat":
		var info minio.ObjectInfo
		if info, err = h.backend.Stat(ctx, h.bucket(params), params.String("key")); err == nil {
			data = objectSummary(info)
		}
	case "test":
		data, err = h.test(ctx)
	default:
		return nil, types.Errorf(types.CodeOperationNotSupported, "unknown operation: %s", params.Operation)
	}

	if err != nil {
		return nil, classify(err, params)
	}
	return types.Success(data), nil
}

// Health checks that the default bucket is reachable
func (h *Handler) Health(ctx context.Context) error {
	_, err := h.backend.BucketExists(ctx, h.cfg.DefaultBucket)
	return err
}

// Shutdown is a no-op; the minio client holds no resources beyond its pool
func (h *Handler) Shutdown(context.Context) error {
	return nil
}

func (h *Handler) listBuckets(ctx context.Context) (any, error) {
	buckets, err := h.backend.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, map[string]any{"name": b.Name, "created": b.CreationDate})
	}
	return map[string]any{"buckets": out, "count": len(out)}, nil
}

func (h *Handler) listObjects(ctx context.Context, params types.Params) (any, error) {
	bucket := h.bucket(params)
	objects, err := h.backend.ListObjects(ctx, bucket, params.String("prefix"),
		params.Bool("recursive", false), params.Int("limit", 1000))
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(objects))
	for _, o := range objects {
		out = append(out, objectSummary(o))
	}
	return map[string]any{"bucket": bucket, "objects": out, "count": len(out)}, nil
}

func (h *Handler) upload(ctx context.Context, params types.Params) (any, error) {
	body, contentType, err := h.payload(params)
	if err != nil {
		return nil, err
	}

	bucket, key := h.bucket(params), params.String("key")
	info, err := h.backend.Put(ctx, bucket, key, body, contentType)
	if err != nil {
		return nil, err
	}
	h.logger.Info("Object uploaded",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(body)),
		zap.String("contentType", contentType),
	)
	return map[string]any{
		"bucket":      info.Bucket,
		"key":         info.Key,
		"etag":        info.ETag,
		"size":        info.Size,
		"contentType": contentType,
	}, nil
}

func (h *Handler) download(ctx context.Context, params types.Params) (any, error) {
	raw, info, err := h.backend.Get(ctx, h.bucket(params), params.String("key"), h.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	out := objectSummary(info)
	mt := mimetype.Detect(raw)
	if isText(mt) {
		out["content"] = string(raw)
		out["encoding"] = "utf-8"
	} else {
		out["content"] = base64.StdEncoding.EncodeToString(raw)
		out["encoding"] = "base64"
	}
	out["detectedType"] = mt.String()
	return out, nil
}

func (h *Handler) presign(ctx context.Context, params types.Params) (any, error) {
	expiry := h.cfg.URLExpiry
	if s := params.Int("expiry", 0); s > 0 {
		expiry = time.Duration(s) * time.Second
	}

	bucket, key := h.bucket(params), params.String("key")
	u, err := h.backend.PresignPut(ctx, bucket, key, expiry)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"bucket":    bucket,
		"key":       key,
		"url":       u.String(),
		"method":    "PUT",
		"expiresAt": time.Now().Add(expiry).UTC(),
		"maxSize":   h.cfg.MaxFileSize,
	}, nil
}

func (h *Handler) test(ctx context.Context) (any, error) {
	start := time.Now()
	exists, err := h.backend.BucketExists(ctx, h.cfg.DefaultBucket)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"connected":    true,
		"bucket":       h.cfg.DefaultBucket,
		"bucketExists": exists,
		"latencyMs":    time.Since(start).Milliseconds(),
	}, nil
}

func (h *Handler) bucket(params types.Params) string {
	if b := params.String("bucket"); b != "" {
		return b
	}
	return h.cfg.DefaultBucket
}

// payload decodes the upload body and checks it against the limits
func (h *Handler) payload(params types.Params) ([]byte, string, error) {
	var body []byte
	switch {
	case params.String("contentBase64") != "":
		decoded, err := base64.StdEncoding.DecodeString(params.String("contentBase64"))
		if err != nil {
			return nil, "", types.NewError(types.CodeInvalidParams, "contentBase64 is not valid base64",
				map[string]any{"key": params.String("key")})
		}
		body = decoded
	case params.String("content") != "":
		body = []byte(params.String("content"))
	default:
		return nil, "", types.NewError(types.CodeInvalidParams, "content or contentBase64 is required",
			map[string]any{"key": params.String("key")})
	}

	if int64(len(body)) > h.cfg.MaxFileSize {
		return nil, "", types.NewError(types.CodeInvalidParams, "file exceeds the maximum size",
			map[string]any{"size": len(body), "max": h.cfg.MaxFileSize})
	}

	mt := mimetype.Detect(body)
	if !h.allowed(mt) {
		return nil, "", types.NewError(types.CodeInvalidParams,
			fmt.Sprintf("content type %s is not allowed", mt.String()),
			map[string]any{"detectedType": mt.String(), "allowedTypes": h.cfg.AllowedTypes})
	}

	contentType := params.String("contentType")
	if contentType == "" {
		contentType = mt.String()
	}
	return body, contentType, nil
}

func (h *Handler) allowed(mt *mimetype.MIME) bool {
	if len(h.cfg.AllowedTypes) == 0 {
		return true
	}
	for _, a := range h.cfg.AllowedTypes {
		if prefix, ok := strings.CutSuffix(a, "/*"); ok {
			for m := mt; m != nil; m = m.Parent() {
				if strings.HasPrefix(m.String(), prefix+"/") {
					return true
				}
			}
			continue
		}
		if mt.Is(a) {
			return true
		}
	}
	return false
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func objectSummary(o minio.ObjectInfo) map[string]any {
	return map[string]any{
		"key":          o.Key,
		"size":         o.Size,
		"lastModified": o.LastModified,
		"contentType":  o.ContentType,
		"etag":         o.ETag,
	}
}

// classify maps missing buckets or keys and oversized objects to
// INVALID_PARAMS; other store failures stay plain errors.
func classify(err error, params types.Params) error {
	if _, ok := types.AsError(err); ok {
		return err
	}

	var tooLarge errTooLarge
	if errors.As(err, &tooLarge) {
		return types.NewError(types.CodeInvalidParams, tooLarge.Error(),
			map[string]any{"key": params.String("key"), "size": tooLarge.size, "max": tooLarge.max})
	}

	switch code := minio.ToErrorResponse(err).Code; code {
	case "NoSuchKey", "NoSuchBucket", "InvalidBucketName", "InvalidObjectName":
		return types.NewError(types.CodeInvalidParams, minio.ToErrorResponse(err).Message,
			map[string]any{"code": code, "bucket": params.String("bucket"), "key": params.String("key")})
	}
	return err
}
