package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-workflow-api/internal/service"
	"github.com/noah-isme/syllabus-workflow-api/pkg/cache"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
	"github.com/noah-isme/syllabus-workflow-api/pkg/response"
)

const (
	// IdempotencyKeyHeader carries the client supplied replay key.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader marks responses served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
	defaultLockTTL          = 60 * time.Second
	storeTimeout            = 2 * time.Second
)

// IdempotencyConfig tunes the replay store.
type IdempotencyConfig struct {
	TTL     time.Duration
	LockTTL time.Duration
	Logger  *zap.Logger
	Metrics *service.MetricsService
}

type idempotencyEntry struct {
	InProgress  bool      `json:"in_progress"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	BodySHA256  string    `json:"body_sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency stores the first response of a keyed mutating request and replays it for
// retries carrying the same key and body. Requests without the header pass through.
// Must run after JWT so keys are scoped per actor.
func Idempotency(client *redis.Client, cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if client == nil || !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		idemKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if idemKey == "" {
			c.Next()
			return
		}
		if len(idemKey) > maxIdempotencyKeyLength {
			response.Abort(c, appErrors.Clone(appErrors.ErrValidation, "Idempotency-Key is too long"))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				response.Abort(c, appErrors.Clone(appErrors.ErrValidation, "unable to read request body"))
				return
			}
			body = raw
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := bodyHash(body)

		key := cache.Key("idem", c.Request.Method, c.Request.URL.Path, ActorID(c), idemKey)
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()

		acquired, err := reserve(ctx, client, key, idempotencyEntry{InProgress: true, BodySHA256: hash, CreatedAt: time.Now().UTC()}, cfg.LockTTL)
		if err != nil {
			cfg.Logger.Warn("idempotency store unavailable, passing through", zap.String("key", key), zap.Error(err))
			cfg.Metrics.RecordIdempotency("unavailable")
			c.Next()
			return
		}
		if !acquired {
			replayOrReject(ctx, c, client, key, hash, cfg)
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), storeTimeout)
		defer saveCancel()
		if writer.Status() >= http.StatusInternalServerError {
			if err := client.Del(saveCtx, key).Err(); err != nil {
				cfg.Logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			cfg.Metrics.RecordIdempotency("released")
			return
		}
		final := idempotencyEntry{
			Status:      writer.Status(),
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
			BodySHA256:  hash,
			CreatedAt:   time.Now().UTC(),
		}
		if err := store(saveCtx, client, key, final, cfg.TTL); err != nil {
			cfg.Logger.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
			return
		}
		cfg.Metrics.RecordIdempotency("stored")
	}
}

func replayOrReject(ctx context.Context, c *gin.Context, client *redis.Client, key, hash string, cfg IdempotencyConfig) {
	existing, err := load(ctx, client, key)
	if err != nil {
		cfg.Logger.Warn("failed to load idempotency entry", zap.String("key", key), zap.Error(err))
		cfg.Metrics.RecordIdempotency("in_progress")
		response.Abort(c, appErrors.Clone(appErrors.ErrConflict, "request with this Idempotency-Key is already in progress"))
		return
	}
	if existing.BodySHA256 != hash {
		cfg.Metrics.RecordIdempotency("mismatch")
		response.Abort(c, appErrors.Clone(appErrors.ErrConflict, "Idempotency-Key was reused with a different payload"))
		return
	}
	if existing.InProgress {
		cfg.Metrics.RecordIdempotency("in_progress")
		response.Abort(c, appErrors.Clone(appErrors.ErrConflict, "request with this Idempotency-Key is already in progress"))
		return
	}

	cfg.Metrics.RecordIdempotency("replayed")
	contentType := existing.ContentType
	if contentType == "" {
		contentType = gin.MIMEJSON
	}
	c.Header(ReplayedHeader, "true")
	if len(existing.Body) == 0 {
		c.AbortWithStatus(existing.Status)
		return
	}
	c.Data(existing.Status, contentType, existing.Body)
	c.Abort()
}

func reserve(ctx context.Context, client *redis.Client, key string, entry idempotencyEntry, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	return client.SetNX(ctx, key, payload, ttl).Result()
}

func store(ctx context.Context, client *redis.Client, key string, entry idempotencyEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, payload, ttl).Err()
}

func load(ctx context.Context, client *redis.Client, key string) (*idempotencyEntry, error) {
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.New("idempotency entry expired")
		}
		return nil, err
	}
	var entry idempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
