package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
	"github.com/pwendlys/viaja-mais/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "Idempotent-Replay"

	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
	idempotencyPrefix  = "idempotency:"
	maxIdempotentBody  = 1 << 20
)

// IdempotencyMiddleware replays the stored 2xx response of a mutating
// request that repeats its Idempotency-Key on the same path with the same body.
// A Redis failure serves the request without idempotency.
type IdempotencyMiddleware struct {
	redis *redis.Client
}

func NewIdempotencyMiddleware(redisClient *redis.Client) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{redis: redisClient}
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// captureWriter tees the response body and keeps the first status written.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	if cw.status == 0 {
		cw.status = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func (m *IdempotencyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyHeader)
		if key == "" || !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBody))
		if err != nil {
			utils.BadRequest(w, "não foi possível ler o corpo da requisição")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := r.Context()
		storeKey := idempotencyPrefix + r.URL.Path + ":" + key
		requestHash := hashBody(body)

		stored, err := m.load(ctx, storeKey)
		switch {
		case err == nil:
			if stored.RequestHash != requestHash {
				utils.Error(w, apperrors.IdempotencyConflict())
				return
			}
			replay(w, stored)
			return
		case !errors.Is(err, redis.Nil):
			log.Printf("idempotency store unavailable, serving request directly: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		lockKey := storeKey + ":lock"
		locked, err := m.redis.SetNX(ctx, lockKey, "1", idempotencyLockTTL).Result()
		if err != nil {
			log.Printf("idempotency lock unavailable, serving request directly: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if !locked {
			utils.Error(w, apperrors.NewAPIError("request_in_progress", "uma requisição com esta chave já está em processamento", http.StatusConflict))
			return
		}
		// The response is persisted even if the client goes away.
		bg := context.WithoutCancel(ctx)
		defer m.redis.Del(bg, lockKey)

		cw := &captureWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)

		if cw.status >= 200 && cw.status < 300 {
			m.save(bg, storeKey, &storedResponse{
				Status:      cw.status,
				ContentType: cw.Header().Get("Content-Type"),
				Body:        cw.buf.Bytes(),
				RequestHash: requestHash,
			})
		}
	})
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(stored.Status)
	w.Write(stored.Body)
}

func (m *IdempotencyMiddleware) load(ctx context.Context, key string) (*storedResponse, error) {
	data, err := m.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (m *IdempotencyMiddleware) save(ctx context.Context, key string, stored *storedResponse) {
	data, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := m.redis.Set(ctx, key, data, idempotencyTTL).Err(); err != nil {
		log.Printf("idempotency: failed to store response for %s: %v", key, err)
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
