package blob

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/blobdrive/pkg/configs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// breakerBackend 用熔断器包装后端. 不存在类错误属于正常应答，调用方取消也不是后端故障，二者都不计入失败.
type breakerBackend struct {
	Backend
	cb *gobreaker.CircuitBreaker
}

// WithBreaker 为后端加上熔断. 熔断打开时调用立即返回 gobreaker.ErrOpenState.
func WithBreaker(b Backend, name string, cfg configs.CircuitBreakerConfig) Backend {
	logger := nlog.Component("blob")

	settings := gobreaker.Settings{
		Name:        "blob-" + name,
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    cfg.Interval(),
		Timeout:     cfg.Timeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err) || errors.Is(err, ErrPresignUnsupported) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("storage circuit breaker state changed")
		},
	}

	return &breakerBackend{Backend: b, cb: gobreaker.NewCircuitBreaker(settings)}
}

// BreakerState 返回熔断器状态；未包装的后端返回空字符串.
func BreakerState(b Backend) string {
	if bb, ok := b.(*breakerBackend); ok {
		return bb.cb.State().String()
	}

	return ""
}

func (b *breakerBackend) do(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

func (b *breakerBackend) EnsureContainer(ctx context.Context, container string) error {
	_, err := b.do(func() (any, error) { return nil, b.Backend.EnsureContainer(ctx, container) })
	return err
}

func (b *breakerBackend) ListHierarchy(ctx context.Context, container, prefix string) ([]Entry, error) {
	v, err := b.do(func() (any, error) { return b.Backend.ListHierarchy(ctx, container, prefix) })
	if err != nil {
		return nil, err
	}

	return v.([]Entry), nil
}

func (b *breakerBackend) ListFlat(ctx context.Context, container, prefix string) ([]ObjectInfo, error) {
	v, err := b.do(func() (any, error) { return b.Backend.ListFlat(ctx, container, prefix) })
	if err != nil {
		return nil, err
	}

	return v.([]ObjectInfo), nil
}

func (b *breakerBackend) Put(ctx context.Context, container, key string, body []byte, contentType string, meta Metadata) (ObjectInfo, error) {
	v, err := b.do(func() (any, error) { return b.Backend.Put(ctx, container, key, body, contentType, meta) })
	if err != nil {
		return ObjectInfo{}, err
	}

	return v.(ObjectInfo), nil
}

func (b *breakerBackend) Get(ctx context.Context, container, key string) (*Object, error) {
	v, err := b.do(func() (any, error) { return b.Backend.Get(ctx, container, key) })
	if err != nil {
		return nil, err
	}

	return v.(*Object), nil
}

func (b *breakerBackend) Stat(ctx context.Context, container, key string) (ObjectInfo, error) {
	v, err := b.do(func() (any, error) { return b.Backend.Stat(ctx, container, key) })
	if err != nil {
		return ObjectInfo{}, err
	}

	return v.(ObjectInfo), nil
}

func (b *breakerBackend) SetMetadata(ctx context.Context, container, key string, meta Metadata) error {
	_, err := b.do(func() (any, error) { return nil, b.Backend.SetMetadata(ctx, container, key, meta) })
	return err
}

func (b *breakerBackend) Delete(ctx context.Context, container, key string) error {
	_, err := b.do(func() (any, error) { return nil, b.Backend.Delete(ctx, container, key) })
	return err
}

func (b *breakerBackend) PresignGet(ctx context.Context, container, key string, ttl time.Duration) (string, error) {
	v, err := b.do(func() (any, error) { return b.Backend.PresignGet(ctx, container, key, ttl) })
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (b *breakerBackend) HealthCheck(ctx context.Context) error {
	_, err := b.do(func() (any, error) { return nil, b.Backend.HealthCheck(ctx) })
	return err
}
