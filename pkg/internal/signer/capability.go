package signer

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yeisme/blobdrive/pkg/configs"
)

// 只读凭证查询参数.
const (
	ParamPermission = "sp"
	ParamExpiry     = "se"
	ParamResource   = "sr"
	ParamIdentifier = "si"
	ParamSignature  = "sig"

	PermissionRead = "r"
	ResourceBlob   = "b"
)

// GatewayPrefix 网关路由前缀.
const GatewayPrefix = "/blob"

var (
	ErrCapabilityMissing    = errors.New("signer: capability token missing")
	ErrCapabilityExpired    = errors.New("signer: capability expired")
	ErrCapabilityPermission = errors.New("signer: capability does not grant read")
	ErrCapabilityInvalid    = errors.New("signer: capability signature mismatch")
)

type capabilityOptions struct {
	identifier string
}

// CapabilityOption 调整单次签发.
type CapabilityOption func(*capabilityOptions)

// WithIdentifier 覆盖写入凭证的签发身份.
func WithIdentifier(id string) CapabilityOption {
	return func(o *capabilityOptions) { o.identifier = id }
}

// GatewayURL 返回对象在网关上的未签名地址.
func (e *Engine) GatewayURL(container, key string) string {
	return e.baseURL + GatewayPrefix + "/" + url.PathEscape(container) + "/" + escapeKey(key)
}

// IssueReadCapability 签发对象的只读凭证 URL. ttl <= 0 时使用默认有效期.
// 签名失败不返回错误，退回未签名地址并记录警告.
func (e *Engine) IssueReadCapability(ctx context.Context, container, key string, ttl time.Duration, opts ...CapabilityOption) string {
	if ttl <= 0 {
		ttl = e.ttl
	}

	if e.mode == configs.CapabilityStorage {
		return e.issueStorage(ctx, container, key, ttl)
	}

	o := capabilityOptions{identifier: e.identifier}
	for _, opt := range opts {
		opt(&o)
	}

	base := e.GatewayURL(container, key)

	query := url.Values{}
	query.Set(ParamPermission, PermissionRead)
	query.Set(ParamExpiry, e.now().Add(ttl).UTC().Format(time.RFC3339))
	query.Set(ParamResource, ResourceBlob)

	if o.identifier != "" {
		query.Set(ParamIdentifier, o.identifier)
	}

	sig, err := e.Sign(e.capabilityString(container, key, query))
	if err != nil {
		e.fallback("sign", container, key, err)

		return base
	}

	query.Set(ParamSignature, sig)

	return base + "?" + query.Encode()
}

func (e *Engine) issueStorage(ctx context.Context, container, key string, ttl time.Duration) string {
	if e.presigner == nil {
		e.fallback("presign", container, key, ErrMissingCredentials)

		return e.GatewayURL(container, key)
	}

	u, err := e.presigner.PresignGet(ctx, container, key, ttl)
	if err != nil {
		e.fallback("presign", container, key, err)

		return e.presigner.ObjectURL(container, key)
	}

	return u
}

func (e *Engine) fallback(reason, container, key string, err error) {
	e.logger.Warn().Err(err).
		Str("container", container).
		Str("key", key).
		Str("reason", reason).
		Msg("issuing unsigned object url")

	if e.onFallback != nil {
		e.onFallback(reason)
	}
}

// VerifyReadCapability 校验网关请求携带的只读凭证.
func (e *Engine) VerifyReadCapability(container, key string, query url.Values, now time.Time) error {
	sig := query.Get(ParamSignature)
	if sig == "" {
		return ErrCapabilityMissing
	}

	if query.Get(ParamPermission) != PermissionRead || query.Get(ParamResource) != ResourceBlob {
		return ErrCapabilityPermission
	}

	expiry, err := time.Parse(time.RFC3339, query.Get(ParamExpiry))
	if err != nil {
		return fmt.Errorf("%w: bad expiry", ErrCapabilityInvalid)
	}

	if now.After(expiry) {
		return ErrCapabilityExpired
	}

	signed := url.Values{}
	for _, p := range []string{ParamPermission, ParamExpiry, ParamResource, ParamIdentifier} {
		if v := query.Get(p); v != "" {
			signed.Set(p, v)
		}
	}

	want, err := e.Sign(e.capabilityString(container, key, signed))
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrCapabilityInvalid
	}

	return nil
}

// capabilityString 凭证的规范化字符串：GET 请求，无标准头，资源附带凭证参数.
func (e *Engine) capabilityString(container, key string, query url.Values) string {
	return StringToSign(e.account, Request{
		Method:    "GET",
		Container: container,
		Key:       key,
		Query:     query,
	})
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return strings.Join(parts, "/")
}
