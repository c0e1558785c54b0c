// Package signer 实现对象存储请求的 HMAC 签名，并签发限时只读凭证（签名 URL）.
//
// 规范化字符串沿用 SharedKey 的格式：方法与 11 个标准头各占一行，随后是排序后的扩展头与规范化资源.
// 只读凭证把过期时间、权限与签发身份写入查询参数，由 /blob 网关校验；
// 也可以切换为对象存储原生的预签名 URL. 签名不可用时退回未签名地址，不向调用方报错.
package signer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/blobdrive/pkg/configs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// ErrMissingCredentials 未配置签名密钥.
var ErrMissingCredentials = errors.New("signer: signing credentials not configured")

// DefaultCapabilityTTL 未指定有效期时只读凭证的有效期.
const DefaultCapabilityTTL = 15 * time.Minute

// Presigner 由对象存储后端实现，storage 模式下签发原生预签名 URL.
type Presigner interface {
	ObjectURL(container, key string) string
	PresignGet(ctx context.Context, container, key string, ttl time.Duration) (string, error)
}

// Engine 签名引擎. 零密钥的 Engine 仍可使用：Sign 返回 ErrMissingCredentials，签发凭证退回未签名地址.
type Engine struct {
	account    string
	key        []byte
	mode       configs.CapabilityMode
	baseURL    string
	identifier string
	ttl        time.Duration
	presigner  Presigner
	now        func() time.Time
	logger     zerolog.Logger
	onFallback func(reason string)
}

// Option 配置 Engine.
type Option func(*Engine)

// WithPresigner 设置 storage 模式使用的预签名后端.
func WithPresigner(p Presigner) Option {
	return func(e *Engine) { e.presigner = p }
}

// WithClock 替换时间源，测试使用.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFallbackHook 在凭证退回未签名地址时回调，用于指标.
func WithFallbackHook(fn func(reason string)) Option {
	return func(e *Engine) { e.onFallback = fn }
}

// New 根据配置创建 Engine. 密钥存在但不是合法 base64 时返回错误；密钥为空不是错误.
func New(cfg configs.SigningConfig, opts ...Option) (*Engine, error) {
	e := &Engine{
		account:    cfg.Account,
		mode:       cfg.Mode,
		baseURL:    trimSlash(cfg.PublicBaseURL),
		identifier: cfg.SignIdentifier,
		ttl:        cfg.CapabilityTTL,
		now:        time.Now,
		logger:     nlog.Component("signer"),
	}

	if e.mode == "" {
		e.mode = configs.CapabilityGateway
	}

	if e.ttl <= 0 {
		e.ttl = DefaultCapabilityTTL
	}

	if cfg.AccountKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("decode signing key: %w", err)
		}

		e.key = key
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Account 返回规范化资源中使用的账户名.
func (e *Engine) Account() string { return e.account }

// HasCredentials 报告是否配置了签名密钥.
func (e *Engine) HasCredentials() bool { return len(e.key) > 0 }

// DefaultTTL 返回默认凭证有效期.
func (e *Engine) DefaultTTL() time.Duration { return e.ttl }

// Sign 对规范化字符串做 HMAC-SHA256 并以 base64 编码. 相同输入总是得到相同签名.
func (e *Engine) Sign(stringToSign string) (string, error) {
	if !e.HasCredentials() {
		return "", ErrMissingCredentials
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write([]byte(stringToSign))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// SignRequest 返回请求的 Authorization 头值 "SharedKey <account>:<signature>".
func (e *Engine) SignRequest(r Request) (string, error) {
	sig, err := e.Sign(StringToSign(e.account, r))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("SharedKey %s:%s", e.account, sig), nil
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}

	return s
}
