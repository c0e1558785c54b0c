package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// 不支持逐键过期的实现（NATS KV、groupcache）共用的 TTL 包装.
const ttlMagic = "BDTTL1:"

type ttlValue struct {
	V []byte `json:"v"`
	E int64  `json:"e,omitempty"` // unix 秒，0 表示不过期
}

// encodeWithTTL ttl > 0 时包装值，否则原样返回.
func encodeWithTTL(value []byte, ttl time.Duration) ([]byte, error) {
	if ttl <= 0 {
		return value, nil
	}

	b, err := sonic.Marshal(ttlValue{V: value, E: time.Now().Add(ttl).Unix()})
	if err != nil {
		return nil, fmt.Errorf("marshal ttl value: %w", err)
	}

	return append([]byte(ttlMagic), b...), nil
}

// decodeWithTTL 识别包装并判断是否过期，返回 (value, expired, error).
func decodeWithTTL(b []byte, now time.Time) ([]byte, bool, error) {
	if !bytes.HasPrefix(b, []byte(ttlMagic)) {
		return b, false, nil
	}

	var tv ttlValue
	if err := sonic.Unmarshal(b[len(ttlMagic):], &tv); err != nil {
		return nil, false, fmt.Errorf("unmarshal ttl value: %w", err)
	}

	if tv.E > 0 && now.Unix() >= tv.E {
		return nil, true, nil
	}

	return tv.V, false, nil
}
