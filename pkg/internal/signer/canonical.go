package signer

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// standardHeaders 参与签名的标准头，顺序固定.
var standardHeaders = []string{
	"Content-Encoding",
	"Content-Language",
	"Content-Length",
	"Content-MD5",
	"Content-Type",
	"Date",
	"If-Modified-Since",
	"If-Match",
	"If-None-Match",
	"If-Unmodified-Since",
	"Range",
}

// extensionPrefixes 以这些前缀开头的头部进入规范化扩展头.
var extensionPrefixes = []string{"x-ms-", "x-amz-"}

// Request 描述一次待签名的存储请求.
type Request struct {
	Method        string
	Container     string
	Key           string
	ContentLength int64
	Header        http.Header
	Query         url.Values
}

// StringToSign 生成规范化字符串：
//
//	METHOD\n
//	<11 个标准头，每个一行，Content-Length 为 0 时留空>
//	<扩展头 name:value\n，name 小写且排序>
//	/<account>/<container>/<key>[\nparam:v1,v2 ...]
func StringToSign(account string, r Request) string {
	var b strings.Builder

	b.WriteString(strings.ToUpper(r.Method))
	b.WriteByte('\n')

	for _, h := range standardHeaders {
		v := r.Header.Get(h)
		if h == "Content-Length" {
			v = ""
			if r.ContentLength > 0 {
				v = strconv.FormatInt(r.ContentLength, 10)
			}
		}

		b.WriteString(v)
		b.WriteByte('\n')
	}

	b.WriteString(CanonicalHeaders(r.Header))
	b.WriteString(CanonicalResource(account, r.Container, r.Key, r.Query))

	return b.String()
}

// CanonicalHeaders 按小写名称排序输出扩展头，值去除首尾空白，多值以逗号连接.
func CanonicalHeaders(h http.Header) string {
	values := make(map[string][]string)

	for name, vs := range h {
		lower := strings.ToLower(strings.TrimSpace(name))
		if !hasExtensionPrefix(lower) {
			continue
		}

		for _, v := range vs {
			values[lower] = append(values[lower], strings.TrimSpace(v))
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}

	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(values[name], ","))
		b.WriteByte('\n')
	}

	return b.String()
}

// CanonicalResource 输出 /<account>/<container>/<key>，随后每个查询参数一行（名称小写排序，值排序后逗号连接）.
func CanonicalResource(account, container, key string, query url.Values) string {
	var b strings.Builder

	b.WriteByte('/')
	b.WriteString(account)
	b.WriteByte('/')
	b.WriteString(container)

	if key != "" {
		b.WriteByte('/')
		b.WriteString(strings.TrimPrefix(key, "/"))
	}

	if len(query) == 0 {
		return b.String()
	}

	merged := make(map[string][]string, len(query))
	for name, vs := range query {
		lower := strings.ToLower(name)
		merged[lower] = append(merged[lower], vs...)
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		vs := append([]string(nil), merged[name]...)
		sort.Strings(vs)

		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(vs, ","))
	}

	return b.String()
}

func hasExtensionPrefix(name string) bool {
	for _, p := range extensionPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}

	return false
}
