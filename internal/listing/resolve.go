package listing

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrRelativeBase 表示基准地址缺少 scheme/host，无法产出绝对 URL。
var ErrRelativeBase = errors.New("base url must be absolute")

// Resolve 按 RFC 3986 将 ref 解析到 base 之上，结果必为绝对地址。
func Resolve(base, ref string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return ResolveReference(parsed, ref)
}

// ResolveReference 与 Resolve 相同，但复用已解析的 base。
// url.URL.ResolveReference 基于转义后的路径合并，因此百分号编码原样保留，
// 多余的 ".." 在根目录处截断。
func ResolveReference(base *url.URL, ref string) (string, error) {
	if base == nil || !base.IsAbs() || base.Host == "" {
		return "", ErrRelativeBase
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return base.ResolveReference(refURL).String(), nil
}

// Parent 返回 base 的上级目录地址；位于根目录时返回根本身。
func Parent(base *url.URL) string {
	resolved, err := ResolveReference(base, "..")
	if err != nil {
		if base == nil {
			return ""
		}
		return base.String()
	}
	return resolved
}
