package fetch

import (
	"errors"
	"fmt"
)

// Kind 是抓取失败的分类。
type Kind string

const (
	KindConnection     Kind = "connection"
	KindAuthentication Kind = "authentication"
	KindNotFound       Kind = "not_found"
	KindServerError    Kind = "server_error"
	KindTimeout        Kind = "timeout"
	KindHTTPStatus     Kind = "http_status"
)

// 与 Kind 一一对应的哨兵错误，配合 errors.Is 使用。
var (
	ErrConnection     = errors.New("connection failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("directory not found")
	ErrServerError    = errors.New("server error")
	ErrTimeout        = errors.New("request timed out")
	ErrHTTPStatus     = errors.New("unexpected http status")

	// ErrBodyTooLarge 表示响应体超过上限，不会重试。
	ErrBodyTooLarge = errors.New("response body exceeds limit")
)

var kindSentinels = map[Kind]error{
	KindConnection:     ErrConnection,
	KindAuthentication: ErrAuthentication,
	KindNotFound:       ErrNotFound,
	KindServerError:    ErrServerError,
	KindTimeout:        ErrTimeout,
	KindHTTPStatus:     ErrHTTPStatus,
}

// FetchError 描述一次失败的抓取；StatusCode 仅在收到响应时非零。
type FetchError struct {
	Kind       Kind
	Message    string
	StatusCode int
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrNotFound) 等按 Kind 匹配。
func (e *FetchError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// Retryable 返回该错误是否值得重试：仅连接失败与超时。
func (e *FetchError) Retryable() bool {
	return e.Kind == KindConnection || e.Kind == KindTimeout
}

// KindOf 提取错误链上的 FetchError 分类；非 FetchError 返回空串。
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// ErrorForStatus 把 >=400 的 HTTP 状态码映射为 FetchError。
func ErrorForStatus(url string, status int) *FetchError {
	switch {
	case status == 401 || status == 403:
		return &FetchError{Kind: KindAuthentication, Message: "authentication failed", StatusCode: status, URL: url}
	case status == 404:
		return &FetchError{Kind: KindNotFound, Message: "directory not found", StatusCode: status, URL: url}
	case status >= 500:
		return &FetchError{Kind: KindServerError, Message: "server error", StatusCode: status, URL: url}
	default:
		return &FetchError{Kind: KindHTTPStatus, Message: "unexpected http status", StatusCode: status, URL: url}
	}
}
