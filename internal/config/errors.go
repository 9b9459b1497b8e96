package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig 是所有字段校验错误的公共哨兵，调用方可用 errors.Is 判断。
var ErrInvalidConfig = errors.New("invalid config")

// FieldError 指出出错的字段路径（如 Server[Home].URL）与原因。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e FieldError) Unwrap() error {
	return ErrInvalidConfig
}

func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// serverField 拼接 Server[name].field；名称缺失时用序号定位。
func serverField(index int, name, field string) string {
	if name == "" {
		return fmt.Sprintf("Server[#%d].%s", index+1, field)
	}
	return fmt.Sprintf("Server[%s].%s", name, field)
}
