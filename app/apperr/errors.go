// Package apperr 定义引擎内部使用的错误分类，供各层通过 errors.Is 判断错误类型
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误类型
var (
	ErrValidation   = errors.New("参数校验失败")
	ErrNotFound     = errors.New("资源不存在")
	ErrIO           = errors.New("文件读写失败")
	ErrProbeTimeout = errors.New("音轨探测超时")
)

// Error 带有错误类型和操作名称的错误
type Error struct {
	Kind error  // 错误类型，取值为上面的哨兵错误之一
	Op   string // 出错的操作
	Err  error  // 原始错误，可以为空
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap 同时暴露错误类型和原始错误
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation 创建参数校验错误
func Validation(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// NotFound 创建资源不存在错误
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// IO 包装文件读写错误
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrIO, Op: op, Err: err}
}

// HTTPStatus 将错误映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
