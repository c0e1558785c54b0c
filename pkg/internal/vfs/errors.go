package vfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

// 错误分类. 存储后端的错误在本包边界归类一次，调用方用 errors.Is 判断.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrUnavailable     = errors.New("temporarily unavailable")
	ErrConfiguration   = errors.New("configuration error")
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	errNotAFile = errors.New("path does not name an object")
	errInTrash  = errors.New("object is in the recycle bin")
)

// Error 携带分类、操作与路径.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}

	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Detail 返回底层原因，用于诊断输出.
func (e *Error) Detail() string {
	if e.Err == nil {
		return ""
	}

	return e.Err.Error()
}

// Errorf 构造指定分类的错误.
func Errorf(kind error, op, path, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// classify 把存储后端错误归入分类：容器或对象不存在为 NotFound，其余为 Unavailable.
func classify(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var ve *Error
	if errors.As(err, &ve) {
		return err
	}

	kind := ErrUnavailable

	switch {
	case blob.IsNotFound(err):
		kind = ErrNotFound
	case errors.Is(err, signer.ErrMissingCredentials):
		kind = ErrConfiguration
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = ErrUnavailable
	}

	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
