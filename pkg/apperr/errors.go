package apperr

import (
	"errors"
	"fmt"
)

// ==================== 上游平台错误 ====================

// UpstreamKind 上游错误类别
type UpstreamKind string

const (
	// UpstreamAuth 凭证失效，重试无意义，需要操作员重新授权
	UpstreamAuth UpstreamKind = "auth"
	// UpstreamTransient 限流 / 超时 / 5xx，下一轮调度自然重试
	UpstreamTransient UpstreamKind = "transient"
	// UpstreamPermanent 其余 4xx，请求本身有问题
	UpstreamPermanent UpstreamKind = "permanent"
)

// UpstreamError 平台 API 调用错误
type UpstreamError struct {
	Platform   string
	Op         string
	StatusCode int
	Kind       UpstreamKind
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s 失败 [%d/%s]: %v", e.Platform, e.Op, e.StatusCode, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s 失败 [%s]: %v", e.Platform, e.Op, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ClassifyStatus 按 HTTP 状态码归类上游错误
func ClassifyStatus(status int) UpstreamKind {
	switch {
	case status == 401 || status == 403:
		return UpstreamAuth
	case status == 408 || status == 429 || status >= 500:
		return UpstreamTransient
	default:
		return UpstreamPermanent
	}
}

// NewUpstreamError 构建上游错误
func NewUpstreamError(platform, op string, status int, err error) *UpstreamError {
	return &UpstreamError{
		Platform:   platform,
		Op:         op,
		StatusCode: status,
		Kind:       ClassifyStatus(status),
		Err:        err,
	}
}

// NewUpstreamTransport 网络层失败（无状态码），按临时错误处理
func NewUpstreamTransport(platform, op string, err error) *UpstreamError {
	return &UpstreamError{Platform: platform, Op: op, Kind: UpstreamTransient, Err: err}
}

// IsUpstreamAuth 判断是否为需要重新授权的错误
func IsUpstreamAuth(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == UpstreamAuth
}

// IsUpstreamTransient 判断是否为可自动重试的错误
func IsUpstreamTransient(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == UpstreamTransient
}

// ==================== 状态机错误 ====================

// ErrInvalidStateTransition 非法状态转移
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("不允许的状态转移: %s -> %s", e.From, e.To)
}

// ErrProductionLocked 生产开始后设计文件锁定
type ErrProductionLocked struct {
	OrderID int64
}

func (e *ErrProductionLocked) Error() string {
	return fmt.Sprintf("订单 %d 已进入生产，设计文件锁定", e.OrderID)
}

// ==================== 资源错误 ====================

// ErrNotFound 资源不存在
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s 不存在: %s", e.Resource, e.ID)
}
