package net

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Dispatcher 网络调度器 (通用组件)
// 按店铺维度限速，避免触发平台限流
type Dispatcher interface {
	// Send 发送 HTTP 请求
	// storeID: 业务实体的唯一标识
	// req: 标准的 http.Request 对象
	Send(ctx context.Context, storeID int64, req *http.Request) (*http.Response, error)
}

// httpDispatcher 是 Dispatcher 接口的具体实现
// 注意：它是私有的，外部只能通过 NewDispatcher 获取接口
type httpDispatcher struct {
	client       *http.Client
	limiterCache sync.Map // storeID -> *rate.Limiter
	ratePerSec   rate.Limit
	burst        int
	maxRetries   int
}

var _ Dispatcher = (*httpDispatcher)(nil)

// NewDispatcher 创建调度器
// ratePerSec: 每店铺每秒请求数上限
func NewDispatcher(ratePerSec float64, burst int) Dispatcher {
	return &httpDispatcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: 30 * time.Second,
		},
		ratePerSec: rate.Limit(ratePerSec),
		burst:      burst,
		maxRetries: 2,
	}
}

// Send 发送 HTTP 请求 (限速 + 网络层重试)
func (d *httpDispatcher) Send(ctx context.Context, storeID int64, req *http.Request) (*http.Response, error) {
	limiter := d.getLimiter(storeID)

	var lastErr error
	for i := 0; i <= d.maxRetries; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		// 上一次发送已把 body 读完，带 body 的请求重试前必须重建
		attempt := req
		if i > 0 {
			attempt = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rebuild request body: %w", err)
				}
				attempt.Body = body
			}
		}

		resp, err := d.client.Do(attempt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// ctx 已取消时不再重试
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after retries: %v", lastErr)
}

// getLimiter 获取/复用店铺限速器
func (d *httpDispatcher) getLimiter(storeID int64) *rate.Limiter {
	if val, ok := d.limiterCache.Load(storeID); ok {
		return val.(*rate.Limiter)
	}

	// LoadOrStore 防止并发重复创建
	actual, _ := d.limiterCache.LoadOrStore(storeID, rate.NewLimiter(d.ratePerSec, d.burst))
	return actual.(*rate.Limiter)
}
