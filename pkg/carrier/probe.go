package carrier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"fulfill_dev_v1_202608/pkg/apperr"
)

// ==================== 物流轨迹探测 ====================

// Movement 一次轨迹查询结果
type Movement struct {
	TrackingNumber string
	Status         string // 承运商原始状态文本
	Delivered      bool
	LastEventAt    *time.Time
}

// Probe 物流轨迹探测接口
type Probe interface {
	Query(ctx context.Context, trackingNumber, carrier string) (*Movement, error)
}

// ==================== HTTP 实现 ====================

// probeResp 聚合查询接口响应
type probeResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TrackingNumber string `json:"tracking_number"`
		Status         string `json:"status"`
		Delivered      bool   `json:"delivered"`
		LastEventTime  string `json:"last_event_time"` // RFC3339
	} `json:"data"`
}

// HTTPProbe 走第三方轨迹聚合接口的实现
type HTTPProbe struct {
	ApiURL   string // 聚合接口地址
	ApiToken string // 接口密钥
	Client   *resty.Client
}

// NewHTTPProbe 初始化
func NewHTTPProbe(url, apiToken string) *HTTPProbe {
	return &HTTPProbe{
		ApiURL:   strings.TrimRight(url, "/"),
		ApiToken: apiToken,
		Client:   resty.New().SetTimeout(15 * time.Second),
	}
}

// Query 查询单票轨迹
func (p *HTTPProbe) Query(ctx context.Context, trackingNumber, carrier string) (*Movement, error) {
	var result probeResp
	resp, err := p.Client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+p.ApiToken).
		SetQueryParams(map[string]string{
			"tracking_number": trackingNumber,
			"carrier":         carrier,
		}).
		SetResult(&result).
		Get(p.ApiURL + "/v1/trackings")
	if err != nil {
		return nil, apperr.NewUpstreamTransport("carrier", "queryTracking", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, apperr.NewUpstreamError("carrier", "queryTracking", resp.StatusCode(),
			fmt.Errorf("轨迹查询失败: %s", resp.String()))
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("轨迹查询返回业务错误 [%d]: %s", result.Code, result.Msg)
	}

	m := &Movement{
		TrackingNumber: result.Data.TrackingNumber,
		Status:         result.Data.Status,
		Delivered:      result.Data.Delivered,
	}
	if result.Data.LastEventTime != "" {
		if t, err := time.Parse(time.RFC3339, result.Data.LastEventTime); err == nil {
			m.LastEventAt = &t
		}
	}
	return m, nil
}
