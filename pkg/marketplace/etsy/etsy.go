package etsy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/pkg/apperr"
	"fulfill_dev_v1_202608/pkg/marketplace"
	pkgnet "fulfill_dev_v1_202608/pkg/net"
)

const defaultBaseURL = "https://openapi.etsy.com/v3"

// ==================== Adapter ====================

// Adapter Etsy 平台适配器
// 只做协议转换，订单快照归一化后交给同步引擎
type Adapter struct {
	baseURL    string
	dispatcher pkgnet.Dispatcher
	logger     *zap.Logger
}

var _ marketplace.Adapter = (*Adapter)(nil)

// NewAdapter 创建 Etsy 适配器
func NewAdapter(dispatcher pkgnet.Dispatcher, logger *zap.Logger) *Adapter {
	return &Adapter{
		baseURL:    defaultBaseURL,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SetBaseURL 覆盖 API 地址（测试用）
func (a *Adapter) SetBaseURL(u string) {
	a.baseURL = u
}

// Platform 平台标识
func (a *Adapter) Platform() model.Platform {
	return model.PlatformEtsy
}

// ==================== 订单拉取 ====================

// ListOrders 拉取 since 之后有更新的订单（receipts 接口，min_last_modified 窗口）
func (a *Adapter) ListOrders(ctx context.Context, creds marketplace.Credentials, since time.Time, limit, offset int) ([]marketplace.OrderSnapshot, int, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("sort_on", "updated")
	params.Set("sort_order", "asc")
	if !since.IsZero() {
		params.Set("min_last_modified", strconv.FormatInt(since.Unix(), 10))
	}

	apiURL := fmt.Sprintf("%s/application/shops/%d/receipts?%s", a.baseURL, creds.ExternalShopID, params.Encode())
	var resp EtsyReceiptsResp
	if err := a.doGet(ctx, creds, "ListOrders", apiURL, &resp); err != nil {
		return nil, 0, err
	}

	snaps := make([]marketplace.OrderSnapshot, 0, len(resp.Results))
	for i := range resp.Results {
		snaps = append(snaps, normalizeReceipt(&resp.Results[i]))
	}

	return snaps, resp.Count, nil
}

// GetFulfillments 拉取单个订单的发货记录
func (a *Adapter) GetFulfillments(ctx context.Context, creds marketplace.Credentials, externalOrderID string) ([]marketplace.FulfillmentRecord, error) {
	apiURL := fmt.Sprintf("%s/application/shops/%d/receipts/%s", a.baseURL, creds.ExternalShopID, externalOrderID)
	var receipt EtsyReceiptData
	if err := a.doGet(ctx, creds, "GetFulfillments", apiURL, &receipt); err != nil {
		return nil, err
	}

	return normalizeShipments(receipt.Shipments), nil
}

// ==================== 面单回传 ====================

// PushTracking 回传面单号到 Etsy
func (a *Adapter) PushTracking(ctx context.Context, creds marketplace.Credentials, externalOrderID, trackingNumber, carrier string) error {
	reqBody := map[string]interface{}{
		"tracking_code": trackingNumber,
		"carrier_name":  mapCarrierToEtsy(carrier),
	}
	bodyBytes, _ := json.Marshal(reqBody)

	apiURL := fmt.Sprintf("%s/application/shops/%d/receipts/%s/tracking", a.baseURL, creds.ExternalShopID, externalOrderID)
	httpReq, err := pkgnet.BuildEtsyRequest(ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes), creds.APIKey, creds.AccessToken)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}

	resp, err := a.dispatcher.Send(ctx, creds.ExternalShopID, httpReq)
	if err != nil {
		return apperr.NewUpstreamTransport(string(model.PlatformEtsy), "PushTracking", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return apperr.NewUpstreamError(string(model.PlatformEtsy), "PushTracking", resp.StatusCode,
			fmt.Errorf("%s", string(body)))
	}

	a.logger.Info("面单号已回传 Etsy",
		zap.String("receipt_id", externalOrderID),
		zap.String("tracking", trackingNumber))
	return nil
}

// ==================== 内部方法 ====================

// doGet 发送 GET 请求并解析 JSON，错误按状态码归类
func (a *Adapter) doGet(ctx context.Context, creds marketplace.Credentials, op, apiURL string, out interface{}) error {
	httpReq, err := pkgnet.BuildEtsyRequest(ctx, http.MethodGet, apiURL, nil, creds.APIKey, creds.AccessToken)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}

	resp, err := a.dispatcher.Send(ctx, creds.ExternalShopID, httpReq)
	if err != nil {
		return apperr.NewUpstreamTransport(string(model.PlatformEtsy), op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var errResp EtsyErrorResp
		_ = json.Unmarshal(body, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = string(body)
		}
		return apperr.NewUpstreamError(string(model.PlatformEtsy), op, resp.StatusCode, fmt.Errorf("%s", msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析 Etsy 响应失败: %w", err)
	}
	return nil
}

// ==================== 归一化 ====================

// normalizeReceipt 将 Etsy receipt 转为平台无关快照
func normalizeReceipt(r *EtsyReceiptData) marketplace.OrderSnapshot {
	snap := marketplace.OrderSnapshot{
		Platform:        model.PlatformEtsy,
		ExternalOrderID: strconv.FormatInt(r.ReceiptID, 10),
		OrderNumber:     strconv.FormatInt(r.ReceiptID, 10),
		CustomerName:    r.Name,
		CustomerEmail:   r.BuyerEmail,
		IsShipped:       r.IsShipped,
		ReceiptAddress: &marketplace.Address{
			Name:        r.Name,
			FirstLine:   r.FirstLine,
			SecondLine:  r.SecondLine,
			City:        r.City,
			State:       r.State,
			PostalCode:  r.Zip,
			CountryCode: r.CountryISO,
		},
		Fulfillments: normalizeShipments(r.Shipments),
	}

	if r.CreateTimestamp > 0 {
		t := time.Unix(r.CreateTimestamp, 0)
		snap.CreatedAt = &t
	}
	if r.UpdateTimestamp > 0 {
		t := time.Unix(r.UpdateTimestamp, 0)
		snap.UpdatedAt = &t
	}

	for _, tx := range r.Transactions {
		item := marketplace.LineItem{
			ExternalItemID: strconv.FormatInt(tx.TransactionID, 10),
			Title:          tx.Title,
			SKU:            tx.SKU,
			Quantity:       tx.Quantity,
		}
		if len(tx.Variations) > 0 {
			item.Variations = make(map[string]string, len(tx.Variations))
			for _, v := range tx.Variations {
				item.Variations[v.FormattedName] = v.FormattedValue
			}
		}
		snap.Items = append(snap.Items, item)
	}

	// 原始报文逐字保留
	if rawData, err := json.Marshal(r); err == nil {
		snap.Raw = rawData
	}

	return snap
}

// normalizeShipments Etsy 发货记录归一化
// Etsy 的 shipment 不携带地址，ShipTo 留空
func normalizeShipments(shipments []EtsyShipmentData) []marketplace.FulfillmentRecord {
	records := make([]marketplace.FulfillmentRecord, 0, len(shipments))
	for _, s := range shipments {
		rec := marketplace.FulfillmentRecord{
			ExternalID:     strconv.FormatInt(s.ReceiptShippingID, 10),
			TrackingNumber: s.TrackingCode,
			Carrier:        s.CarrierName,
			Cancelled:      s.Status == "canceled" || s.Status == "cancelled",
		}
		if s.ShipmentNotificationTimestamp > 0 {
			t := time.Unix(s.ShipmentNotificationTimestamp, 0)
			rec.NotifiedAt = &t
		}
		records = append(records, rec)
	}
	return records
}

// mapCarrierToEtsy 将物流商代码映射为 Etsy 支持的格式
func mapCarrierToEtsy(carrierCode string) string {
	carriers := map[string]string{
		"usps":        "usps",
		"ups":         "ups",
		"fedex":       "fedex",
		"dhl":         "dhl",
		"dhl-express": "dhl",
	}
	if mapped, ok := carriers[carrierCode]; ok {
		return mapped
	}
	return "other"
}
