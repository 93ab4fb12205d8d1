package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/pkg/apperr"
	"fulfill_dev_v1_202608/pkg/marketplace"
	pkgnet "fulfill_dev_v1_202608/pkg/net"
)

const defaultAPIVersion = "2025-07"

// ==================== GraphQL 协议结构 ====================

// GraphQLRequest GraphQL 请求体
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLResponse GraphQL 响应体
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// GraphQLError GraphQL 错误
type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// ==================== Adapter ====================

// Adapter Shopify 平台适配器
// 走 GraphQL Admin API，游标分页映射到 offset 约定上
type Adapter struct {
	apiVersion string
	baseURL    string // 测试时覆盖，生产留空走店铺域名
	dispatcher pkgnet.Dispatcher
	logger     *zap.Logger
}

var _ marketplace.Adapter = (*Adapter)(nil)

// NewAdapter 创建 Shopify 适配器
func NewAdapter(dispatcher pkgnet.Dispatcher, logger *zap.Logger) *Adapter {
	return &Adapter{
		apiVersion: defaultAPIVersion,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SetBaseURL 覆盖 API 地址（测试用）
func (a *Adapter) SetBaseURL(u string) {
	a.baseURL = u
}

// SetAPIVersion 覆盖 Admin API 版本
func (a *Adapter) SetAPIVersion(v string) {
	if v != "" {
		a.apiVersion = v
	}
}

// Platform 平台标识
func (a *Adapter) Platform() model.Platform {
	return model.PlatformShopify
}

// endpoint 组装 GraphQL 端点
// 店铺域名统一去掉协议前缀和末尾斜杠
func (a *Adapter) endpoint(creds marketplace.Credentials) string {
	if a.baseURL != "" {
		return a.baseURL
	}
	domain := creds.ShopDomain
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, a.apiVersion)
}

// ==================== 订单拉取 ====================

// ListOrders 拉取 since 之后有更新的订单
// Shopify 走游标分页，这里按 offset/limit 折算游标页数以满足统一约定
func (a *Adapter) ListOrders(ctx context.Context, creds marketplace.Credentials, since time.Time, limit, offset int) ([]marketplace.OrderSnapshot, int, error) {
	query := "updated_at:>" + since.UTC().Format(time.RFC3339)

	var after interface{}
	skipped := 0
	for {
		variables := map[string]interface{}{
			"first": limit,
			"query": query,
		}
		if after != nil {
			variables["after"] = after
		}

		data, err := a.execute(ctx, creds, "ListOrders", OrdersSinceQuery, variables)
		if err != nil {
			return nil, 0, err
		}

		var resp ordersData
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, 0, fmt.Errorf("解析 Shopify 订单响应失败: %w", err)
		}

		// 定位到调用方要求的 offset 所在页
		if skipped < offset {
			skipped += len(resp.Orders.Edges)
			if !resp.Orders.PageInfo.HasNextPage || len(resp.Orders.Edges) == 0 {
				return nil, skipped, nil
			}
			after = resp.Orders.PageInfo.EndCursor
			continue
		}

		snaps := make([]marketplace.OrderSnapshot, 0, len(resp.Orders.Edges))
		for i := range resp.Orders.Edges {
			snaps = append(snaps, normalizeOrder(&resp.Orders.Edges[i].Node))
		}

		total := skipped + len(snaps)
		if resp.Orders.PageInfo.HasNextPage {
			// 平台不下发总数，有下一页时用 offset+limit+1 驱动调用方继续翻页
			total = offset + len(snaps) + 1
		}
		return snaps, total, nil
	}
}

// GetFulfillments 拉取单个订单的发货记录
func (a *Adapter) GetFulfillments(ctx context.Context, creds marketplace.Credentials, externalOrderID string) ([]marketplace.FulfillmentRecord, error) {
	variables := map[string]interface{}{
		"id": orderGID(externalOrderID),
	}
	data, err := a.execute(ctx, creds, "GetFulfillments", OrderFulfillmentsQuery, variables)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Order *struct {
			Fulfillments []fulfillmentNode `json:"fulfillments"`
		} `json:"order"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("解析 Shopify 发货响应失败: %w", err)
	}
	if resp.Order == nil {
		return nil, &apperr.ErrNotFound{Resource: "shopify order", ID: externalOrderID}
	}

	return normalizeFulfillments(resp.Order.Fulfillments), nil
}

// ==================== 面单回传 ====================

// PushTracking 回传面单号
// Shopify 的 tracking 挂在 fulfillment 上，先取订单的首个发货记录
func (a *Adapter) PushTracking(ctx context.Context, creds marketplace.Credentials, externalOrderID, trackingNumber, carrier string) error {
	records, err := a.GetFulfillments(ctx, creds, externalOrderID)
	if err != nil {
		return err
	}

	var target *marketplace.FulfillmentRecord
	for i := range records {
		if !records[i].Cancelled {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return &apperr.ErrNotFound{Resource: "shopify fulfillment", ID: externalOrderID}
	}

	variables := map[string]interface{}{
		"fulfillmentId": fulfillmentGID(target.ExternalID),
		"trackingInfoInput": map[string]interface{}{
			"number":  trackingNumber,
			"company": carrier,
		},
	}

	data, err := a.execute(ctx, creds, "PushTracking", FulfillmentTrackingUpdateMutation, variables)
	if err != nil {
		return err
	}

	var resp struct {
		FulfillmentTrackingInfoUpdate struct {
			UserErrors []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"fulfillmentTrackingInfoUpdate"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("解析 Shopify 回传响应失败: %w", err)
	}
	if errs := resp.FulfillmentTrackingInfoUpdate.UserErrors; len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Message
		}
		return apperr.NewUpstreamError(string(model.PlatformShopify), "PushTracking", 0,
			fmt.Errorf("%s", strings.Join(msgs, "; ")))
	}

	a.logger.Info("面单号已回传 Shopify",
		zap.String("order_id", externalOrderID),
		zap.String("tracking", trackingNumber))
	return nil
}

// ==================== 内部方法 ====================

// execute 发送 GraphQL 请求
func (a *Adapter) execute(ctx context.Context, creds marketplace.Credentials, op, query string, variables map[string]interface{}) (json.RawMessage, error) {
	reqBody := GraphQLRequest{Query: query, Variables: variables}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := pkgnet.BuildShopifyRequest(ctx, a.endpoint(creds), bytes.NewReader(jsonData), creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}

	resp, err := a.dispatcher.Send(ctx, creds.ExternalShopID, httpReq)
	if err != nil {
		return nil, apperr.NewUpstreamTransport(string(model.PlatformShopify), op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, apperr.NewUpstreamError(string(model.PlatformShopify), op, resp.StatusCode,
			fmt.Errorf("%s", string(body)))
	}

	var graphQLResp GraphQLResponse
	if err := json.Unmarshal(body, &graphQLResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if len(graphQLResp.Errors) > 0 {
		msgs := make([]string, len(graphQLResp.Errors))
		for i, e := range graphQLResp.Errors {
			msgs[i] = e.Message
		}
		joined := strings.Join(msgs, "; ")
		// GraphQL 层的限流错误同样按临时错误处理
		if strings.Contains(strings.ToLower(joined), "throttled") {
			return nil, apperr.NewUpstreamError(string(model.PlatformShopify), op, 429, fmt.Errorf("%s", joined))
		}
		return nil, apperr.NewUpstreamError(string(model.PlatformShopify), op, 0, fmt.Errorf("%s", joined))
	}

	return graphQLResp.Data, nil
}

// ==================== 响应结构与归一化 ====================

type ordersData struct {
	Orders struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node orderNode `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

type orderNode struct {
	ID                       string `json:"id"`
	LegacyResourceID         string `json:"legacyResourceId"`
	Name                     string `json:"name"`
	DisplayFulfillmentStatus string `json:"displayFulfillmentStatus"`
	CreatedAt                string `json:"createdAt"`
	UpdatedAt                string `json:"updatedAt"`
	Customer                 *struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"customer"`
	ShippingAddress *struct {
		Name          string `json:"name"`
		Address1      string `json:"address1"`
		Address2      string `json:"address2"`
		City          string `json:"city"`
		ProvinceCode  string `json:"provinceCode"`
		Zip           string `json:"zip"`
		CountryCodeV2 string `json:"countryCodeV2"`
		Phone         string `json:"phone"`
	} `json:"shippingAddress"`
	LineItems struct {
		Edges []struct {
			Node struct {
				ID               string `json:"id"`
				Title            string `json:"title"`
				SKU              string `json:"sku"`
				Quantity         int    `json:"quantity"`
				CustomAttributes []struct {
					Key   string `json:"key"`
					Value string `json:"value"`
				} `json:"customAttributes"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
	Fulfillments []fulfillmentNode `json:"fulfillments"`
}

type fulfillmentNode struct {
	LegacyResourceID string `json:"legacyResourceId"`
	Status           string `json:"status"`
	CreatedAt        string `json:"createdAt"`
	TrackingInfo     []struct {
		Number  string `json:"number"`
		Company string `json:"company"`
		URL     string `json:"url"`
	} `json:"trackingInfo"`
}

// normalizeOrder 将 Shopify 订单转为平台无关快照
func normalizeOrder(n *orderNode) marketplace.OrderSnapshot {
	snap := marketplace.OrderSnapshot{
		Platform:        model.PlatformShopify,
		ExternalOrderID: n.LegacyResourceID,
		OrderNumber:     strings.TrimPrefix(n.Name, "#"),
		IsShipped:       n.DisplayFulfillmentStatus == "FULFILLED",
		Fulfillments:    normalizeFulfillments(n.Fulfillments),
	}

	if n.Customer != nil {
		snap.CustomerName = n.Customer.DisplayName
		snap.CustomerEmail = n.Customer.Email
	}
	if n.ShippingAddress != nil {
		snap.ReceiptAddress = &marketplace.Address{
			Name:        n.ShippingAddress.Name,
			FirstLine:   n.ShippingAddress.Address1,
			SecondLine:  n.ShippingAddress.Address2,
			City:        n.ShippingAddress.City,
			State:       n.ShippingAddress.ProvinceCode,
			PostalCode:  n.ShippingAddress.Zip,
			CountryCode: n.ShippingAddress.CountryCodeV2,
			Phone:       n.ShippingAddress.Phone,
		}
	}

	if t, err := time.Parse(time.RFC3339, n.CreatedAt); err == nil {
		snap.CreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, n.UpdatedAt); err == nil {
		snap.UpdatedAt = &t
	}

	for _, e := range n.LineItems.Edges {
		item := marketplace.LineItem{
			ExternalItemID: gidLegacyID(e.Node.ID),
			Title:          e.Node.Title,
			SKU:            e.Node.SKU,
			Quantity:       e.Node.Quantity,
		}
		if len(e.Node.CustomAttributes) > 0 {
			item.Variations = make(map[string]string, len(e.Node.CustomAttributes))
			for _, attr := range e.Node.CustomAttributes {
				item.Variations[attr.Key] = attr.Value
			}
		}
		snap.Items = append(snap.Items, item)
	}

	if rawData, err := json.Marshal(n); err == nil {
		snap.Raw = rawData
	}

	return snap
}

// normalizeFulfillments Shopify 发货记录归一化
func normalizeFulfillments(nodes []fulfillmentNode) []marketplace.FulfillmentRecord {
	records := make([]marketplace.FulfillmentRecord, 0, len(nodes))
	for _, f := range nodes {
		rec := marketplace.FulfillmentRecord{
			ExternalID: f.LegacyResourceID,
			Cancelled:  f.Status == "CANCELLED",
		}
		if len(f.TrackingInfo) > 0 {
			rec.TrackingNumber = f.TrackingInfo[0].Number
			rec.Carrier = f.TrackingInfo[0].Company
			rec.LabelURL = f.TrackingInfo[0].URL
		}
		if t, err := time.Parse(time.RFC3339, f.CreatedAt); err == nil {
			rec.NotifiedAt = &t
		}
		records = append(records, rec)
	}
	return records
}

// orderGID 拼出订单的 GraphQL 全局 ID
func orderGID(legacyID string) string {
	return "gid://shopify/Order/" + legacyID
}

// fulfillmentGID 拼出发货记录的 GraphQL 全局 ID
func fulfillmentGID(legacyID string) string {
	return "gid://shopify/Fulfillment/" + legacyID
}

// gidLegacyID 从 GraphQL 全局 ID 中取末段数字 ID
func gidLegacyID(gid string) string {
	if idx := strings.LastIndex(gid, "/"); idx >= 0 {
		return gid[idx+1:]
	}
	return gid
}
