package net

import (
	"context"
	"io"
	"net/http"
)

// BuildEtsyRequest 通用 Etsy 请求构建器
// 职责：统一封装鉴权头 (x-api-key, Authorization) 和标准头 (Accept, Content-Type)
// 注意：如果 Content-Type 不是 JSON，调用方获取 req 后可手动覆盖 Header
func BuildEtsyRequest(ctx context.Context, method, url string, body io.Reader, apiKey, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return req, nil
}

// BuildShopifyRequest 通用 Shopify GraphQL 请求构建器
// 鉴权使用 X-Shopify-Access-Token 头
func BuildShopifyRequest(ctx context.Context, url string, body io.Reader, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	return req, nil
}
