package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/api/dto"
	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/internal/service"
	"fulfill_dev_v1_202608/pkg/apperr"
)

// OrderController 订单控制器
type OrderController struct {
	orderRepo   repository.OrderRepository
	workflowSvc *service.WorkflowService
	enrichSvc   *service.EnrichmentService
}

// NewOrderController 创建订单控制器
func NewOrderController(
	orderRepo repository.OrderRepository,
	workflowSvc *service.WorkflowService,
	enrichSvc *service.EnrichmentService,
) *OrderController {
	return &OrderController{
		orderRepo:   orderRepo,
		workflowSvc: workflowSvc,
		enrichSvc:   enrichSvc,
	}
}

// ==================== 订单列表与详情 ====================

// List 订单列表
// GET /api/v1/orders
func (c *OrderController) List(ctx *gin.Context) {
	var req dto.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := repository.OrderFilter{
		StoreID:  req.StoreID,
		Platform: model.Platform(req.Platform),
		Status:   model.OrderStatus(req.Status),
		Keyword:  req.Keyword,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	if req.StartDate != "" {
		if t, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			filter.StartDate = &t
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			filter.EndDate = &t
		}
	}

	orders, total, err := c.orderRepo.List(ctx, filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	list := make([]dto.OrderListItem, len(orders))
	for i, o := range orders {
		list[i] = dto.OrderListItem{
			ID:              o.ID,
			Platform:        string(o.Platform),
			ExternalOrderID: o.ExternalOrderID,
			OrderNumber:     o.OrderNumber,
			StoreID:         o.StoreID,
			CustomerName:    o.CustomerName,
			ProductSKU:      o.ProductSKU,
			Quantity:        o.Quantity,
			Status:          string(o.Status),
			TrackingNumber:  o.TrackingNumber,
			ShippingCountry: o.GetShippingAddressField("country_code"),
			CreatedAt:       o.CreatedAt,
			SyncedAt:        o.SyncedAt,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": dto.ListOrdersResponse{
			Total: total,
			List:  list,
		},
	})
}

// GetByID 订单详情
// GET /api/v1/orders/:id
func (c *OrderController) GetByID(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	order, err := c.orderRepo.GetByIDWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "订单不存在"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": buildOrderDetail(order)})
}

// Stats 各状态订单数量
// GET /api/v1/orders/stats
func (c *OrderController) Stats(ctx *gin.Context) {
	stats, err := c.orderRepo.CountByStatus(ctx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": stats})
}

// ==================== 状态流转 ====================

// Transition 状态流转
// POST /api/v1/orders/:id/transition
func (c *OrderController) Transition(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	var req dto.TransitionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := c.workflowSvc.Transition(ctx, id, model.OrderStatus(req.To), req.Reason)
	if err != nil {
		respondWorkflowError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": buildOrderDetail(order)})
}

// RequestRevision 改稿回退
// POST /api/v1/orders/:id/revision
func (c *OrderController) RequestRevision(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	order, err := c.workflowSvc.RequestRevision(ctx, id)
	if err != nil {
		respondWorkflowError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": buildOrderDetail(order)})
}

// BatchTransition 批量状态流转
// POST /api/v1/orders/batch/transition
func (c *OrderController) BatchTransition(ctx *gin.Context) {
	var req dto.BatchTransitionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := c.workflowSvc.BatchTransition(ctx, &req)
	ctx.JSON(http.StatusOK, gin.H{"data": resp})
}

// PromoteEligible 重判待补充订单
// POST /api/v1/orders/promote
func (c *OrderController) PromoteEligible(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "200"))

	resp, err := c.workflowSvc.PromoteEligible(ctx, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": resp})
}

// ==================== 设计稿与备注 ====================

// AttachDesign 上传设计稿
// POST /api/v1/orders/:id/design
func (c *OrderController) AttachDesign(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	var req dto.AttachDesignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := c.workflowSvc.AttachDesign(ctx, id, &req)
	if err != nil {
		respondWorkflowError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": buildOrderDetail(order)})
}

// UpdateNotes 更新内部备注
// PUT /api/v1/orders/:id/notes
func (c *OrderController) UpdateNotes(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	var req dto.UpdateNotesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.workflowSvc.UpdateNotes(ctx, id, req.Notes); err != nil {
		respondWorkflowError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "备注已更新"})
}

// Enrich 补充定制信息
// POST /api/v1/orders/:id/enrich
func (c *OrderController) Enrich(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	var req dto.EnrichOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := c.enrichSvc.Apply(ctx, id, &service.Enrichment{
		ProductSKU:      req.ProductSKU,
		CustomerEmail:   req.CustomerEmail,
		Personalization: req.Personalization,
	})
	if err != nil {
		respondWorkflowError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": buildOrderDetail(order)})
}

// ==================== 视图转换 ====================

// buildOrderDetail 组装订单详情
func buildOrderDetail(o *model.Order) dto.OrderDetailResponse {
	vo := &dto.OrderVO{
		ID:                  o.ID,
		Platform:            string(o.Platform),
		ExternalOrderID:     o.ExternalOrderID,
		OrderNumber:         o.OrderNumber,
		StoreID:             o.StoreID,
		CustomerName:        o.CustomerName,
		CustomerEmail:       o.CustomerEmail,
		ProductSKU:          o.ProductSKU,
		Quantity:            o.Quantity,
		Status:              string(o.Status),
		ReviewReason:        o.ReviewReason,
		TrackingNumber:      o.TrackingNumber,
		Carrier:             o.Carrier,
		LabelURL:            o.LabelURL,
		TrackingPushed:      o.TrackingPushed,
		InternalNotes:       o.InternalNotes,
		ProductionStartedAt: o.ProductionStartedAt,
		DeliveredAt:         o.DeliveredAt,
		ExternalCreatedAt:   o.ExternalCreatedAt,
		SyncedAt:            o.SyncedAt,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}

	items := make([]dto.OrderItemVO, len(o.Items))
	locked := o.ProductionLocked()
	for i, item := range o.Items {
		variations := make(map[string]string, len(item.Variations))
		for k, v := range item.Variations {
			if sv, ok := v.(string); ok {
				variations[k] = sv
			}
		}
		items[i] = dto.OrderItemVO{
			ID:             item.ID,
			ExternalItemID: item.ExternalItemID,
			Title:          item.Title,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			Variations:     variations,
			DesignFileURL:  item.DesignFileURL,
			DesignLocked:   locked,
		}
	}

	var addr *dto.ShippingAddressVO
	if o.ShippingAddress != nil {
		addr = &dto.ShippingAddressVO{
			Name:        o.GetShippingAddressField("name"),
			FirstLine:   o.GetShippingAddressField("first_line"),
			SecondLine:  o.GetShippingAddressField("second_line"),
			City:        o.GetShippingAddressField("city"),
			State:       o.GetShippingAddressField("state"),
			PostalCode:  o.GetShippingAddressField("postal_code"),
			CountryCode: o.GetShippingAddressField("country_code"),
			Phone:       o.GetShippingAddressField("phone"),
		}
	}

	return dto.OrderDetailResponse{
		Order:           vo,
		Items:           items,
		ShippingAddress: addr,
	}
}

// ==================== 辅助函数 ====================

// parseID 解析路径中的 ID 参数，非法时直接响应 400 并返回 0
func parseID(ctx *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的 " + name + " 参数"})
		return 0
	}
	return id
}

// respondWorkflowError 按错误类别映射 HTTP 状态码
func respondWorkflowError(ctx *gin.Context, err error) {
	var notFound *apperr.ErrNotFound
	var invalidTransition *apperr.ErrInvalidStateTransition
	var locked *apperr.ErrProductionLocked

	switch {
	case errors.As(err, &notFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalidTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &locked):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
