package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/api/dto"
	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/pkg/apperr"
)

// ==================== WorkflowService 履约流程 ====================

// WorkflowService 履约流程服务
// 订单状态的唯一修改入口，所有转移先过转移表校验，
// 副作用（时间戳、锁定、复核原因）在这里集中处理
type WorkflowService struct {
	orderRepo repository.OrderRepository
	resolver  *StatusResolver
	logger    *zap.Logger
}

// NewWorkflowService 创建履约流程服务
func NewWorkflowService(orderRepo repository.OrderRepository, resolver *StatusResolver, logger *zap.Logger) *WorkflowService {
	return &WorkflowService{
		orderRepo: orderRepo,
		resolver:  resolver,
		logger:    logger,
	}
}

// ==================== 状态流转 ====================

// Transition 执行一次状态转移
// reason 仅在转入 needs_review 时必填，其余转移忽略
func (s *WorkflowService) Transition(ctx context.Context, orderID int64, to model.OrderStatus, reason string) (*model.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !to.IsValid() {
		return nil, fmt.Errorf("未知的目标状态: %s", to)
	}
	if !model.CanTransition(order.Status, to) {
		return nil, &apperr.ErrInvalidStateTransition{From: string(order.Status), To: string(to)}
	}
	if to == model.StatusNeedsReview && reason == "" {
		return nil, errors.New("转入人工复核必须填写原因")
	}

	fields := map[string]interface{}{"status": to}
	s.applySideEffects(order, to, reason, fields)

	if err := s.orderRepo.UpdateFields(ctx, order.ID, fields); err != nil {
		return nil, fmt.Errorf("更新订单状态失败: %w", err)
	}

	s.logger.Info("订单状态流转",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(to)))

	return s.orderRepo.GetByIDWithItems(ctx, order.ID)
}

// applySideEffects 转移附带的字段变更
func (s *WorkflowService) applySideEffects(order *model.Order, to model.OrderStatus, reason string, fields map[string]interface{}) {
	now := time.Now()

	switch to {
	case model.StatusPendingFulfillment:
		// 进入生产即锁定设计文件
		if order.ProductionStartedAt == nil {
			fields["production_started_at"] = &now
		}
	case model.StatusReadyForDesign:
		// 改稿回退：解除生产锁定，设计重新可改
		if order.ProductionStartedAt != nil {
			fields["production_started_at"] = gorm.Expr("NULL")
		}
	case model.StatusLoadedForShipment:
		fields["loaded_at"] = &now
	case model.StatusDelivered:
		fields["delivered_at"] = &now
	case model.StatusNeedsReview:
		fields["review_reason"] = reason
	}

	// 离开复核节点时清掉原因，避免旧原因误导下一次复核
	if order.Status == model.StatusNeedsReview && to != model.StatusNeedsReview {
		fields["review_reason"] = ""
	}
}

// FlagForReview 转入人工复核
func (s *WorkflowService) FlagForReview(ctx context.Context, orderID int64, reason string) (*model.Order, error) {
	return s.Transition(ctx, orderID, model.StatusNeedsReview, reason)
}

// RequestRevision 改稿回退
// 仅设计完成 / 生产中可回退到可设计状态，生产锁定一并解除
func (s *WorkflowService) RequestRevision(ctx context.Context, orderID int64) (*model.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.StatusDesignComplete && order.Status != model.StatusPendingFulfillment {
		return nil, &apperr.ErrInvalidStateTransition{From: string(order.Status), To: string(model.StatusReadyForDesign)}
	}
	return s.Transition(ctx, orderID, model.StatusReadyForDesign, "")
}

// ==================== 批量流转 ====================

// BatchTransition 批量状态流转，逐单执行互不影响
func (s *WorkflowService) BatchTransition(ctx context.Context, req *dto.BatchTransitionRequest) *dto.BatchOperationResponse {
	resp := &dto.BatchOperationResponse{}
	to := model.OrderStatus(req.To)

	for _, id := range req.OrderIDs {
		if _, err := s.Transition(ctx, id, to, req.Reason); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("订单 %d: %v", id, err))
			continue
		}
		resp.Success++
	}
	return resp
}

// ==================== 设计稿 ====================

// AttachDesign 给订单项挂设计稿
// 生产锁定后拒绝；全部订单项齐稿且订单处于可设计状态时自动推进到设计完成
func (s *WorkflowService) AttachDesign(ctx context.Context, orderID int64, req *dto.AttachDesignRequest) (*model.Order, error) {
	order, err := s.orderRepo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, s.wrapNotFound(orderID, err)
	}
	if order.ProductionLocked() {
		return nil, &apperr.ErrProductionLocked{OrderID: order.ID}
	}

	var target *model.OrderItem
	for i := range order.Items {
		if order.Items[i].ID == req.ItemID {
			target = &order.Items[i]
			break
		}
	}
	if target == nil {
		return nil, &apperr.ErrNotFound{Resource: "订单项", ID: strconv.FormatInt(req.ItemID, 10)}
	}

	now := time.Now()
	if err := s.orderRepo.UpdateItemFields(ctx, target.ID, map[string]interface{}{
		"design_file_url":    req.FileURL,
		"design_uploaded_at": &now,
	}); err != nil {
		return nil, fmt.Errorf("更新设计稿失败: %w", err)
	}

	// 重新读取判断是否齐稿
	order, err = s.orderRepo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == model.StatusReadyForDesign && order.AllItemsDesigned() {
		return s.Transition(ctx, order.ID, model.StatusDesignComplete, "")
	}
	return order, nil
}

// ==================== 备注 ====================

// UpdateNotes 更新内部备注
func (s *WorkflowService) UpdateNotes(ctx context.Context, orderID int64, notes string) error {
	if _, err := s.getOrder(ctx, orderID); err != nil {
		return err
	}
	return s.orderRepo.UpdateFields(ctx, orderID, map[string]interface{}{"internal_notes": notes})
}

// ==================== 批量重判 ====================

// PromoteEligible 重新解析待补充订单的初始状态
// 运营补完商品配置后跑一次，符合条件的订单自动放行到可设计
func (s *WorkflowService) PromoteEligible(ctx context.Context, limit int) (*dto.BatchOperationResponse, error) {
	if limit <= 0 {
		limit = 200
	}
	orders, err := s.orderRepo.ListByStatus(ctx, model.StatusPendingEnrichment, limit)
	if err != nil {
		return nil, fmt.Errorf("获取待补充订单失败: %w", err)
	}

	resp := &dto.BatchOperationResponse{}
	for i := range orders {
		order := &orders[i]

		items, err := s.orderRepo.GetItemsByOrderID(ctx, order.ID)
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("订单 %d: %v", order.ID, err))
			continue
		}
		var variations map[string]string
		if len(items) > 0 && items[0].Variations != nil {
			variations = make(map[string]string, len(items[0].Variations))
			for k, v := range items[0].Variations {
				if sv, ok := v.(string); ok {
					variations[k] = sv
				}
			}
		}

		resolved := s.resolver.Resolve(ctx, order.ProductSKU, variations)
		if resolved == model.StatusPendingEnrichment {
			continue
		}
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, resolved); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("订单 %d: %v", order.ID, err))
			continue
		}
		resp.Success++
	}
	return resp, nil
}

// ==================== 内部辅助 ====================

func (s *WorkflowService) getOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.wrapNotFound(orderID, err)
	}
	return order, nil
}

func (s *WorkflowService) wrapNotFound(orderID int64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &apperr.ErrNotFound{Resource: "订单", ID: strconv.FormatInt(orderID, 10)}
	}
	return err
}
