package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/replyon/replyon-backend/internal/common"
	"github.com/replyon/replyon-backend/internal/scheduler"
	"github.com/replyon/replyon-backend/internal/service"
)

// AutomationHandler handles automation trigger and status HTTP requests
type AutomationHandler struct {
	automation *scheduler.Automation
	collector  service.CollectorService
	status     service.StatusService
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(automation *scheduler.Automation, collector service.CollectorService,
	status service.StatusService) *AutomationHandler {
	return &AutomationHandler{automation: automation, collector: collector, status: status}
}

// ListTasks handles GET /automation/tasks
func (h *AutomationHandler) ListTasks(c *gin.Context) {
	common.SuccessResponse(c, h.automation.Tasks(), nil)
}

// TriggerCollect handles POST /automation/collect
func (h *AutomationHandler) TriggerCollect(c *gin.Context) {
	if err := h.automation.TriggerCollect(); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	c.JSON(http.StatusAccepted, common.APIResponse{Data: gin.H{"task": scheduler.TaskCollect}})
}

// TriggerGenerate handles POST /automation/generate
func (h *AutomationHandler) TriggerGenerate(c *gin.Context) {
	if err := h.automation.TriggerGenerate(); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	c.JSON(http.StatusAccepted, common.APIResponse{Data: gin.H{"task": scheduler.TaskGenerate}})
}

// TriggerPost handles POST /automation/post
func (h *AutomationHandler) TriggerPost(c *gin.Context) {
	if err := h.automation.TriggerPost(); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	c.JSON(http.StatusAccepted, common.APIResponse{Data: gin.H{"task": scheduler.TaskPost}})
}

// TriggerBootstrap handles POST /automation/bootstrap
// 수집→생성→등록 워밍업 사이클을 수동으로 다시 실행한다
func (h *AutomationHandler) TriggerBootstrap(c *gin.Context) {
	if err := h.automation.TriggerBootstrap(context.Background()); err != nil {
		if errors.Is(err, scheduler.ErrWarmUpRunning) {
			common.ErrorResponse(c, http.StatusConflict, "워밍업 사이클이 이미 진행 중입니다", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	c.JSON(http.StatusAccepted, common.APIResponse{Data: gin.H{"task": "bootstrap"}})
}

// CollectStore handles POST /stores/:store_code/collect
// 매장 한 곳만 동기 수집한다 (신규 매장 온보딩 확인용)
func (h *AutomationHandler) CollectStore(c *gin.Context) {
	storeCode := c.Param("store_code")
	if storeCode == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "매장 코드가 필요합니다", nil)
		return
	}

	summary, err := h.collector.CollectStore(c.Request.Context(), storeCode)
	if err != nil {
		if errors.Is(err, common.ErrStoreNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "매장을 찾을 수 없습니다", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	common.SuccessResponse(c, summary, &common.Meta{StoreCode: storeCode})
}

// GetReviewStatus handles GET /reviews/:review_id/status
func (h *AutomationHandler) GetReviewStatus(c *gin.Context) {
	reviewID := c.Param("review_id")
	view, err := h.status.GetReviewStatus(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, common.ErrReviewNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "리뷰를 찾을 수 없습니다", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	common.SuccessResponse(c, view, nil)
}

// GetGenerationHistory handles GET /reviews/:review_id/history
// 답글 생성 시도 이력을 최신순으로 반환한다 (재생성/디버깅용)
func (h *AutomationHandler) GetGenerationHistory(c *gin.Context) {
	reviewID := c.Param("review_id")
	entries, err := h.status.GetGenerationHistory(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, common.ErrReviewNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "리뷰를 찾을 수 없습니다", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	common.SuccessResponse(c, entries, nil)
}

// GetPendingCount handles GET /stores/:store_code/pending-count
func (h *AutomationHandler) GetPendingCount(c *gin.Context) {
	storeCode := c.Param("store_code")
	count, err := h.status.GetPendingCount(c.Request.Context(), storeCode)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}
	common.SuccessResponse(c, gin.H{"pending_count": count}, &common.Meta{StoreCode: storeCode})
}
