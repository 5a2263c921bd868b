package controller

import (
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type SubscriptionController struct {
	SubscriptionService *service.SubscriptionService
}

func NewSubscriptionController(subscriptionService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{SubscriptionService: subscriptionService}
}

type updateTierRequest struct {
	Tier      model.SubscriptionTier `json:"tier" binding:"required"`
	ExpiresAt *time.Time             `json:"expiresAt"`
}

// @Summary 更新订阅等级
// @Description 计费系统同步用户订阅，立即生效
// @Tags 订阅
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Param request body updateTierRequest true "订阅等级"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/admin/subscriptions/{userId} [put]
func (c *SubscriptionController) UpdateTier(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 32)
	if err != nil || userID == 0 {
		util.RespondError(ctx, util.NewValidationError("userId", "invalid user id"))
		return
	}

	var req updateTierRequest
	if !bindJSON(ctx, &req) {
		return
	}

	sub, err := c.SubscriptionService.UpdateTier(ctx.Request.Context(), uint(userID), req.Tier, req.ExpiresAt)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
