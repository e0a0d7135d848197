package controller

import (
	"classroom_backend/internal/service"
	"classroom_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	Lifecycle *service.LifecycleService
}

func NewAdminController(lifecycle *service.LifecycleService) *AdminController {
	return &AdminController{Lifecycle: lifecycle}
}

// @Summary 手动触发生命周期扫描
// @Description 立即执行一次 ASSIGNED/ACTIVE 状态推进，返回本次发生的状态变更数
// @Tags 系统
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/lifecycle/sweep [post]
func (c *AdminController) RunSweep(ctx *gin.Context) {
	n, err := c.Lifecycle.RunLifecycleSweep(ctx.Request.Context(), c.Lifecycle.Now())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"transitioned": n, "workers": c.Lifecycle.Workers()})
}
