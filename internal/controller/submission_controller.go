package controller

import (
	"classroom_backend/internal/service"
	"classroom_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	Service *service.SubmissionService
}

func NewSubmissionController(svc *service.SubmissionService) *SubmissionController {
	return &SubmissionController{Service: svc}
}

// @Summary 开始作答
// @Description 学生开始测评，重复调用返回同一份提交
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "测评未开放"
// @Router /api/assessments/{id}/start [post]
func (c *SubmissionController) StartSubmission(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	sub, err := c.Service.Start(ctx.Request.Context(), id, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 提交详情
// @Description 成绩发布前学生看不到分数
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	sub, err := c.Service.Get(ctx.Request.Context(), ctx.Param("id"), caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 保存答案
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Param body body service.SaveAnswersRequest true "答案"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "已提交或已超时"
// @Router /api/submissions/{id}/answers [put]
func (c *SubmissionController) SaveAnswers(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	var req service.SaveAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.SaveAnswers(ctx.Request.Context(), ctx.Param("id"), caller, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 交卷
// @Description 自动评分模式下交卷后立即评分
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/submissions/{id}/submit [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	sub, err := c.Service.Submit(ctx.Request.Context(), ctx.Param("id"), caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 评分
// @Description 对 SUBMITTED 状态的提交执行评分
// @Tags 评分
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response
// @Failure 422 {object} util.Response "测评与提交数据不一致"
// @Router /api/submissions/{id}/grade [post]
func (c *SubmissionController) Grade(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	sub, err := c.Service.Grade(ctx.Request.Context(), ctx.Param("id"), caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 人工改分
// @Tags 评分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Param answerId path int true "答案ID"
// @Param body body service.ScoreOverrideRequest true "分数或评分细则"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/submissions/{id}/answers/{answerId}/score [put]
func (c *SubmissionController) OverrideScore(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	answerID, ok := uintParam(ctx, "answerId")
	if !ok {
		return
	}
	var req service.ScoreOverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Service.OverrideScore(ctx.Request.Context(), ctx.Param("id"), answerID, caller, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 发布成绩
// @Tags 评分
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/submissions/{id}/publish [post]
func (c *SubmissionController) Publish(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	sub, err := c.Service.Publish(ctx.Request.Context(), ctx.Param("id"), caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
