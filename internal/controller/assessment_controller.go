package controller

import (
	"classroom_backend/internal/service"
	"classroom_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service     *service.AssessmentService
	Submissions *service.SubmissionService
	Export      *service.ExportService
}

func NewAssessmentController(svc *service.AssessmentService, submissions *service.SubmissionService, export *service.ExportService) *AssessmentController {
	return &AssessmentController{Service: svc, Submissions: submissions, Export: export}
}

// @Summary 创建测评
// @Description 创建草稿状态的测评，题目整体校验，任一题目不合法则不落库
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AssessmentRequest true "测评信息"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Failure 400 {object} util.Response "校验失败"
// @Failure 403 {object} util.Response
// @Router /api/assessments [post]
func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.Build(ctx.Request.Context(), req, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary 测评列表
// @Description 教师返回自己创建的测评，学生返回所在班级已开放的测评
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Assessment}
// @Router /api/assessments [get]
func (c *AssessmentController) ListAssessments(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	list, err := c.Service.List(ctx.Request.Context(), caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 测评详情
// @Description 学生视角隐藏正确答案、关键词与评分细则
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Service.Get(ctx.Request.Context(), id, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 修改草稿测评
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param body body service.AssessmentRequest true "测评信息"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 409 {object} util.Response "非草稿状态"
// @Router /api/assessments/{id} [put]
func (c *AssessmentController) UpdateAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.UpdateDraft(ctx.Request.Context(), id, req, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 删除草稿测评
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id} [delete]
func (c *AssessmentController) DeleteAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.DeleteDraft(ctx.Request.Context(), id, caller); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type AssignRequest struct {
	ClassIDs []uint `json:"classIds"`
}

// @Summary 布置测评
// @Description 将草稿测评布置给一个或多个班级，状态变为 ASSIGNED
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param body body AssignRequest true "班级ID列表"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/assessments/{id}/assign [post]
func (c *AssessmentController) AssignAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req AssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.Assign(ctx.Request.Context(), id, caller, req.ClassIDs)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 取消测评
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 409 {object} util.Response
// @Router /api/assessments/{id}/cancel [post]
func (c *AssessmentController) CancelAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Service.Cancel(ctx.Request.Context(), id, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 测评提交列表
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=[]model.Submission}
// @Router /api/assessments/{id}/submissions [get]
func (c *AssessmentController) ListSubmissions(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	subs, err := c.Submissions.ListForAssessment(ctx.Request.Context(), id, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// @Summary 发布全部成绩
// @Description 将该测评下所有 GRADED 的提交发布给学生
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/publish [post]
func (c *AssessmentController) PublishAll(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	n, err := c.Submissions.PublishAll(ctx.Request.Context(), id, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"published": n})
}

// @Summary 导出成绩
// @Description 导出 CSV 成绩单到对象存储并返回下载地址
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/export [post]
func (c *AssessmentController) ExportResults(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	url, err := c.Export.ExportResults(ctx.Request.Context(), id, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
