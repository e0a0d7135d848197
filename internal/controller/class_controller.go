package controller

import (
	"classroom_backend/internal/service"
	"classroom_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ClassController struct {
	ClassService *service.ClassService
}

func NewClassController(classService *service.ClassService) *ClassController {
	return &ClassController{ClassService: classService}
}

// CreateClass godoc
// @Summary 创建班级
// @Tags 班级
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.ClassRequest true "班级信息"
// @Success 201 {object} util.Response{data=model.Class}
// @Failure 400 {object} util.Response
// @Router /api/classes [post]
func (c *ClassController) CreateClass(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	var req service.ClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	class, err := c.ClassService.Create(ctx.Request.Context(), req, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, class)
}

// ListClasses godoc
// @Summary 班级列表
// @Description 教师返回自己创建的班级，学生返回所在班级
// @Tags 班级
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Class}
// @Router /api/classes [get]
func (c *ClassController) ListClasses(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	list, err := c.ClassService.List(ctx.Request.Context(), caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

type MemberRequest struct {
	StudentID uint `json:"studentId" binding:"required"`
}

// AddMember godoc
// @Summary 添加班级学生
// @Tags 班级
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "班级ID"
// @Param body body MemberRequest true "学生"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/classes/{id}/members [post]
func (c *ClassController) AddMember(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	classID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req MemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ClassService.AddMember(ctx.Request.Context(), classID, req.StudentID, caller); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"classId": classID, "studentId": req.StudentID})
}

// RemoveMember godoc
// @Summary 移除班级学生
// @Tags 班级
// @Produce json
// @Security BearerAuth
// @Param id path int true "班级ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/classes/{id}/members/{studentId} [delete]
func (c *ClassController) RemoveMember(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	classID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	studentID, ok := uintParam(ctx, "studentId")
	if !ok {
		return
	}

	if err := c.ClassService.RemoveMember(ctx.Request.Context(), classID, studentID, caller); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListMembers godoc
// @Summary 班级学生名单
// @Tags 班级
// @Produce json
// @Security BearerAuth
// @Param id path int true "班级ID"
// @Success 200 {object} util.Response{data=[]model.ClassMember}
// @Router /api/classes/{id}/members [get]
func (c *ClassController) ListMembers(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	classID, ok := uintParam(ctx, "id")
	if !ok {
		return
	}

	members, err := c.ClassService.Members(ctx.Request.Context(), classID, caller)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, members)
}
