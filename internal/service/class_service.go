package service

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"
)

// ClassStore 班级的完整持久化接口，ClassRegistry 是其只读子集
type ClassStore interface {
	ClassRegistry
	Create(ctx context.Context, c *model.Class) error
	FindByID(ctx context.Context, id uint) (*model.Class, error)
	FindByOwner(ctx context.Context, ownerID uint) ([]model.Class, error)
	FindForStudent(ctx context.Context, studentID uint) ([]model.Class, error)
	AddMember(ctx context.Context, classID, studentID uint) error
	RemoveMember(ctx context.Context, classID, studentID uint) error
	Members(ctx context.Context, classID uint) ([]model.ClassMember, error)
}

// UserLookup 用于校验选课对象是学生
type UserLookup interface {
	FindByID(id uint) (*model.User, error)
}

type ClassService struct {
	Store ClassStore
	Users UserLookup
}

func NewClassService(store ClassStore, users UserLookup) *ClassService {
	return &ClassService{Store: store, Users: users}
}

type ClassRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
}

func (s *ClassService) Create(ctx context.Context, req ClassRequest, caller util.Identity) (*model.Class, error) {
	if !caller.Role.IsEducator() {
		return nil, util.NewAuthorizationError(fmt.Sprintf("user %d cannot create classes", caller.UserID))
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := util.ValidateStruct(&req); err != nil {
		return nil, err
	}

	c := &model.Class{Name: req.Name, Description: req.Description, EducatorID: caller.UserID}
	if err := s.Store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List 教师返回自己的班级，学生返回所在班级
func (s *ClassService) List(ctx context.Context, caller util.Identity) ([]model.Class, error) {
	if caller.Role.IsEducator() {
		return s.Store.FindByOwner(ctx, caller.UserID)
	}
	return s.Store.FindForStudent(ctx, caller.UserID)
}

func (s *ClassService) owned(ctx context.Context, classID uint, caller util.Identity) (*model.Class, error) {
	if !caller.Role.IsEducator() {
		return nil, util.NewAuthorizationError(fmt.Sprintf("user %d is not an educator", caller.UserID))
	}
	c, err := s.Store.FindByID(ctx, classID)
	if errors.Is(err, util.ErrNotFound) {
		return nil, util.NewAuthorizationError(fmt.Sprintf("class %d not found", classID))
	}
	if err != nil {
		return nil, err
	}
	if c.EducatorID != caller.UserID && caller.Role != model.Admin {
		return nil, util.NewAuthorizationError(fmt.Sprintf("class %d is owned by %d", classID, c.EducatorID))
	}
	return c, nil
}

func (s *ClassService) AddMember(ctx context.Context, classID, studentID uint, caller util.Identity) error {
	c, err := s.owned(ctx, classID, caller)
	if err != nil {
		return err
	}
	u, err := s.Users.FindByID(studentID)
	if err != nil {
		return util.NewValidationError("studentId", fmt.Sprintf("user %d does not exist", studentID))
	}
	if u.Role != model.Student {
		return util.NewValidationError("studentId", fmt.Sprintf("user %d is not a student", studentID))
	}
	return s.Store.AddMember(ctx, c.ID, studentID)
}

func (s *ClassService) RemoveMember(ctx context.Context, classID, studentID uint, caller util.Identity) error {
	c, err := s.owned(ctx, classID, caller)
	if err != nil {
		return err
	}
	return s.Store.RemoveMember(ctx, c.ID, studentID)
}

func (s *ClassService) Members(ctx context.Context, classID uint, caller util.Identity) ([]model.ClassMember, error) {
	c, err := s.owned(ctx, classID, caller)
	if err != nil {
		return nil, err
	}
	return s.Store.Members(ctx, c.ID)
}
