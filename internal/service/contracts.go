package service

import (
	"classroom_backend/internal/model"
	"context"
	"time"
)

// Clock 注入当前时间，便于测试
type Clock func() time.Time

// AssessmentStore 测评持久化。所有状态变更都带上期望的状态与版本号，
// 条件不满足时返回 util.ErrConflict。
type AssessmentStore interface {
	Create(ctx context.Context, a *model.Assessment) error
	FindByID(ctx context.Context, id uint) (*model.Assessment, error)
	FindByOwner(ctx context.Context, ownerID uint) ([]model.Assessment, error)
	FindByClasses(ctx context.Context, classIDs []uint, statuses ...model.AssessmentStatus) ([]model.Assessment, error)
	FindByStatuses(ctx context.Context, statuses ...model.AssessmentStatus) ([]model.Assessment, error)
	Assign(ctx context.Context, id uint, version int, classIDs []uint) error
	Transition(ctx context.Context, id uint, from model.AssessmentStatus, version int, to model.AssessmentStatus) error
	ReplaceDraft(ctx context.Context, a *model.Assessment, version int) error
	DeleteDraft(ctx context.Context, id uint, version int) error
}

// ClassRegistry 班级归属与选课关系
type ClassRegistry interface {
	FindByIDs(ctx context.Context, ids []uint) ([]model.Class, error)
	ClassIDsForStudent(ctx context.Context, studentID uint) ([]uint, error)
}

// SubmissionStore 提交持久化。Update 以 s.ID、s.Version 和 from 状态为条件，
// 同一事务内写入 fields 与 answers。
type SubmissionStore interface {
	Create(ctx context.Context, s *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	FindByAssessmentAndStudent(ctx context.Context, assessmentID, studentID uint) (*model.Submission, error)
	FindByAssessment(ctx context.Context, assessmentID uint) ([]model.Submission, error)
	Update(ctx context.Context, s *model.Submission, from model.SubmissionStatus, fields map[string]interface{}, answers []model.SubmissionAnswer) error
}

// Locker 分布式锁，多实例部署时保证每个周期只有一个实例执行扫描
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
