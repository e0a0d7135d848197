package service

import (
	"classroom_backend/internal/grading"
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"classroom_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type AssessmentService struct {
	Store         AssessmentStore
	Classes       ClassRegistry
	Now           Clock
	RetryAttempts int
}

func NewAssessmentService(store AssessmentStore, classes ClassRegistry, now Clock, retryAttempts int) *AssessmentService {
	if now == nil {
		now = time.Now
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &AssessmentService{Store: store, Classes: classes, Now: now, RetryAttempts: retryAttempts}
}

type OptionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type KeywordRequest struct {
	Keyword string  `json:"keyword"`
	Weight  float64 `json:"weight"`
}

type RubricCriterionRequest struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

type QuestionRequest struct {
	Type           string                   `json:"type"`
	Text           string                   `json:"text"`
	MaxScore       float64                  `json:"maxScore"`
	CorrectAnswer  string                   `json:"correctAnswer"`
	Options        []OptionRequest          `json:"options"`
	Keywords       []KeywordRequest         `json:"keywords"`
	RubricCriteria []RubricCriterionRequest `json:"rubricCriteria"`
}

// AssessmentRequest 编排测评的请求体，题目逐一交由 grading.ValidateQuestions 校验
type AssessmentRequest struct {
	Title           string            `json:"title" validate:"required"`
	Description     string            `json:"description"`
	Type            string            `json:"type" validate:"required,oneof=QUIZ TEST EXAM SURVEY"`
	DurationMinutes int               `json:"durationMinutes" validate:"gt=0"`
	StartTime       *time.Time        `json:"startTime" validate:"required"`
	EndTime         *time.Time        `json:"endTime" validate:"required"`
	GradingMode     string            `json:"gradingMode" validate:"required,oneof=AUTOMATIC MANUAL"`
	Questions       []QuestionRequest `json:"questions" validate:"required,min=1"`
}

func (r *QuestionRequest) toModel() model.Question {
	q := model.Question{
		Type:          model.QuestionType(strings.TrimSpace(r.Type)),
		Text:          r.Text,
		MaxScore:      r.MaxScore,
		CorrectAnswer: r.CorrectAnswer,
	}
	for _, o := range r.Options {
		q.Options = append(q.Options, model.Option{Text: o.Text, IsCorrect: o.IsCorrect})
	}
	for _, k := range r.Keywords {
		q.Keywords = append(q.Keywords, model.Keyword{Keyword: k.Keyword, Weight: k.Weight})
	}
	for _, rc := range r.RubricCriteria {
		q.RubricCriteria = append(q.RubricCriteria, model.RubricCriterion{Name: rc.Name, Points: rc.Points})
	}
	return q
}

// assemble 在内存中完成全部校验并组装测评，不做任何持久化
func (s *AssessmentService) assemble(req AssessmentRequest) (*model.Assessment, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := util.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if !req.StartTime.Before(*req.EndTime) {
		return nil, util.NewValidationError("endTime", "start time must be before end time")
	}

	questions := make([]model.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = req.Questions[i].toModel()
	}
	if err := grading.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	return &model.Assessment{
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		Type:            model.AssessmentType(req.Type),
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		GradingMode:     model.GradingMode(req.GradingMode),
		Questions:       questions,
	}, nil
}

// Build 校验通过后以 DRAFT 状态原子地创建测评及其题目
func (s *AssessmentService) Build(ctx context.Context, req AssessmentRequest, caller util.Identity) (*model.Assessment, error) {
	if !caller.Role.IsEducator() {
		return nil, util.NewAuthorizationError(fmt.Sprintf("user %d with role %q cannot build assessments", caller.UserID, caller.Role))
	}

	a, err := s.assemble(req)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	a.Status = model.StatusDraft
	a.EducatorID = caller.UserID
	a.Version = 1
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.Store.Create(ctx, a); err != nil {
		return nil, err
	}

	logger.Log.Info("assessment built",
		zap.Uint("assessment_id", a.ID),
		zap.Uint("educator_id", caller.UserID),
		zap.Int("questions", len(a.Questions)))
	return a, nil
}

func (s *AssessmentService) owned(ctx context.Context, id uint, caller util.Identity) (*model.Assessment, error) {
	return loadOwned(ctx, s.Store, id, caller)
}

// loadOwned 读取测评并校验调用方是其所有者。不存在与无权访问返回相同的错误。
func loadOwned(ctx context.Context, store AssessmentStore, id uint, caller util.Identity) (*model.Assessment, error) {
	if !caller.Role.IsEducator() {
		return nil, util.NewAuthorizationError(fmt.Sprintf("user %d is not an educator", caller.UserID))
	}
	a, err := store.FindByID(ctx, id)
	if errors.Is(err, util.ErrNotFound) {
		return nil, util.NewAuthorizationError(fmt.Sprintf("assessment %d not found", id))
	}
	if err != nil {
		return nil, err
	}
	if a.EducatorID != caller.UserID && caller.Role != model.Admin {
		return nil, util.NewAuthorizationError(fmt.Sprintf("assessment %d is owned by %d, not %d", id, a.EducatorID, caller.UserID))
	}
	return a, nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Assign 将 DRAFT 测评分配给所有者名下的班级并进入 ASSIGNED。
// 班级集合整体替换；与扫描并发时按版本号重试。
func (s *AssessmentService) Assign(ctx context.Context, id uint, caller util.Identity, classIDs []uint) (*model.Assessment, error) {
	classIDs = dedupeIDs(classIDs)
	if len(classIDs) == 0 {
		return nil, util.NewValidationError("classIds", "at least one class is required")
	}

	for attempt := 1; attempt <= s.RetryAttempts; attempt++ {
		a, err := s.owned(ctx, id, caller)
		if err != nil {
			return nil, err
		}
		if a.Status != model.StatusDraft {
			return nil, util.NewStateError("assessment", string(a.Status), string(model.StatusDraft))
		}
		if err := s.checkClassOwnership(ctx, a.EducatorID, classIDs); err != nil {
			return nil, err
		}

		err = s.Store.Assign(ctx, a.ID, a.Version, classIDs)
		if errors.Is(err, util.ErrConflict) {
			logger.Log.Warn("assign conflicted, retrying", zap.Uint("assessment_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Log.Info("assessment assigned", zap.Uint("assessment_id", id), zap.Uints("class_ids", classIDs))
		return s.Store.FindByID(ctx, id)
	}
	return nil, util.ErrConflict
}

func (s *AssessmentService) checkClassOwnership(ctx context.Context, ownerID uint, classIDs []uint) error {
	classes, err := s.Classes.FindByIDs(ctx, classIDs)
	if err != nil {
		return err
	}
	byID := make(map[uint]model.Class, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
	}
	for _, id := range classIDs {
		c, ok := byID[id]
		if !ok {
			return util.NewAuthorizationError(fmt.Sprintf("class %d not found", id))
		}
		if c.EducatorID != ownerID {
			return util.NewAuthorizationError(fmt.Sprintf("class %d is owned by %d, not %d", id, c.EducatorID, ownerID))
		}
	}
	return nil
}

// Get 所有者可见完整测评；学生只能看到已开放且分配给其班级的测评，且不含答案
func (s *AssessmentService) Get(ctx context.Context, id uint, caller util.Identity) (*model.Assessment, error) {
	if caller.Role.IsEducator() {
		return s.owned(ctx, id, caller)
	}

	a, err := loadVisible(ctx, s.Store, s.Classes, id, caller.UserID)
	if err != nil {
		return nil, err
	}
	redact(a)
	return a, nil
}

// loadVisible 学生只能访问分配给其所在班级且已开放的测评
func loadVisible(ctx context.Context, store AssessmentStore, classes ClassRegistry, id, studentID uint) (*model.Assessment, error) {
	denied := util.NewAuthorizationError(fmt.Sprintf("assessment %d not visible to student %d", id, studentID))

	a, err := store.FindByID(ctx, id)
	if errors.Is(err, util.ErrNotFound) {
		return nil, denied
	}
	if err != nil {
		return nil, err
	}
	if a.Status != model.StatusActive && a.Status != model.StatusCompleted {
		return nil, denied
	}

	enrolled, err := classes.ClassIDsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !intersects(a.ClassIDs(), enrolled) {
		return nil, denied
	}
	return a, nil
}

func intersects(a, b []uint) bool {
	set := make(map[uint]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// redact 去掉学生不应看到的答案信息
func redact(a *model.Assessment) {
	for i := range a.Questions {
		q := &a.Questions[i]
		q.CorrectAnswer = ""
		q.Keywords = nil
		q.RubricCriteria = nil
		for j := range q.Options {
			q.Options[j].IsCorrect = false
		}
	}
}

// List 教师按所有者查询，学生按所在班级查询已开放的测评
func (s *AssessmentService) List(ctx context.Context, caller util.Identity) ([]model.Assessment, error) {
	if caller.Role.IsEducator() {
		return s.Store.FindByOwner(ctx, caller.UserID)
	}

	classIDs, err := s.Classes.ClassIDsForStudent(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if len(classIDs) == 0 {
		return []model.Assessment{}, nil
	}
	list, err := s.Store.FindByClasses(ctx, classIDs, model.StatusActive, model.StatusCompleted)
	if err != nil {
		return nil, err
	}
	for i := range list {
		redact(&list[i])
	}
	return list, nil
}

// UpdateDraft 重新校验并整体替换草稿的元数据与题目
func (s *AssessmentService) UpdateDraft(ctx context.Context, id uint, req AssessmentRequest, caller util.Identity) (*model.Assessment, error) {
	current, err := s.owned(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if current.Status != model.StatusDraft {
		return nil, util.NewStateError("assessment", string(current.Status), string(model.StatusDraft))
	}

	a, err := s.assemble(req)
	if err != nil {
		return nil, err
	}
	a.ID = current.ID
	a.EducatorID = current.EducatorID
	a.Status = model.StatusDraft
	a.CreatedAt = current.CreatedAt
	a.UpdatedAt = s.Now()
	for i := range a.Questions {
		a.Questions[i].AssessmentID = a.ID
	}

	if err := s.Store.ReplaceDraft(ctx, a, current.Version); err != nil {
		return nil, err
	}
	a.Version = current.Version + 1
	return a, nil
}

func (s *AssessmentService) DeleteDraft(ctx context.Context, id uint, caller util.Identity) error {
	a, err := s.owned(ctx, id, caller)
	if err != nil {
		return err
	}
	if a.Status != model.StatusDraft {
		return util.NewStateError("assessment", string(a.Status), string(model.StatusDraft))
	}
	return s.Store.DeleteDraft(ctx, a.ID, a.Version)
}

// Cancel 管理操作：任何非终态均可取消
func (s *AssessmentService) Cancel(ctx context.Context, id uint, caller util.Identity) (*model.Assessment, error) {
	a, err := s.owned(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, util.NewStateError("assessment", string(a.Status),
			string(model.StatusDraft), string(model.StatusAssigned), string(model.StatusActive))
	}
	if err := s.Store.Transition(ctx, a.ID, a.Status, a.Version, model.StatusCanceled); err != nil {
		return nil, err
	}

	logger.Log.Info("assessment canceled", zap.Uint("assessment_id", id), zap.Uint("by", caller.UserID))
	a.Status = model.StatusCanceled
	a.Version++
	return a, nil
}
