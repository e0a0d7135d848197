package service

import (
	"classroom_backend/internal/grading"
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"classroom_backend/pkg/logger"
	"classroom_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type SubmissionService struct {
	Assessments AssessmentStore
	Submissions SubmissionStore
	Classes     ClassRegistry
	Engine      *grading.Engine
	Now         Clock
}

func NewSubmissionService(assessments AssessmentStore, submissions SubmissionStore, classes ClassRegistry, engine *grading.Engine, now Clock) *SubmissionService {
	if now == nil {
		now = time.Now
	}
	if engine == nil {
		engine = grading.NewEngine()
	}
	return &SubmissionService{
		Assessments: assessments,
		Submissions: submissions,
		Classes:     classes,
		Engine:      engine,
		Now:         now,
	}
}

type AnswerInput struct {
	QuestionID uint   `json:"questionId" validate:"required"`
	Answer     string `json:"answer"`
}

type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// ScoreOverrideRequest manualScore 与 rubricAwards 二选一
type ScoreOverrideRequest struct {
	ManualScore  *float64              `json:"manualScore"`
	RubricAwards []grading.RubricAward `json:"rubricAwards"`
	Feedback     string                `json:"feedback"`
}

// Start 学生开始作答。同一学生对同一测评只有一份提交，重复调用返回已有的提交。
func (s *SubmissionService) Start(ctx context.Context, assessmentID uint, caller util.Identity) (*model.Submission, error) {
	if caller.Role != model.Student {
		return nil, util.NewAuthorizationError(fmt.Sprintf("user %d with role %q cannot take assessments", caller.UserID, caller.Role))
	}

	a, err := loadVisible(ctx, s.Assessments, s.Classes, assessmentID, caller.UserID)
	if err != nil {
		return nil, err
	}

	existing, err := s.Submissions.FindByAssessmentAndStudent(ctx, a.ID, caller.UserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	if a.Status != model.StatusActive {
		return nil, util.NewStateError("assessment", string(a.Status), string(model.StatusActive))
	}

	sub := &model.Submission{
		AssessmentID: a.ID,
		StudentID:    caller.UserID,
		Status:       model.SubmissionInProgress,
		Version:      1,
		StartedAt:    s.Now(),
	}
	for _, q := range a.Questions {
		sub.Answers = append(sub.Answers, model.SubmissionAnswer{QuestionID: q.ID, Position: q.Position})
	}

	err = s.Submissions.Create(ctx, sub)
	if errors.Is(err, util.ErrConflict) {
		// 并发开始：以先写入的为准
		return s.Submissions.FindByAssessmentAndStudent(ctx, a.ID, caller.UserID)
	}
	if err != nil {
		return nil, err
	}

	logger.Submission(sub.ID, a.ID, caller.UserID).Info("submission started")
	return sub, nil
}

// ownSubmission 学生只能访问自己的提交
func (s *SubmissionService) ownSubmission(ctx context.Context, id string, caller util.Identity) (*model.Submission, error) {
	sub, err := s.Submissions.FindByID(ctx, id)
	if errors.Is(err, util.ErrNotFound) {
		return nil, util.NewAuthorizationError(fmt.Sprintf("submission %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	if sub.StudentID != caller.UserID {
		return nil, util.NewAuthorizationError(fmt.Sprintf("submission %s belongs to %d, not %d", id, sub.StudentID, caller.UserID))
	}
	return sub, nil
}

// reviewable 教师只能操作自己测评下的提交
func (s *SubmissionService) reviewable(ctx context.Context, id string, caller util.Identity) (*model.Submission, *model.Assessment, error) {
	if !caller.Role.IsEducator() {
		return nil, nil, util.NewAuthorizationError(fmt.Sprintf("user %d is not an educator", caller.UserID))
	}
	sub, err := s.Submissions.FindByID(ctx, id)
	if errors.Is(err, util.ErrNotFound) {
		return nil, nil, util.NewAuthorizationError(fmt.Sprintf("submission %s not found", id))
	}
	if err != nil {
		return nil, nil, err
	}
	a, err := loadOwned(ctx, s.Assessments, sub.AssessmentID, caller)
	if err != nil {
		return nil, nil, err
	}
	return sub, a, nil
}

func deadline(a *model.Assessment, sub *model.Submission) time.Time {
	d := sub.StartedAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
	if a.EndTime.Before(d) {
		return a.EndTime
	}
	return d
}

// SaveAnswers 作答期间保存答案，超过时限后不再允许修改
func (s *SubmissionService) SaveAnswers(ctx context.Context, id string, caller util.Identity, req SaveAnswersRequest) (*model.Submission, error) {
	if err := util.ValidateStruct(&req); err != nil {
		return nil, err
	}
	sub, err := s.ownSubmission(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.NewStateError("submission", string(sub.Status), string(model.SubmissionInProgress))
	}

	a, err := s.Assessments.FindByID(ctx, sub.AssessmentID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if a.Status == model.StatusCanceled {
		return nil, util.NewStateError("assessment", string(a.Status), string(model.StatusActive))
	}
	if !now.Before(deadline(a, sub)) {
		return nil, util.NewStateError("submission", "EXPIRED", string(model.SubmissionInProgress))
	}

	index := make(map[uint]int, len(sub.Answers))
	for i, ans := range sub.Answers {
		index[ans.QuestionID] = i
	}

	answers := make([]model.SubmissionAnswer, len(sub.Answers))
	copy(answers, sub.Answers)
	changed := make([]model.SubmissionAnswer, 0, len(req.Answers))
	for _, in := range req.Answers {
		if _, ok := a.QuestionByID(in.QuestionID); !ok {
			return nil, util.NewConsistencyError(fmt.Sprintf("question %d is not part of assessment %d", in.QuestionID, a.ID), nil)
		}
		i, ok := index[in.QuestionID]
		if !ok {
			return nil, util.NewConsistencyError(fmt.Sprintf("submission %s has no answer slot for question %d", sub.ID, in.QuestionID), nil)
		}
		answers[i].Answer = in.Answer
		changed = append(changed, answers[i])
	}

	if err := s.Submissions.Update(ctx, sub, model.SubmissionInProgress, map[string]interface{}{"updated_at": now}, changed); err != nil {
		return nil, err
	}
	sub.Answers = answers
	sub.Version++
	sub.UpdatedAt = now
	return sub, nil
}

// Submit 交卷。自动评分模式下立即评分；评分失败不影响交卷本身。
func (s *SubmissionService) Submit(ctx context.Context, id string, caller util.Identity) (*model.Submission, error) {
	sub, err := s.ownSubmission(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionInProgress {
		return nil, util.NewStateError("submission", string(sub.Status), string(model.SubmissionInProgress))
	}

	a, err := s.Assessments.FindByID(ctx, sub.AssessmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.StatusActive && a.Status != model.StatusCompleted {
		return nil, util.NewStateError("assessment", string(a.Status), string(model.StatusActive), string(model.StatusCompleted))
	}

	now := s.Now()
	fields := map[string]interface{}{
		"status":       model.SubmissionSubmitted,
		"submitted_at": now,
	}
	if err := s.Submissions.Update(ctx, sub, model.SubmissionInProgress, fields, nil); err != nil {
		return nil, err
	}
	sub.Status = model.SubmissionSubmitted
	sub.SubmittedAt = &now
	sub.Version++

	if a.GradingMode != model.GradingAutomatic {
		return sub, nil
	}

	graded, err := s.GradeSubmission(ctx, sub, a)
	if err != nil {
		logger.Submission(sub.ID, a.ID, sub.StudentID).Error("automatic grading failed, submission left ungraded", zap.Error(err))
		return sub, nil
	}
	return graded, nil
}

// Grade 教师对已交卷的提交手动触发评分
func (s *SubmissionService) Grade(ctx context.Context, id string, caller util.Identity) (*model.Submission, error) {
	sub, a, err := s.reviewable(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return s.GradeSubmission(ctx, sub, a)
}

// GradeSubmission 要求提交处于 SUBMITTED。逐题计分、求和并进入 GRADED；
// 任一作答无法解析时不写入任何分数。
func (s *SubmissionService) GradeSubmission(ctx context.Context, sub *model.Submission, a *model.Assessment) (*model.Submission, error) {
	if sub.Status != model.SubmissionSubmitted {
		return nil, util.NewStateError("submission", string(sub.Status), string(model.SubmissionSubmitted))
	}

	outcome, err := s.Engine.Grade(a, sub)
	if err != nil {
		monitoring.GradingResults.WithLabelValues("consistency_error").Inc()
		logger.Submission(sub.ID, a.ID, sub.StudentID).Error("grading aborted", zap.Error(err))
		return nil, err
	}

	answers := make([]model.SubmissionAnswer, len(sub.Answers))
	copy(answers, sub.Answers)
	for i, sc := range outcome.Answers {
		answers[i].Score = sc.Score
		answers[i].IsAutoGraded = sc.AutoGraded
	}

	now := s.Now()
	total := outcome.Total
	fields := map[string]interface{}{
		"status":      model.SubmissionGraded,
		"total_score": total,
		"graded_at":   now,
	}
	if err := s.Submissions.Update(ctx, sub, model.SubmissionSubmitted, fields, answers); err != nil {
		monitoring.GradingResults.WithLabelValues("write_error").Inc()
		return nil, err
	}

	graded := *sub
	graded.Answers = answers
	graded.Status = model.SubmissionGraded
	graded.TotalScore = &total
	graded.GradedAt = &now
	graded.Version = sub.Version + 1

	monitoring.GradingResults.WithLabelValues("graded").Inc()
	logger.Submission(sub.ID, a.ID, sub.StudentID).Info("submission graded", zap.Float64("total", total))
	return &graded, nil
}

// OverrideScore 教师覆盖单题得分，替换自动评分结果
func (s *SubmissionService) OverrideScore(ctx context.Context, id string, answerID uint, caller util.Identity, req ScoreOverrideRequest) (*model.Submission, error) {
	sub, a, err := s.reviewable(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionSubmitted && sub.Status != model.SubmissionGraded {
		return nil, util.NewStateError("submission", string(sub.Status), string(model.SubmissionSubmitted), string(model.SubmissionGraded))
	}

	ans, ok := sub.AnswerByID(answerID)
	if !ok {
		return nil, util.ErrNotFound
	}
	q, ok := a.QuestionByID(ans.QuestionID)
	if !ok {
		return nil, util.NewConsistencyError(fmt.Sprintf("answer %d references question %d outside assessment %d", ans.ID, ans.QuestionID, a.ID), nil)
	}

	score, awards, err := overrideScore(q, req)
	if err != nil {
		return nil, err
	}

	updated := *ans
	updated.Score = score
	updated.ManualScore = &score
	updated.IsAutoGraded = false
	updated.RubricAwards = awards
	updated.Feedback = req.Feedback

	answers := make([]model.SubmissionAnswer, len(sub.Answers))
	copy(answers, sub.Answers)
	var total float64
	for i := range answers {
		if answers[i].ID == answerID {
			answers[i] = updated
		}
		total += answers[i].Score
	}

	now := s.Now()
	fields := map[string]interface{}{"updated_at": now}
	if sub.Status == model.SubmissionGraded {
		fields["total_score"] = total
	}
	if err := s.Submissions.Update(ctx, sub, sub.Status, fields, []model.SubmissionAnswer{updated}); err != nil {
		return nil, err
	}

	out := *sub
	out.Answers = answers
	out.Version = sub.Version + 1
	if sub.Status == model.SubmissionGraded {
		out.TotalScore = &total
	}
	logger.Submission(sub.ID, a.ID, sub.StudentID).Info("score overridden",
		zap.Uint("answer_id", answerID),
		zap.Float64("score", score),
		zap.Uint("by", caller.UserID))
	return &out, nil
}

func overrideScore(q *model.Question, req ScoreOverrideRequest) (float64, datatypes.JSON, error) {
	hasManual := req.ManualScore != nil
	hasRubric := len(req.RubricAwards) > 0
	if hasManual == hasRubric {
		return 0, nil, util.NewValidationError("manualScore", "exactly one of manualScore or rubricAwards is required")
	}

	if hasManual {
		v := *req.ManualScore
		if math.IsNaN(v) || v < 0 {
			return 0, nil, util.NewValidationError("manualScore", "manual score must be a non-negative number")
		}
		return grading.Clamp(v, q.MaxScore), nil, nil
	}

	score, err := grading.RubricScore(q, req.RubricAwards)
	if err != nil {
		return 0, nil, err
	}
	raw, err := json.Marshal(req.RubricAwards)
	if err != nil {
		return 0, nil, err
	}
	return score, datatypes.JSON(raw), nil
}

// Publish 发布单份已评分的提交
func (s *SubmissionService) Publish(ctx context.Context, id string, caller util.Identity) (*model.Submission, error) {
	sub, _, err := s.reviewable(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) publish(ctx context.Context, sub *model.Submission) error {
	if sub.Status != model.SubmissionGraded {
		return util.NewStateError("submission", string(sub.Status), string(model.SubmissionGraded))
	}
	now := s.Now()
	fields := map[string]interface{}{
		"status":       model.SubmissionPublished,
		"published_at": now,
	}
	if err := s.Submissions.Update(ctx, sub, model.SubmissionGraded, fields, nil); err != nil {
		return err
	}
	sub.Status = model.SubmissionPublished
	sub.PublishedAt = &now
	sub.Version++
	return nil
}

// PublishAll 发布测评下所有已评分的提交，返回发布数量
func (s *SubmissionService) PublishAll(ctx context.Context, assessmentID uint, caller util.Identity) (int, error) {
	a, err := loadOwned(ctx, s.Assessments, assessmentID, caller)
	if err != nil {
		return 0, err
	}
	subs, err := s.Submissions.FindByAssessment(ctx, a.ID)
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range subs {
		if subs[i].Status != model.SubmissionGraded {
			continue
		}
		if err := s.publish(ctx, &subs[i]); err != nil {
			logger.Log.Warn("publish skipped", zap.String("submission_id", subs[i].ID), zap.Error(err))
			continue
		}
		published++
	}
	logger.Log.Info("results published", zap.Uint("assessment_id", a.ID), zap.Int("count", published))
	return published, nil
}

// Get 学生查看自己的提交，成绩在发布前不可见
func (s *SubmissionService) Get(ctx context.Context, id string, caller util.Identity) (*model.Submission, error) {
	if caller.Role.IsEducator() {
		sub, _, err := s.reviewable(ctx, id, caller)
		return sub, err
	}

	sub, err := s.ownSubmission(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionPublished {
		hideScores(sub)
	}
	return sub, nil
}

func hideScores(sub *model.Submission) {
	sub.TotalScore = nil
	for i := range sub.Answers {
		sub.Answers[i].Score = 0
		sub.Answers[i].ManualScore = nil
		sub.Answers[i].RubricAwards = nil
		sub.Answers[i].Feedback = ""
	}
}

func (s *SubmissionService) ListForAssessment(ctx context.Context, assessmentID uint, caller util.Identity) ([]model.Submission, error) {
	a, err := loadOwned(ctx, s.Assessments, assessmentID, caller)
	if err != nil {
		return nil, err
	}
	return s.Submissions.FindByAssessment(ctx, a.ID)
}
