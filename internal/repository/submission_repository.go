package repository

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func preloadAnswers(db *gorm.DB) *gorm.DB {
	return db.Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

// Create 同一学生重复开始同一测评时返回 util.ErrConflict
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(s).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrConflict
	}
	return errors.Wrap(err, "create submission")
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	var s model.Submission
	err := preloadAnswers(r.DB.WithContext(ctx)).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find submission %s", id)
	}
	return &s, nil
}

func (r *SubmissionRepository) FindByAssessmentAndStudent(ctx context.Context, assessmentID, studentID uint) (*model.Submission, error) {
	var s model.Submission
	err := preloadAnswers(r.DB.WithContext(ctx)).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find submission by student")
	}
	return &s, nil
}

func (r *SubmissionRepository) FindByAssessment(ctx context.Context, assessmentID uint) ([]model.Submission, error) {
	var list []model.Submission
	err := preloadAnswers(r.DB.WithContext(ctx)).
		Where("assessment_id = ?", assessmentID).
		Order("started_at ASC").
		Find(&list).Error
	return list, errors.Wrapf(err, "find submissions of assessment %d", assessmentID)
}

// Update 以状态与版本为条件更新提交，并在同一事务中写入作答
func (r *SubmissionRepository) Update(ctx context.Context, s *model.Submission, from model.SubmissionStatus, fields map[string]interface{}, answers []model.SubmissionAnswer) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			updates[k] = v
		}
		updates["version"] = gorm.Expr("version + 1")

		res := tx.Model(&model.Submission{}).
			Where("id = ? AND status = ? AND version = ?", s.ID, from, s.Version).
			Updates(updates)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update submission %s", s.ID)
		}
		if res.RowsAffected == 0 {
			return util.ErrConflict
		}

		for _, ans := range answers {
			err := tx.Model(&model.SubmissionAnswer{}).
				Where("id = ? AND submission_id = ?", ans.ID, s.ID).
				Updates(map[string]interface{}{
					"answer":         ans.Answer,
					"score":          ans.Score,
					"is_auto_graded": ans.IsAutoGraded,
					"manual_score":   ans.ManualScore,
					"rubric_awards":  ans.RubricAwards,
					"feedback":       ans.Feedback,
				}).Error
			if err != nil {
				return errors.Wrapf(err, "update answer %d", ans.ID)
			}
		}
		return nil
	})
}
