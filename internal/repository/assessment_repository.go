package repository

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func preloadQuestions(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Questions.Keywords", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Questions.RubricCriteria", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Classes")
}

// Create 在同一事务中写入测评及整个题目图
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
	return errors.Wrap(err, "create assessment")
}

func (r *AssessmentRepository) FindByID(ctx context.Context, id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := preloadQuestions(r.DB.WithContext(ctx)).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find assessment %d", id)
	}
	return &a, nil
}

func (r *AssessmentRepository) FindByOwner(ctx context.Context, ownerID uint) ([]model.Assessment, error) {
	var list []model.Assessment
	err := r.DB.WithContext(ctx).
		Preload("Classes").
		Where("educator_id = ?", ownerID).
		Order("start_time DESC").
		Find(&list).Error
	return list, errors.Wrapf(err, "find assessments of educator %d", ownerID)
}

func (r *AssessmentRepository) FindByClasses(ctx context.Context, classIDs []uint, statuses ...model.AssessmentStatus) ([]model.Assessment, error) {
	var list []model.Assessment
	q := preloadQuestions(r.DB.WithContext(ctx)).
		Where("id IN (?)", r.DB.Model(&model.AssessmentClass{}).Select("assessment_id").Where("class_id IN ?", classIDs))
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Order("start_time ASC").Find(&list).Error
	return list, errors.Wrap(err, "find assessments by classes")
}

// FindByStatuses 扫描用，只读取计算迁移所需的列
func (r *AssessmentRepository) FindByStatuses(ctx context.Context, statuses ...model.AssessmentStatus) ([]model.Assessment, error) {
	var list []model.Assessment
	err := r.DB.WithContext(ctx).
		Select("id", "status", "start_time", "end_time", "version").
		Where("status IN ?", statuses).
		Find(&list).Error
	return list, errors.Wrap(err, "find assessments by status")
}

// transition 条件更新：仅当状态与版本仍为读取时的值才写入
func transition(tx *gorm.DB, id uint, from model.AssessmentStatus, version int, to model.AssessmentStatus) error {
	res := tx.Model(&model.Assessment{}).
		Where("id = ? AND status = ? AND version = ?", id, from, version).
		Updates(map[string]interface{}{
			"status":  to,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "transition assessment %d", id)
	}
	if res.RowsAffected == 0 {
		return util.ErrConflict
	}
	return nil
}

func (r *AssessmentRepository) Transition(ctx context.Context, id uint, from model.AssessmentStatus, version int, to model.AssessmentStatus) error {
	return transition(r.DB.WithContext(ctx), id, from, version, to)
}

// Assign 替换班级集合并将 DRAFT 推进到 ASSIGNED
func (r *AssessmentRepository) Assign(ctx context.Context, id uint, version int, classIDs []uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, id, model.StatusDraft, version, model.StatusAssigned); err != nil {
			return err
		}
		if err := tx.Where("assessment_id = ?", id).Delete(&model.AssessmentClass{}).Error; err != nil {
			return errors.Wrap(err, "clear assessment classes")
		}
		rows := make([]model.AssessmentClass, 0, len(classIDs))
		for _, cid := range classIDs {
			rows = append(rows, model.AssessmentClass{AssessmentID: id, ClassID: cid})
		}
		return errors.Wrap(tx.Create(&rows).Error, "insert assessment classes")
	})
}

func deleteQuestionGraph(tx *gorm.DB, assessmentID uint) error {
	questionIDs := tx.Model(&model.Question{}).Unscoped().Select("id").Where("assessment_id = ?", assessmentID)
	for _, child := range []interface{}{&model.Option{}, &model.Keyword{}, &model.RubricCriterion{}} {
		if err := tx.Where("question_id IN (?)", questionIDs).Delete(child).Error; err != nil {
			return errors.Wrap(err, "delete question children")
		}
	}
	return errors.Wrap(tx.Unscoped().Where("assessment_id = ?", assessmentID).Delete(&model.Question{}).Error, "delete questions")
}

// ReplaceDraft 更新草稿元数据并重建题目图
func (r *AssessmentRepository) ReplaceDraft(ctx context.Context, a *model.Assessment, version int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Assessment{}).
			Where("id = ? AND status = ? AND version = ?", a.ID, model.StatusDraft, version).
			Updates(map[string]interface{}{
				"title":            a.Title,
				"description":      a.Description,
				"type":             a.Type,
				"duration_minutes": a.DurationMinutes,
				"start_time":       a.StartTime,
				"end_time":         a.EndTime,
				"grading_mode":     a.GradingMode,
				"updated_at":       a.UpdatedAt,
				"version":          gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update draft %d", a.ID)
		}
		if res.RowsAffected == 0 {
			return util.ErrConflict
		}
		if err := deleteQuestionGraph(tx, a.ID); err != nil {
			return err
		}
		for i := range a.Questions {
			a.Questions[i].AssessmentID = a.ID
		}
		if len(a.Questions) == 0 {
			return nil
		}
		return errors.Wrap(tx.Create(&a.Questions).Error, "insert questions")
	})
}

func (r *AssessmentRepository) DeleteDraft(ctx context.Context, id uint, version int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteQuestionGraph(tx, id); err != nil {
			return err
		}
		res := tx.Unscoped().Where("id = ? AND status = ? AND version = ?", id, model.StatusDraft, version).Delete(&model.Assessment{})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete draft %d", id)
		}
		if res.RowsAffected == 0 {
			return util.ErrConflict
		}
		return nil
	})
}
