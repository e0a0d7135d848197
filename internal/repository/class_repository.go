package repository

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassRepository struct {
	DB *gorm.DB
}

func NewClassRepository(db *gorm.DB) *ClassRepository {
	return &ClassRepository{DB: db}
}

func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	return errors.Wrap(r.DB.WithContext(ctx).Create(c).Error, "create class")
}

func (r *ClassRepository) FindByID(ctx context.Context, id uint) (*model.Class, error) {
	var c model.Class
	err := r.DB.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	return &c, errors.Wrapf(err, "find class %d", id)
}

// FindByIDs 不存在的 id 直接缺席，由调用方判断
func (r *ClassRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Class, error) {
	var list []model.Class
	if len(ids) == 0 {
		return list, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, errors.Wrap(err, "find classes")
}

func (r *ClassRepository) FindByOwner(ctx context.Context, ownerID uint) ([]model.Class, error) {
	var list []model.Class
	err := r.DB.WithContext(ctx).Where("educator_id = ?", ownerID).Order("id ASC").Find(&list).Error
	return list, errors.Wrapf(err, "find classes of educator %d", ownerID)
}

func (r *ClassRepository) FindForStudent(ctx context.Context, studentID uint) ([]model.Class, error) {
	var list []model.Class
	err := r.DB.WithContext(ctx).
		Joins("JOIN class_members ON class_members.class_id = classes.id").
		Where("class_members.student_id = ?", studentID).
		Order("classes.id ASC").
		Find(&list).Error
	return list, errors.Wrapf(err, "find classes of student %d", studentID)
}

func (r *ClassRepository) ClassIDsForStudent(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.ClassMember{}).
		Where("student_id = ?", studentID).
		Pluck("class_id", &ids).Error
	return ids, errors.Wrapf(err, "find class ids of student %d", studentID)
}

// AddMember 重复加入视为成功
func (r *ClassRepository) AddMember(ctx context.Context, classID, studentID uint) error {
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ClassMember{ClassID: classID, StudentID: studentID}).Error
	return errors.Wrap(err, "add class member")
}

func (r *ClassRepository) RemoveMember(ctx context.Context, classID, studentID uint) error {
	err := r.DB.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&model.ClassMember{}).Error
	return errors.Wrap(err, "remove class member")
}

func (r *ClassRepository) Members(ctx context.Context, classID uint) ([]model.ClassMember, error) {
	var list []model.ClassMember
	err := r.DB.WithContext(ctx).Where("class_id = ?", classID).Order("created_at ASC").Find(&list).Error
	return list, errors.Wrap(err, "list class members")
}
