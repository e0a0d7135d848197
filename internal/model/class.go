package model

import "time"

// swagger:model Class
type Class struct {
	BaseModel
	Name        string        `gorm:"size:120;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	EducatorID  uint          `gorm:"not null;index" json:"educatorId"`
	Members     []ClassMember `gorm:"foreignKey:ClassID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (Class) TableName() string {
	return "classes"
}

// ClassMember 班级学生名单
type ClassMember struct {
	ClassID   uint      `gorm:"primaryKey" json:"classId"`
	StudentID uint      `gorm:"primaryKey;index" json:"studentId"`
	CreatedAt time.Time `json:"joinedAt"`
}

func (ClassMember) TableName() string {
	return "class_members"
}
