package model

import (
	"time"
)

type AssessmentType string

const (
	AssessmentQuiz   AssessmentType = "QUIZ"
	AssessmentTest   AssessmentType = "TEST"
	AssessmentExam   AssessmentType = "EXAM"
	AssessmentSurvey AssessmentType = "SURVEY"
)

func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentQuiz, AssessmentTest, AssessmentExam, AssessmentSurvey:
		return true
	}
	return false
}

type GradingMode string

const (
	GradingAutomatic GradingMode = "AUTOMATIC"
	GradingManual    GradingMode = "MANUAL"
)

func (m GradingMode) Valid() bool {
	return m == GradingAutomatic || m == GradingManual
}

type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "DRAFT"
	StatusAssigned  AssessmentStatus = "ASSIGNED"
	StatusActive    AssessmentStatus = "ACTIVE"
	StatusCompleted AssessmentStatus = "COMPLETED"
	StatusCanceled  AssessmentStatus = "CANCELED"
)

// Rank 状态机中的先后顺序，CANCELED 不参与排序
func (s AssessmentStatus) Rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusAssigned:
		return 1
	case StatusActive:
		return 2
	case StatusCompleted:
		return 3
	}
	return -1
}

func (s AssessmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// swagger:model Assessment
type Assessment struct {
	BaseModel
	Title           string            `gorm:"size:255;not null" json:"title"`
	Description     string            `gorm:"type:text" json:"description"`
	Type            AssessmentType    `gorm:"size:20;not null" json:"type"`
	DurationMinutes int               `gorm:"not null" json:"durationMinutes"`
	StartTime       time.Time         `gorm:"not null;index" json:"startTime"`
	EndTime         time.Time         `gorm:"not null;index" json:"endTime"`
	GradingMode     GradingMode       `gorm:"size:20;not null" json:"gradingMode"`
	Status          AssessmentStatus  `gorm:"size:20;not null;index;default:'DRAFT'" json:"status"`
	EducatorID      uint              `gorm:"not null;index" json:"educatorId"`
	Version         int               `gorm:"not null;default:1" json:"version"`
	Questions       []Question        `gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Classes         []AssessmentClass `gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE" json:"classes,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

func (a *Assessment) ClassIDs() []uint {
	ids := make([]uint, 0, len(a.Classes))
	for _, c := range a.Classes {
		ids = append(ids, c.ClassID)
	}
	return ids
}

// QuestionByID 在测评自身的题目中查找
func (a *Assessment) QuestionByID(id uint) (*Question, bool) {
	for i := range a.Questions {
		if a.Questions[i].ID == id {
			return &a.Questions[i], true
		}
	}
	return nil, false
}

func (a *Assessment) MaxScore() float64 {
	var total float64
	for _, q := range a.Questions {
		total += q.MaxScore
	}
	return total
}

// AssessmentClass 测评与班级的分配关系
type AssessmentClass struct {
	AssessmentID uint      `gorm:"primaryKey" json:"assessmentId"`
	ClassID      uint      `gorm:"primaryKey;index" json:"classId"`
	CreatedAt    time.Time `json:"assignedAt"`
}

func (AssessmentClass) TableName() string {
	return "assessment_classes"
}
