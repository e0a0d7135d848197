package model

import (
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "IN_PROGRESS"
	SubmissionSubmitted  SubmissionStatus = "SUBMITTED"
	SubmissionGraded     SubmissionStatus = "GRADED"
	SubmissionPublished  SubmissionStatus = "PUBLISHED"
)

// swagger:model Submission
type Submission struct {
	UUIDBase
	AssessmentID uint               `gorm:"not null;uniqueIndex:idx_submission_student" json:"assessmentId"`
	StudentID    uint               `gorm:"not null;uniqueIndex:idx_submission_student" json:"studentId"`
	Status       SubmissionStatus   `gorm:"size:20;not null;index;default:'IN_PROGRESS'" json:"status"`
	Version      int                `gorm:"not null;default:1" json:"version"`
	TotalScore   *float64           `json:"totalScore"`
	StartedAt    time.Time          `json:"startedAt"`
	SubmittedAt  *time.Time         `json:"submittedAt,omitempty"`
	GradedAt     *time.Time         `json:"gradedAt,omitempty"`
	PublishedAt  *time.Time         `json:"publishedAt,omitempty"`
	Answers      []SubmissionAnswer `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

func (Submission) TableName() string {
	return "assessment_submissions"
}

func (s *Submission) AnswerByID(id uint) (*SubmissionAnswer, bool) {
	for i := range s.Answers {
		if s.Answers[i].ID == id {
			return &s.Answers[i], true
		}
	}
	return nil, false
}

// swagger:model SubmissionAnswer
type SubmissionAnswer struct {
	BaseModel
	SubmissionID string         `gorm:"type:varchar(36);not null;index" json:"submissionId"`
	QuestionID   uint           `gorm:"not null;index" json:"questionId"`
	Position     int            `gorm:"not null" json:"position"`
	Answer       string         `gorm:"type:text" json:"answer"`
	Score        float64        `gorm:"default:0" json:"score"`
	IsAutoGraded bool           `gorm:"default:false" json:"isAutoGraded"`
	ManualScore  *float64       `json:"manualScore,omitempty"`
	RubricAwards datatypes.JSON `json:"rubricAwards,omitempty"`
	Feedback     string         `gorm:"type:text" json:"feedback,omitempty"`
}

func (SubmissionAnswer) TableName() string {
	return "assessment_submission_answers"
}
