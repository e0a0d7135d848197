package model

type QuestionType string

const (
	QuestionMCQ         QuestionType = "MCQ"
	QuestionTrueFalse   QuestionType = "TRUE_FALSE"
	QuestionShortAnswer QuestionType = "SHORT_ANSWER"
	QuestionEssay       QuestionType = "ESSAY"
)

// IsFreeText 简答与论述题按关键词计分
func (t QuestionType) IsFreeText() bool {
	return t == QuestionShortAnswer || t == QuestionEssay
}

// swagger:model Question
type Question struct {
	BaseModel
	AssessmentID   uint              `gorm:"not null;index" json:"assessmentId"`
	Position       int               `gorm:"not null" json:"position"`
	Text           string            `gorm:"type:text;not null" json:"text"`
	Type           QuestionType      `gorm:"size:20;not null" json:"type"`
	MaxScore       float64           `gorm:"not null" json:"maxScore"`
	CorrectAnswer  string            `gorm:"size:50" json:"correctAnswer,omitempty"`
	Options        []Option          `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
	Keywords       []Keyword         `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"keywords,omitempty"`
	RubricCriteria []RubricCriterion `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"rubricCriteria,omitempty"`
}

func (Question) TableName() string {
	return "assessment_questions"
}

type Option struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"questionId"`
	Position   int    `gorm:"not null" json:"position"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (Option) TableName() string {
	return "assessment_question_options"
}

type Keyword struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint    `gorm:"not null;index" json:"questionId"`
	Keyword    string  `gorm:"size:255;not null" json:"keyword"`
	Weight     float64 `gorm:"not null" json:"weight"`
}

func (Keyword) TableName() string {
	return "assessment_question_keywords"
}

type RubricCriterion struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint    `gorm:"not null;index" json:"questionId"`
	Name       string  `gorm:"size:255;not null" json:"name"`
	Points     float64 `gorm:"not null" json:"points"`
}

func (RubricCriterion) TableName() string {
	return "assessment_rubric_criteria"
}
