package grading

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"fmt"
)

// RubricAward 教师按评分细则给出的单项得分
type RubricAward struct {
	CriterionID uint    `json:"criterionId"`
	Points      float64 `json:"points"`
}

// RubricScore 汇总细则得分：单项截断到该项分值，总分截断到题目满分
func RubricScore(q *model.Question, awards []RubricAward) (float64, error) {
	if len(q.RubricCriteria) == 0 {
		return 0, util.NewValidationError("rubricAwards", "question has no rubric criteria")
	}
	points := make(map[uint]float64, len(q.RubricCriteria))
	for _, rc := range q.RubricCriteria {
		points[rc.ID] = rc.Points
	}

	seen := make(map[uint]struct{}, len(awards))
	var total float64
	for _, a := range awards {
		limit, ok := points[a.CriterionID]
		if !ok {
			return 0, util.NewValidationError("rubricAwards", fmt.Sprintf("criterion %d does not belong to question %d", a.CriterionID, q.ID))
		}
		if _, dup := seen[a.CriterionID]; dup {
			return 0, util.NewValidationError("rubricAwards", fmt.Sprintf("criterion %d awarded twice", a.CriterionID))
		}
		seen[a.CriterionID] = struct{}{}
		total += Clamp(a.Points, limit)
	}
	return Clamp(total, q.MaxScore), nil
}
