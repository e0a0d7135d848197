package grading

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"fmt"
)

// AnswerScore 单个作答的评分结果
type AnswerScore struct {
	AnswerID   uint
	QuestionID uint
	Score      float64
	AutoGraded bool
}

// Outcome 整份提交的评分结果，只有全部作答都能解析时才会产生
type Outcome struct {
	Answers []AnswerScore
	Total   float64
}

// Grade 为提交中的每个作答计分并求和，不修改入参。
// 任一作答指向不属于该测评的题目，或该题型没有计分策略时，整体返回 ConsistencyError。
func (e *Engine) Grade(a *model.Assessment, s *model.Submission) (*Outcome, error) {
	if s.AssessmentID != a.ID {
		return nil, util.NewConsistencyError(
			fmt.Sprintf("submission %s belongs to assessment %d, not %d", s.ID, s.AssessmentID, a.ID), nil)
	}

	out := &Outcome{Answers: make([]AnswerScore, 0, len(s.Answers))}
	for _, ans := range s.Answers {
		q, ok := a.QuestionByID(ans.QuestionID)
		if !ok {
			return nil, util.NewConsistencyError(
				fmt.Sprintf("answer %d references question %d outside assessment %d", ans.ID, ans.QuestionID, a.ID), nil)
		}

		res, err := e.Score(q, ans.Answer)
		if err != nil {
			if util.IsConsistency(err) {
				return nil, err
			}
			return nil, util.NewConsistencyError(fmt.Sprintf("cannot score answer %d", ans.ID), err)
		}

		score := AnswerScore{
			AnswerID:   ans.ID,
			QuestionID: q.ID,
			Score:      res.Score,
			AutoGraded: res.AutoGraded,
		}
		// 教师手动分优先
		if ans.ManualScore != nil {
			score.Score = Clamp(*ans.ManualScore, q.MaxScore)
			score.AutoGraded = false
		}

		out.Answers = append(out.Answers, score)
		out.Total += score.Score
	}
	return out, nil
}
