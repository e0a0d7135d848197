package grading

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"fmt"
	"strconv"
	"strings"
)

// Result 单题计分结果
type Result struct {
	Score      float64
	AutoGraded bool
	// ManualEligible 可由教师按评分细则覆盖
	ManualEligible bool
}

// Strategy 对一种题型计分
type Strategy interface {
	Score(q *model.Question, answer string) (Result, error)
}

// Engine 按题型分派到对应的 Strategy
type Engine struct {
	strategies map[model.QuestionType]Strategy
}

func NewEngine() *Engine {
	kw := keywordStrategy{}
	return &Engine{
		strategies: map[model.QuestionType]Strategy{
			model.QuestionMCQ:         mcqStrategy{},
			model.QuestionTrueFalse:   trueFalseStrategy{},
			model.QuestionShortAnswer: kw,
			model.QuestionEssay:       kw,
		},
	}
}

// Register 新增或替换某题型的计分策略
func (e *Engine) Register(t model.QuestionType, s Strategy) {
	e.strategies[t] = s
}

// Score 未作答记 0 分且视为自动评分；未知题型属于配置错误，单独报告
func (e *Engine) Score(q *model.Question, answer string) (Result, error) {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q (question %d)", util.ErrUnknownQuestionType, q.Type, q.ID)
	}
	if strings.TrimSpace(answer) == "" {
		return Result{Score: 0, AutoGraded: true, ManualEligible: q.Type.IsFreeText()}, nil
	}
	return s.Score(q, answer)
}

type mcqStrategy struct{}

func (mcqStrategy) Score(q *model.Question, answer string) (Result, error) {
	res := Result{AutoGraded: true}
	want, err := strconv.Atoi(q.CorrectAnswer)
	if err != nil {
		return res, util.NewConsistencyError(fmt.Sprintf("question %d has a corrupt answer key", q.ID), err)
	}
	got, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return res, nil
	}
	if got == want {
		res.Score = q.MaxScore
	}
	return res, nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Score(q *model.Question, answer string) (Result, error) {
	res := Result{AutoGraded: true}
	if strings.EqualFold(strings.TrimSpace(answer), q.CorrectAnswer) {
		res.Score = q.MaxScore
	}
	return res, nil
}

// keywordStrategy 每个关键词至多计一次，总分不超过满分
type keywordStrategy struct{}

func (keywordStrategy) Score(q *model.Question, answer string) (Result, error) {
	res := Result{AutoGraded: true, ManualEligible: true}
	text := normalize(answer)

	seen := make(map[string]struct{}, len(q.Keywords))
	var total float64
	for _, kw := range q.Keywords {
		phrase := normalize(kw.Keyword)
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		if containsPhrase(text, phrase) {
			total += kw.Weight
		}
	}

	res.Score = Clamp(total, q.MaxScore)
	return res, nil
}

// Clamp 限制在 [0, max] 区间
func Clamp(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
