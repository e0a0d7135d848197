package grading

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidateQuestions 依次校验题目，遇到第一处错误即返回。
// 校验通过的题目会被规范化：位置从 1 开始编号，MCQ 的正确选项标记按答案下标重写，
// 简答/论述题的满分由关键词权重求和得出。
func ValidateQuestions(questions []model.Question) error {
	for i := range questions {
		questions[i].Position = i + 1
		if err := ValidateQuestion(&questions[i]); err != nil {
			return err
		}
	}
	return nil
}

func ValidateQuestion(q *model.Question) error {
	fail := func(field, reason string) error {
		return &util.ValidationError{
			Field:            field,
			QuestionPosition: q.Position,
			QuestionText:     q.Text,
			Reason:           reason,
		}
	}

	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return fail("text", "question text is required")
	}

	switch q.Type {
	case model.QuestionMCQ:
		return validateMCQ(q, fail)
	case model.QuestionTrueFalse:
		return validateTrueFalse(q, fail)
	case model.QuestionShortAnswer, model.QuestionEssay:
		return validateFreeText(q, fail)
	default:
		return fail("type", fmt.Sprintf("invalid question type %q", q.Type))
	}
}

type failFunc func(field, reason string) error

func validateMCQ(q *model.Question, fail failFunc) error {
	if len(q.Options) == 0 {
		return fail("options", "MCQ requires at least one option")
	}
	if len(q.Keywords) > 0 {
		return fail("keywords", "keywords are not allowed for MCQ")
	}
	for i := range q.Options {
		q.Options[i].Text = strings.TrimSpace(q.Options[i].Text)
		if q.Options[i].Text == "" {
			return fail(fmt.Sprintf("options[%d].text", i), "option text is required")
		}
	}

	idx, err := strconv.Atoi(strings.TrimSpace(q.CorrectAnswer))
	if err != nil {
		return fail("correctAnswer", "correct answer must be an option index")
	}
	if idx < 0 || idx >= len(q.Options) {
		return fail("correctAnswer", fmt.Sprintf("correct answer index %d out of range [0, %d)", idx, len(q.Options)))
	}
	if err := validatePositiveScore(q, fail); err != nil {
		return err
	}

	// 只信任下标，不信任调用方传入的 isCorrect
	for i := range q.Options {
		q.Options[i].Position = i
		q.Options[i].IsCorrect = i == idx
	}
	q.CorrectAnswer = strconv.Itoa(idx)
	return validateRubric(q, fail)
}

func validateTrueFalse(q *model.Question, fail failFunc) error {
	if len(q.Options) > 0 {
		return fail("options", "options are not allowed for TRUE_FALSE")
	}
	if len(q.Keywords) > 0 {
		return fail("keywords", "keywords are not allowed for TRUE_FALSE")
	}
	if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
		return fail("correctAnswer", `correct answer must be "true" or "false"`)
	}
	if err := validatePositiveScore(q, fail); err != nil {
		return err
	}
	return validateRubric(q, fail)
}

func validateFreeText(q *model.Question, fail failFunc) error {
	if len(q.Options) > 0 {
		return fail("options", fmt.Sprintf("options are not allowed for %s", q.Type))
	}
	if len(q.Keywords) == 0 {
		return fail("keywords", fmt.Sprintf("%s requires at least one keyword", q.Type))
	}

	seen := make(map[string]struct{}, len(q.Keywords))
	var total float64
	for i := range q.Keywords {
		kw := &q.Keywords[i]
		kw.Keyword = strings.TrimSpace(kw.Keyword)
		norm := normalize(kw.Keyword)
		if norm == "" {
			return fail(fmt.Sprintf("keywords[%d].keyword", i), "keyword text is required")
		}
		if _, dup := seen[norm]; dup {
			return fail(fmt.Sprintf("keywords[%d].keyword", i), fmt.Sprintf("duplicate keyword %q", kw.Keyword))
		}
		seen[norm] = struct{}{}
		if !(kw.Weight > 0) || math.IsInf(kw.Weight, 0) {
			return fail(fmt.Sprintf("keywords[%d].weight", i), "keyword weight must be positive")
		}
		total += kw.Weight
	}

	// 满分由权重推导，忽略调用方传入的值
	q.MaxScore = total
	q.CorrectAnswer = ""
	return validateRubric(q, fail)
}

func validatePositiveScore(q *model.Question, fail failFunc) error {
	if !(q.MaxScore > 0) || math.IsInf(q.MaxScore, 0) {
		return fail("maxScore", "max score must be positive")
	}
	return nil
}

func validateRubric(q *model.Question, fail failFunc) error {
	for i := range q.RubricCriteria {
		rc := &q.RubricCriteria[i]
		rc.Name = strings.TrimSpace(rc.Name)
		if rc.Name == "" {
			return fail(fmt.Sprintf("rubricCriteria[%d].name", i), "criterion name is required")
		}
		if !(rc.Points > 0) || math.IsInf(rc.Points, 0) {
			return fail(fmt.Sprintf("rubricCriteria[%d].points", i), "criterion points must be positive")
		}
	}
	return nil
}
