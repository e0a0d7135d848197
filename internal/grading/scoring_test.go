package grading

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_MCQ(t *testing.T) {
	q := mcq("1", "a", "b", "c")
	q.MaxScore = 4
	require.NoError(t, ValidateQuestion(&q))

	e := NewEngine()
	cases := []struct {
		answer string
		want   float64
	}{
		{"1", 4},
		{" 1 ", 4},
		{"0", 0},
		{"2", 0},
		{"b", 0},
	}
	for _, tc := range cases {
		t.Run(tc.answer, func(t *testing.T) {
			res, err := e.Score(&q, tc.answer)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Score)
			assert.True(t, res.AutoGraded)
		})
	}
}

func TestScore_TrueFalseIsCaseInsensitive(t *testing.T) {
	q := model.Question{Text: "sky is blue", Type: model.QuestionTrueFalse, CorrectAnswer: "true", MaxScore: 1}
	e := NewEngine()

	for answer, want := range map[string]float64{"true": 1, "TRUE": 1, "True ": 1, "false": 0, "yes": 0} {
		res, err := e.Score(&q, answer)
		require.NoError(t, err)
		assert.Equal(t, want, res.Score, answer)
		assert.True(t, res.AutoGraded)
	}
}

func TestScore_EssayKeywords(t *testing.T) {
	q := model.Question{
		Text:     "what ends a recursive call",
		Type:     model.QuestionEssay,
		Keywords: []model.Keyword{{Keyword: "recursion", Weight: 5}, {Keyword: "base case", Weight: 3}},
	}
	require.NoError(t, ValidateQuestion(&q))
	require.Equal(t, 8.0, q.MaxScore)

	e := NewEngine()
	cases := []struct {
		name   string
		answer string
		want   float64
	}{
		{"both keywords", "the base case stops recursion", 8},
		{"none", "loop forever", 0},
		{"one keyword repeated", "Recursion, recursion and more RECURSION!", 5},
		{"inflected form matches", "recursions without a basecase", 5},
		{"word inside another word does not match", "tailrecursion only", 0},
		{"punctuation between words", "the base-case matters", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Score(&q, tc.answer)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Score)
			assert.True(t, res.AutoGraded)
			assert.True(t, res.ManualEligible)
		})
	}
}

func TestContainsPhrase(t *testing.T) {
	cases := []struct {
		keyword string
		text    string
		want    bool
	}{
		{"递归", "使用递归实现阶乘", true},
		{"阶乘", "递归，阶乘", true},
		{"递归实现", "递归，实现", false},
		{"recursion", "Recursions are fun", true},
		{"cat", "concatenate strings", false},
		{"C++", "I write C#", false},
		{"C++", "I write C++.", true},
		{"C#", "Mostly C#, some Go", true},
		{"C#", "Mostly C, some Go", false},
		{"base case", "the base-case matters", true},
		{"3.14", "pi is roughly 3.14.", true},
		{"50%", "about 50% of it", true},
	}
	for _, tc := range cases {
		t.Run(tc.keyword+"/"+tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, containsPhrase(normalize(tc.text), normalize(tc.keyword)))
		})
	}
}

func TestScore_ChineseAndSymbolKeywords(t *testing.T) {
	q := model.Question{
		Text:     "列举你熟悉的语言并说明递归",
		Type:     model.QuestionShortAnswer,
		Keywords: []model.Keyword{{Keyword: "递归", Weight: 2}, {Keyword: "C++", Weight: 1}, {Keyword: "C#", Weight: 1}},
	}
	require.NoError(t, ValidateQuestion(&q))

	e := NewEngine()
	cases := []struct {
		answer string
		want   float64
	}{
		{"我用C++写过递归函数", 3},
		{"I write C# daily", 1},
		{"只会 C 语言", 0},
	}
	for _, tc := range cases {
		t.Run(tc.answer, func(t *testing.T) {
			res, err := e.Score(&q, tc.answer)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Score)
		})
	}
}

func TestScore_KeywordTotalIsCapped(t *testing.T) {
	q := model.Question{
		Text:     "x",
		Type:     model.QuestionShortAnswer,
		MaxScore: 4,
		Keywords: []model.Keyword{{Keyword: "alpha", Weight: 3}, {Keyword: "beta", Weight: 3}},
	}
	res, err := NewEngine().Score(&q, "alpha beta")
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.Score)
}

func TestScore_UnansweredIsZeroAndAutoGraded(t *testing.T) {
	e := NewEngine()
	for _, q := range []model.Question{
		mcq("0", "a"),
		{Type: model.QuestionTrueFalse, CorrectAnswer: "true", MaxScore: 1},
		{Type: model.QuestionEssay, MaxScore: 1, Keywords: []model.Keyword{{Keyword: "x", Weight: 1}}},
	} {
		q := q
		res, err := e.Score(&q, "   ")
		require.NoError(t, err)
		assert.Zero(t, res.Score)
		assert.True(t, res.AutoGraded)
	}
}

func TestScore_UnknownTypeIsDistinctError(t *testing.T) {
	q := model.Question{Type: "MATCHING", MaxScore: 1}
	_, err := NewEngine().Score(&q, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrUnknownQuestionType))
}

type constantStrategy float64

func (c constantStrategy) Score(q *model.Question, answer string) (Result, error) {
	return Result{Score: float64(c), AutoGraded: true}, nil
}

func TestEngine_RegisterNewType(t *testing.T) {
	e := NewEngine()
	e.Register("MATCHING", constantStrategy(2))

	q := model.Question{Type: "MATCHING", MaxScore: 2}
	res, err := e.Score(&q, "anything")
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Score)
}
