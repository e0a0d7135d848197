package service

import (
	"classroom_backend/internal/grading"
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submissionFixture struct {
	svc   *SubmissionService
	store *memAssessments
	subs  *memSubmissions
	a     *model.Assessment
	now   time.Time
}

func (f *submissionFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// 三道题：MCQ(2) + TRUE_FALSE(1) + SHORT_ANSWER(light 2, chlorophyll 3)，满分 8
func newSubmissionFixture(t *testing.T, mode model.GradingMode) *submissionFixture {
	t.Helper()
	store := newMemAssessments()
	classes := newMemClasses()
	classes.add(1, teacher.UserID, student.UserID, student2.UserID)

	a := seedAssessment(t, store, model.StatusActive, teacher.UserID, 1)
	row := store.rows[a.ID]
	row.GradingMode = mode
	row.Questions[2].RubricCriteria = []model.RubricCriterion{
		{ID: 901, QuestionID: row.Questions[2].ID, Name: "accuracy", Points: 2},
		{ID: 902, QuestionID: row.Questions[2].ID, Name: "clarity", Points: 4},
	}
	a = store.get(a.ID)

	f := &submissionFixture{store: store, subs: newMemSubmissions(), a: a, now: a.StartTime.Add(10 * time.Minute)}
	f.svc = NewSubmissionService(store, f.subs, classes, grading.NewEngine(), func() time.Time { return f.now })
	return f
}

func (f *submissionFixture) answerAll(t *testing.T, who util.Identity, answers ...string) *model.Submission {
	t.Helper()
	ctx := context.Background()
	sub, err := f.svc.Start(ctx, f.a.ID, who)
	require.NoError(t, err)

	var in []AnswerInput
	for i, ans := range answers {
		in = append(in, AnswerInput{QuestionID: f.a.Questions[i].ID, Answer: ans})
	}
	_, err = f.svc.SaveAnswers(ctx, sub.ID, who, SaveAnswersRequest{Answers: in})
	require.NoError(t, err)
	return sub
}

func TestStart_CreatesOneSubmissionPerStudent(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingAutomatic)
	ctx := context.Background()

	sub, err := f.svc.Start(ctx, f.a.ID, student)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionInProgress, sub.Status)
	require.Len(t, sub.Answers, 3)
	for i, ans := range sub.Answers {
		assert.Equal(t, f.a.Questions[i].ID, ans.QuestionID)
	}

	again, err := f.svc.Start(ctx, f.a.ID, student)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	_, err = f.svc.Start(ctx, f.a.ID, teacher)
	assert.True(t, util.IsAuthorization(err))

	outsider := util.Identity{UserID: 555, Role: model.Student}
	_, err = f.svc.Start(ctx, f.a.ID, outsider)
	assert.True(t, util.IsAuthorization(err))
}

func TestStart_RequiresActiveAssessment(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingAutomatic)
	f.store.rows[f.a.ID].Status = model.StatusCompleted

	_, err := f.svc.Start(context.Background(), f.a.ID, student)
	var se *util.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, string(model.StatusCompleted), se.Current)

	f.store.rows[f.a.ID].Status = model.StatusAssigned
	_, err = f.svc.Start(context.Background(), f.a.ID, student)
	assert.True(t, util.IsAuthorization(err), "assigned assessments are not visible yet")
}

func TestSubmit_AutomaticGradingAndPublish(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingAutomatic)
	ctx := context.Background()
	sub := f.answerAll(t, student, "1", "FALSE", "Light is absorbed by chlorophyll.")

	graded, err := f.svc.Submit(ctx, sub.ID, student)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, graded.Status)
	require.NotNil(t, graded.TotalScore)
	assert.Equal(t, 8.0, *graded.TotalScore)
	for _, ans := range graded.Answers {
		assert.True(t, ans.IsAutoGraded)
	}

	// 发布前学生看不到分数
	view, err := f.svc.Get(ctx, sub.ID, student)
	require.NoError(t, err)
	assert.Nil(t, view.TotalScore)
	assert.Zero(t, view.Answers[0].Score)

	_, err = f.svc.Get(ctx, sub.ID, student2)
	assert.True(t, util.IsAuthorization(err))

	published, err := f.svc.Publish(ctx, sub.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPublished, published.Status)

	view, err = f.svc.Get(ctx, sub.ID, student)
	require.NoError(t, err)
	require.NotNil(t, view.TotalScore)
	assert.Equal(t, 8.0, *view.TotalScore)

	_, err = f.svc.Publish(ctx, sub.ID, teacher)
	assert.True(t, util.IsState(err))
}

func TestSubmit_ManualModeWaitsForEducator(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingManual)
	ctx := context.Background()
	sub := f.answerAll(t, student, "0", "true", "")

	_, err := f.svc.Grade(ctx, sub.ID, teacher)
	assert.True(t, util.IsState(err), "cannot grade while in progress")

	submitted, err := f.svc.Submit(ctx, sub.ID, student)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, submitted.Status)
	assert.Nil(t, submitted.TotalScore)

	_, err = f.svc.Submit(ctx, sub.ID, student)
	assert.True(t, util.IsState(err), "double submit")

	_, err = f.svc.Grade(ctx, sub.ID, teacher2)
	assert.True(t, util.IsAuthorization(err), "not the owner")

	graded, err := f.svc.Grade(ctx, sub.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, graded.Status)
	assert.Equal(t, 0.0, *graded.TotalScore)

	_, err = f.svc.Grade(ctx, sub.ID, teacher)
	var se *util.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, string(model.SubmissionGraded), se.Current)
}

func TestGrade_InconsistentSubmissionWritesNothing(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingManual)
	ctx := context.Background()
	sub := f.answerAll(t, student, "1", "false", "light")
	_, err := f.svc.Submit(ctx, sub.ID, student)
	require.NoError(t, err)

	f.subs.rows[sub.ID].Answers[1].QuestionID = 9999
	updates := f.subs.updates

	_, err = f.svc.Grade(ctx, sub.ID, teacher)
	assert.True(t, util.IsConsistency(err))

	after := f.subs.get(sub.ID)
	assert.Equal(t, model.SubmissionSubmitted, after.Status)
	assert.Nil(t, after.TotalScore)
	for _, ans := range after.Answers {
		assert.Zero(t, ans.Score)
	}
	assert.Equal(t, updates, f.subs.updates)
}

func TestSubmit_AutomaticGradingFailureKeepsSubmission(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingAutomatic)
	ctx := context.Background()
	sub := f.answerAll(t, student, "1", "false", "light")
	f.subs.rows[sub.ID].Answers[0].QuestionID = 9999

	got, err := f.svc.Submit(ctx, sub.ID, student)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, got.Status)
	assert.Equal(t, model.SubmissionSubmitted, f.subs.get(sub.ID).Status)
}

func TestSaveAnswers_Rules(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingAutomatic)
	ctx := context.Background()
	sub, err := f.svc.Start(ctx, f.a.ID, student)
	require.NoError(t, err)

	_, err = f.svc.SaveAnswers(ctx, sub.ID, student, SaveAnswersRequest{})
	assert.True(t, util.IsValidation(err))

	_, err = f.svc.SaveAnswers(ctx, sub.ID, student, SaveAnswersRequest{Answers: []AnswerInput{{QuestionID: 4242, Answer: "x"}}})
	assert.True(t, util.IsConsistency(err), "question outside the assessment")

	_, err = f.svc.SaveAnswers(ctx, sub.ID, student2, SaveAnswersRequest{Answers: []AnswerInput{{QuestionID: f.a.Questions[0].ID, Answer: "1"}}})
	assert.True(t, util.IsAuthorization(err), "someone else's submission")

	saved, err := f.svc.SaveAnswers(ctx, sub.ID, student, SaveAnswersRequest{Answers: []AnswerInput{{QuestionID: f.a.Questions[1].ID, Answer: "true"}}})
	require.NoError(t, err)
	assert.Equal(t, "true", saved.Answers[1].Answer)
	assert.Equal(t, "true", f.subs.get(sub.ID).Answers[1].Answer)

	f.advance(time.Duration(f.a.DurationMinutes) * time.Minute)
	_, err = f.svc.SaveAnswers(ctx, sub.ID, student, SaveAnswersRequest{Answers: []AnswerInput{{QuestionID: f.a.Questions[1].ID, Answer: "false"}}})
	var se *util.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "EXPIRED", se.Current)

	// 超时后仍可交卷
	_, err = f.svc.Submit(ctx, sub.ID, student)
	require.NoError(t, err)
}

func TestOverrideScore(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingAutomatic)
	ctx := context.Background()
	sub := f.answerAll(t, student, "1", "false", "light")
	graded, err := f.svc.Submit(ctx, sub.ID, student)
	require.NoError(t, err)
	require.Equal(t, 5.0, *graded.TotalScore)
	essay := graded.Answers[2]

	five := 5.0
	over := 10.0
	negative := -1.0
	cases := []struct {
		name      string
		req       ScoreOverrideRequest
		wantScore float64
		wantTotal float64
		invalid   bool
	}{
		{name: "manual score", req: ScoreOverrideRequest{ManualScore: &five, Feedback: "good"}, wantScore: 5, wantTotal: 8},
		{name: "clamped to max", req: ScoreOverrideRequest{ManualScore: &over}, wantScore: 5, wantTotal: 8},
		{name: "rubric", req: ScoreOverrideRequest{RubricAwards: []grading.RubricAward{{CriterionID: 901, Points: 5}, {CriterionID: 902, Points: 1}}}, wantScore: 3, wantTotal: 6},
		{name: "negative", req: ScoreOverrideRequest{ManualScore: &negative}, invalid: true},
		{name: "neither", req: ScoreOverrideRequest{}, invalid: true},
		{name: "both", req: ScoreOverrideRequest{ManualScore: &five, RubricAwards: []grading.RubricAward{{CriterionID: 901, Points: 1}}}, invalid: true},
		{name: "foreign criterion", req: ScoreOverrideRequest{RubricAwards: []grading.RubricAward{{CriterionID: 1, Points: 1}}}, invalid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.OverrideScore(ctx, sub.ID, essay.ID, teacher, tc.req)
			if tc.invalid {
				assert.True(t, util.IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			ans, ok := got.AnswerByID(essay.ID)
			require.True(t, ok)
			assert.Equal(t, tc.wantScore, ans.Score)
			assert.False(t, ans.IsAutoGraded)
			assert.Equal(t, tc.wantTotal, *got.TotalScore)
			assert.Equal(t, tc.wantTotal, *f.subs.get(sub.ID).TotalScore)
		})
	}

	_, err = f.svc.OverrideScore(ctx, sub.ID, 777, teacher, ScoreOverrideRequest{ManualScore: &five})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestPublishAll_OnlyGraded(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingManual)
	ctx := context.Background()

	a := f.answerAll(t, student, "1", "false", "light")
	_, err := f.svc.Submit(ctx, a.ID, student)
	require.NoError(t, err)
	_, err = f.svc.Grade(ctx, a.ID, teacher)
	require.NoError(t, err)

	b := f.answerAll(t, student2, "0", "true", "")
	_, err = f.svc.Submit(ctx, b.ID, student2)
	require.NoError(t, err)

	n, err := f.svc.PublishAll(ctx, f.a.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.SubmissionPublished, f.subs.get(a.ID).Status)
	assert.Equal(t, model.SubmissionSubmitted, f.subs.get(b.ID).Status)

	_, err = f.svc.PublishAll(ctx, f.a.ID, teacher2)
	assert.True(t, util.IsAuthorization(err))

	list, err := f.svc.ListForAssessment(ctx, f.a.ID, teacher)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
