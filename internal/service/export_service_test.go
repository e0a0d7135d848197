package service

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportResults(t *testing.T) {
	f := newSubmissionFixture(t, model.GradingAutomatic)
	ctx := context.Background()

	graded := f.answerAll(t, student, "1", "false", "light")
	_, err := f.svc.Submit(ctx, graded.ID, student)
	require.NoError(t, err)
	f.answerAll(t, student2, "2", "", "")

	up := &memUploader{}
	export := NewExportService(f.store, f.subs, up, func() time.Time { return f.now })

	url, err := export.ExportResults(ctx, f.a.ID, teacher)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.name, util.ExportPrefix+"/"))
	assert.Equal(t, "/uploads/"+up.name, url)
	assert.Equal(t, util.MimeCSV, up.contentType)

	rows, err := csv.NewReader(strings.NewReader(string(up.body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"submission_id", "student_id", "status", "total_score", "submitted_at", "q1", "q2", "q3"}, rows[0])

	byStudent := map[string][]string{}
	for _, r := range rows[1:] {
		byStudent[r[1]] = r
	}
	g := byStudent["100"]
	assert.Equal(t, string(model.SubmissionGraded), g[2])
	assert.Equal(t, "5", g[3])
	assert.Equal(t, []string{"2", "1", "2"}, g[5:])

	p := byStudent["101"]
	assert.Equal(t, string(model.SubmissionInProgress), p[2])
	assert.Equal(t, []string{"", "", "", "", ""}, p[3:], "ungraded rows carry no scores")

	_, err = export.ExportResults(ctx, f.a.ID, teacher2)
	assert.True(t, util.IsAuthorization(err))
}
