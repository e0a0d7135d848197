package service

import (
	"bytes"
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"classroom_backend/pkg/logger"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploader 成绩导出写入的对象存储
type Uploader interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

type ExportService struct {
	Assessments AssessmentStore
	Submissions SubmissionStore
	Storage     Uploader
	Now         Clock
}

func NewExportService(assessments AssessmentStore, submissions SubmissionStore, storage Uploader, now Clock) *ExportService {
	if now == nil {
		now = time.Now
	}
	return &ExportService{Assessments: assessments, Submissions: submissions, Storage: storage, Now: now}
}

// ExportResults 生成测评成绩 CSV 并上传，返回访问地址
func (s *ExportService) ExportResults(ctx context.Context, assessmentID uint, caller util.Identity) (string, error) {
	a, err := loadOwned(ctx, s.Assessments, assessmentID, caller)
	if err != nil {
		return "", err
	}
	subs, err := s.Submissions.FindByAssessment(ctx, a.ID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, a, subs); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s/assessment-%d/%s-%s.csv", util.ExportPrefix, a.ID, s.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
	url, err := s.Storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()), util.MimeCSV)
	if err != nil {
		return "", err
	}

	logger.Log.Info("results exported", zap.Uint("assessment_id", a.ID), zap.Int("rows", len(subs)), zap.String("object", name))
	return url, nil
}

// WriteResultsCSV 每份提交一行，题目得分按题目顺序排列
func WriteResultsCSV(w io.Writer, a *model.Assessment, subs []model.Submission) error {
	cw := csv.NewWriter(w)

	header := []string{"submission_id", "student_id", "status", "total_score", "submitted_at"}
	for _, q := range a.Questions {
		header = append(header, fmt.Sprintf("q%d", q.Position))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, sub := range subs {
		row := []string{sub.ID, strconv.FormatUint(uint64(sub.StudentID), 10), string(sub.Status), "", ""}
		if sub.TotalScore != nil {
			row[3] = strconv.FormatFloat(*sub.TotalScore, 'f', -1, 64)
		}
		if sub.SubmittedAt != nil {
			row[4] = sub.SubmittedAt.UTC().Format(time.RFC3339)
		}

		scores := make(map[uint]float64, len(sub.Answers))
		for _, ans := range sub.Answers {
			scores[ans.QuestionID] = ans.Score
		}
		graded := sub.Status == model.SubmissionGraded || sub.Status == model.SubmissionPublished
		for _, q := range a.Questions {
			cell := ""
			if v, ok := scores[q.ID]; ok && graded {
				cell = strconv.FormatFloat(v, 'f', -1, 64)
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
