package service

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

var (
	teacher  = util.Identity{UserID: 10, Role: model.Teacher}
	teacher2 = util.Identity{UserID: 11, Role: model.Teacher}
	admin    = util.Identity{UserID: 1, Role: model.Admin}
	student  = util.Identity{UserID: 100, Role: model.Student}
	student2 = util.Identity{UserID: 101, Role: model.Student}
)

func cloneAssessment(a *model.Assessment) *model.Assessment {
	out := *a
	out.Questions = make([]model.Question, len(a.Questions))
	for i, q := range a.Questions {
		q.Options = append([]model.Option(nil), q.Options...)
		q.Keywords = append([]model.Keyword(nil), q.Keywords...)
		q.RubricCriteria = append([]model.RubricCriterion(nil), q.RubricCriteria...)
		out.Questions[i] = q
	}
	out.Classes = append([]model.AssessmentClass(nil), a.Classes...)
	return &out
}

type memAssessments struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*model.Assessment

	creates     int
	writes      int
	conflicts   int            // 接下来 n 次写入返回冲突
	failOn      map[uint]error // 指定测评的状态迁移失败
	transitions map[uint][]model.AssessmentStatus
}

func newMemAssessments() *memAssessments {
	return &memAssessments{
		rows:        map[uint]*model.Assessment{},
		failOn:      map[uint]error{},
		transitions: map[uint][]model.AssessmentStatus{},
	}
}

// seed 直接写入一条测评，绕过服务层校验
func (m *memAssessments) seed(a *model.Assessment) *model.Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if a.ID == 0 {
		a.ID = m.nextID
	}
	if a.Version == 0 {
		a.Version = 1
	}
	var qid uint = a.ID * 100
	for i := range a.Questions {
		if a.Questions[i].ID == 0 {
			qid++
			a.Questions[i].ID = qid
		}
		a.Questions[i].AssessmentID = a.ID
	}
	m.rows[a.ID] = cloneAssessment(a)
	return a
}

func (m *memAssessments) get(id uint) *model.Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAssessment(m.rows[id])
}

func (m *memAssessments) Create(ctx context.Context, a *model.Assessment) error {
	m.mu.Lock()
	m.creates++
	m.mu.Unlock()
	m.seed(a)
	return nil
}

func (m *memAssessments) FindByID(ctx context.Context, id uint) (*model.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return cloneAssessment(a), nil
}

func (m *memAssessments) sorted(keep func(*model.Assessment) bool) []model.Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Assessment
	for _, a := range m.rows {
		if keep(a) {
			out = append(out, *cloneAssessment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hasStatus(s model.AssessmentStatus, statuses []model.AssessmentStatus) bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (m *memAssessments) FindByOwner(ctx context.Context, ownerID uint) ([]model.Assessment, error) {
	return m.sorted(func(a *model.Assessment) bool { return a.EducatorID == ownerID }), nil
}

func (m *memAssessments) FindByClasses(ctx context.Context, classIDs []uint, statuses ...model.AssessmentStatus) ([]model.Assessment, error) {
	return m.sorted(func(a *model.Assessment) bool {
		return intersects(a.ClassIDs(), classIDs) && (len(statuses) == 0 || hasStatus(a.Status, statuses))
	}), nil
}

func (m *memAssessments) FindByStatuses(ctx context.Context, statuses ...model.AssessmentStatus) ([]model.Assessment, error) {
	return m.sorted(func(a *model.Assessment) bool { return hasStatus(a.Status, statuses) }), nil
}

// guard 模拟条件更新：状态或版本不符、或注入冲突时返回 ErrConflict
func (m *memAssessments) guard(id uint, from model.AssessmentStatus, version int) (*model.Assessment, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		a.Version++
		return nil, util.ErrConflict
	}
	if a.Status != from || a.Version != version {
		return nil, util.ErrConflict
	}
	return a, nil
}

func (m *memAssessments) Assign(ctx context.Context, id uint, version int, classIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.guard(id, model.StatusDraft, version)
	if err != nil {
		return err
	}
	a.Classes = nil
	for _, cid := range classIDs {
		a.Classes = append(a.Classes, model.AssessmentClass{AssessmentID: id, ClassID: cid})
	}
	a.Status = model.StatusAssigned
	a.Version++
	m.writes++
	return nil
}

func (m *memAssessments) Transition(ctx context.Context, id uint, from model.AssessmentStatus, version int, to model.AssessmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[id]; ok {
		return err
	}
	a, err := m.guard(id, from, version)
	if err != nil {
		return err
	}
	a.Status = to
	a.Version++
	m.writes++
	m.transitions[id] = append(m.transitions[id], to)
	return nil
}

func (m *memAssessments) ReplaceDraft(ctx context.Context, a *model.Assessment, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, err := m.guard(a.ID, model.StatusDraft, version)
	if err != nil {
		return err
	}
	next := cloneAssessment(a)
	next.Version = cur.Version + 1
	m.rows[a.ID] = next
	m.writes++
	return nil
}

func (m *memAssessments) DeleteDraft(ctx context.Context, id uint, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.guard(id, model.StatusDraft, version); err != nil {
		return err
	}
	delete(m.rows, id)
	m.writes++
	return nil
}

type memClasses struct {
	mu      sync.Mutex
	nextID  uint
	classes map[uint]*model.Class
	members map[uint]map[uint]bool // classID -> studentID
}

func newMemClasses() *memClasses {
	return &memClasses{classes: map[uint]*model.Class{}, members: map[uint]map[uint]bool{}}
}

func (m *memClasses) add(id, educatorID uint, students ...uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[id] = &model.Class{BaseModel: model.BaseModel{ID: id}, Name: fmt.Sprintf("class-%d", id), EducatorID: educatorID}
	m.members[id] = map[uint]bool{}
	for _, s := range students {
		m.members[id][s] = true
	}
	if id > m.nextID {
		m.nextID = id
	}
}

func (m *memClasses) FindByIDs(ctx context.Context, ids []uint) ([]model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Class
	for _, id := range ids {
		if c, ok := m.classes[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memClasses) ClassIDsForStudent(ctx context.Context, studentID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uint
	for cid, set := range m.members {
		if set[studentID] {
			out = append(out, cid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memClasses) Create(ctx context.Context, c *model.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.classes[c.ID] = &cp
	m.members[c.ID] = map[uint]bool{}
	return nil
}

func (m *memClasses) FindByID(ctx context.Context, id uint) (*model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClasses) FindByOwner(ctx context.Context, ownerID uint) ([]model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Class
	for _, c := range m.classes {
		if c.EducatorID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memClasses) FindForStudent(ctx context.Context, studentID uint) ([]model.Class, error) {
	ids, _ := m.ClassIDsForStudent(ctx, studentID)
	return m.FindByIDs(ctx, ids)
}

func (m *memClasses) AddMember(ctx context.Context, classID, studentID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[classID][studentID] = true
	return nil
}

func (m *memClasses) RemoveMember(ctx context.Context, classID, studentID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[classID], studentID)
	return nil
}

func (m *memClasses) Members(ctx context.Context, classID uint) ([]model.ClassMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ClassMember
	for sid := range m.members[classID] {
		out = append(out, model.ClassMember{ClassID: classID, StudentID: sid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

type memUsers map[uint]*model.User

func (m memUsers) FindByID(id uint) (*model.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return u, nil
}

func cloneSubmission(s *model.Submission) *model.Submission {
	out := *s
	out.Answers = append([]model.SubmissionAnswer(nil), s.Answers...)
	return &out
}

type memSubmissions struct {
	mu       sync.Mutex
	seq      int
	answerID uint
	rows     map[string]*model.Submission
	updates  int
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{rows: map[string]*model.Submission{}}
}

func (m *memSubmissions) get(id string) *model.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSubmission(m.rows[id])
}

func (m *memSubmissions) Create(ctx context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.AssessmentID == s.AssessmentID && row.StudentID == s.StudentID {
			return util.ErrConflict
		}
	}
	m.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("sub-%d", m.seq)
	}
	for i := range s.Answers {
		m.answerID++
		s.Answers[i].ID = m.answerID
		s.Answers[i].SubmissionID = s.ID
	}
	m.rows[s.ID] = cloneSubmission(s)
	return nil
}

func (m *memSubmissions) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return cloneSubmission(s), nil
}

func (m *memSubmissions) FindByAssessmentAndStudent(ctx context.Context, assessmentID, studentID uint) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.AssessmentID == assessmentID && s.StudentID == studentID {
			return cloneSubmission(s), nil
		}
	}
	return nil, util.ErrNotFound
}

func (m *memSubmissions) FindByAssessment(ctx context.Context, assessmentID uint) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Submission
	for _, s := range m.rows {
		if s.AssessmentID == assessmentID {
			out = append(out, *cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func timePtr(v interface{}) *time.Time {
	t := v.(time.Time)
	return &t
}

func (m *memSubmissions) Update(ctx context.Context, s *model.Submission, from model.SubmissionStatus, fields map[string]interface{}, answers []model.SubmissionAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[s.ID]
	if !ok {
		return util.ErrNotFound
	}
	if row.Status != from || row.Version != s.Version {
		return util.ErrConflict
	}

	for k, v := range fields {
		switch k {
		case "status":
			row.Status = v.(model.SubmissionStatus)
		case "total_score":
			total := v.(float64)
			row.TotalScore = &total
		case "submitted_at":
			row.SubmittedAt = timePtr(v)
		case "graded_at":
			row.GradedAt = timePtr(v)
		case "published_at":
			row.PublishedAt = timePtr(v)
		case "updated_at":
			row.UpdatedAt = v.(time.Time)
		default:
			return fmt.Errorf("unexpected field %q", k)
		}
	}
	for _, ans := range answers {
		for i := range row.Answers {
			if row.Answers[i].ID == ans.ID {
				row.Answers[i] = ans
			}
		}
	}
	row.Version++
	m.updates++
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() {
		l.mu.Lock()
		l.held = false
		l.released++
		l.mu.Unlock()
	}, true, nil
}

type memUploader struct {
	name        string
	contentType string
	body        []byte
}

func (u *memUploader) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	b, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	u.name, u.contentType, u.body = filename, contentType, b
	return "/uploads/" + filename, nil
}
