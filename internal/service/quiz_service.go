package service

import (
	"encoding/json"
	"maintech_backend/internal/config"
	"maintech_backend/internal/model"
	"maintech_backend/internal/repository"
	"maintech_backend/internal/util"
	"maintech_backend/pkg/logger"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

type QuizService struct {
	QuizRepo     *repository.QuizRepository
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	OrderRepo    *repository.OrderRepository
	Certificates *CertificateService
	Cfg          *config.Config
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	orderRepo *repository.OrderRepository,
	certificates *CertificateService,
	cfg *config.Config,
) *QuizService {
	return &QuizService{
		QuizRepo:     quizRepo,
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		OrderRepo:    orderRepo,
		Certificates: certificates,
		Cfg:          cfg,
	}
}

// SampleQuestions 把全部题组打平成一个列表，Fisher–Yates 洗牌后截取上限。
// 题目不足上限时全部返回，顺序依然随机。
func (s *QuizService) SampleQuestions(groups []model.QuestionGroup) []model.Question {
	var pool []model.Question
	for _, g := range groups {
		pool = append(pool, g.Questions...)
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	max := s.Cfg.Quiz.MaxQuestions
	if len(pool) > max {
		pool = pool[:max]
	}
	return pool
}

// StudentAnswer 选项对学生隐藏正确标记
type StudentAnswer struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
}

type StudentQuestion struct {
	ID      uint            `json:"id"`
	Content string          `json:"content"`
	Answers []StudentAnswer `json:"answers"`
}

type QuizSessionView struct {
	SessionID     string            `json:"sessionId"`
	ChapterID     uint              `json:"chapterId"`
	Questions     []StudentQuestion `json:"questions"`
	TimeLimit     int               `json:"timeLimit"`     // 总限时（分钟）
	RemainingTime int               `json:"remainingTime"` // 剩余秒数
	NextAttempt   int               `json:"nextAttempt"`
}

type QuizStatus struct {
	Status        string              `json:"status"` // available, in_progress, completed, locked
	IsCompleted   bool                `json:"isCompleted"`
	LockedUntil   *time.Time          `json:"lockedUntil,omitempty"`
	LockRemaining int                 `json:"lockRemaining,omitempty"` // 解锁剩余秒数
	Attempts      []model.QuizAttempt `json:"attempts"`
	QuestionCount int                 `json:"questionCount"`
}

// GetStatus 返回章节测验对该用户的当前状态，锁定过期在读取时惰性清除
func (s *QuizService) GetStatus(userID, chapterID uint) (*QuizStatus, error) {
	chapter, err := s.CourseRepo.FindChapterByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}
	if err := ensureActiveEnrollment(s.OrderRepo, userID, chapter.CourseID); err != nil {
		return nil, err
	}

	count, err := s.QuizRepo.CountQuestions(chapterID)
	if err != nil {
		return nil, err
	}

	progress, err := s.ProgressRepo.Ensure(userID, chapterID)
	if err != nil {
		return nil, err
	}
	progress, err = s.refreshLock(progress)
	if err != nil {
		return nil, err
	}

	full, err := s.ProgressRepo.FindByID(progress.ID)
	if err != nil {
		return nil, err
	}

	status := &QuizStatus{
		Status:        "available",
		IsCompleted:   full.IsCompleted,
		LockedUntil:   full.LockedUntil,
		Attempts:      full.Attempts,
		QuestionCount: int(count),
	}

	now := time.Now()
	switch {
	case full.IsCompleted:
		status.Status = "completed"
	case full.IsLocked(now):
		status.Status = "locked"
		status.LockRemaining = int(full.LockedUntil.Sub(now).Seconds())
	default:
		if _, err := s.QuizRepo.FindActiveSession(userID, chapterID); err == nil {
			status.Status = "in_progress"
		}
	}
	return status, nil
}

// StartQuiz 开始一次答题会话。完成态是终态，锁定期间拒绝开始；
// 已有未提交的会话则续用，避免刷新重置计时绕过限时。
func (s *QuizService) StartQuiz(userID, chapterID uint) (*QuizSessionView, error) {
	chapter, err := s.CourseRepo.FindChapterByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}
	if err := ensureActiveEnrollment(s.OrderRepo, userID, chapter.CourseID); err != nil {
		return nil, err
	}

	progress, err := s.ProgressRepo.Ensure(userID, chapterID)
	if err != nil {
		return nil, err
	}
	if progress.IsCompleted {
		return nil, util.ErrQuizCompleted
	}
	progress, err = s.refreshLock(progress)
	if err != nil {
		return nil, err
	}
	if progress.IsLocked(time.Now()) {
		return nil, util.ErrQuizLocked
	}

	if existing, err := s.QuizRepo.FindActiveSession(userID, chapterID); err == nil {
		if !s.sessionExpired(existing, time.Now()) {
			return s.sessionView(existing, progress)
		}
		// 过期会话按超时自动交卷，之后再开新会话
		if _, err := s.submitSession(existing, nil, true); err != nil {
			return nil, err
		}
		// 自动交卷可能触发锁定或完成
		progress, err = s.ProgressRepo.Ensure(userID, chapterID)
		if err != nil {
			return nil, err
		}
		if progress.IsCompleted {
			return nil, util.ErrQuizCompleted
		}
		if progress.IsLocked(time.Now()) {
			return nil, util.ErrQuizLocked
		}
	}

	groups, err := s.QuizRepo.ListGroupsWithQuestions(chapterID)
	if err != nil {
		return nil, err
	}
	sampled := s.SampleQuestions(groups)
	if len(sampled) == 0 {
		return nil, util.ErrChapterHasNoQuiz
	}

	ids := make([]uint, len(sampled))
	for i, q := range sampled {
		ids[i] = q.ID
	}
	rawIDs, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}

	session := &model.QuizSession{
		UserID:      userID,
		ChapterID:   chapterID,
		QuestionIDs: rawIDs,
		Status:      model.QuizSessionInProgress,
		StartedAt:   time.Now(),
	}
	if err := s.QuizRepo.CreateSession(session); err != nil {
		return nil, err
	}

	return s.sessionView(session, progress)
}

type QuizSubmissionReq struct {
	// questionId -> 所选 answerId，未作答的题目不出现在映射里
	Answers map[uint]uint `json:"answers"`
}

type QuizResult struct {
	Attempt        int        `json:"attempt"`
	Qualification  float64    `json:"qualification"`
	Approved       bool       `json:"approved"`
	CorrectCount   int        `json:"correctCount"`
	TotalQuestions int        `json:"totalQuestions"`
	IsCompleted    bool       `json:"isCompleted"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
	TimedOut       bool       `json:"timedOut"`
}

// SubmitQuiz 交卷。超时的提交按当时已选答案计分，未答题目计为错误。
func (s *QuizService) SubmitQuiz(userID uint, sessionID string, req QuizSubmissionReq) (*QuizResult, error) {
	session, err := s.QuizRepo.FindSessionByID(sessionID)
	if err != nil {
		return nil, util.ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if session.Status != model.QuizSessionInProgress {
		return nil, util.ErrSessionSubmitted
	}

	timedOut := s.sessionExpired(session, time.Now())
	return s.submitSession(session, req.Answers, timedOut)
}

// Score 逐题比对所选选项是否带正确标记，返回答对数与百分比（不取整）
func (s *QuizService) Score(questions []model.Question, selected map[uint]uint) (int, float64) {
	if len(questions) == 0 {
		return 0, 0
	}

	correct := 0
	for _, q := range questions {
		answerID, ok := selected[q.ID]
		if !ok {
			continue
		}
		for _, a := range q.Answers {
			if a.ID == answerID && a.IsCorrect {
				correct++
				break
			}
		}
	}

	percentage := float64(correct) / float64(len(questions)) * 100
	return correct, percentage
}

func (s *QuizService) submitSession(session *model.QuizSession, selected map[uint]uint, timedOut bool) (*QuizResult, error) {
	var ids []uint
	if err := json.Unmarshal(session.QuestionIDs, &ids); err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.FindQuestionsByIDs(ids)
	if err != nil {
		return nil, err
	}
	// 恢复会话中的抽题顺序
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}

	correct, percentage := s.Score(ordered, selected)
	approved := percentage >= s.Cfg.Quiz.PassThreshold

	progress, err := s.ProgressRepo.Ensure(session.UserID, session.ChapterID)
	if err != nil {
		return nil, err
	}
	if progress.IsCompleted {
		return nil, util.ErrQuizCompleted
	}

	priorCount, err := s.ProgressRepo.CountAttempts(progress.ID)
	if err != nil {
		return nil, err
	}

	attempt := &model.QuizAttempt{
		ProgressID:    progress.ID,
		Attempt:       int(priorCount) + 1,
		Qualification: percentage,
		Approved:      approved,
	}

	progress.IsCompleted = approved
	if approved {
		progress.FailedStreak = 0
		progress.LockedUntil = nil
	} else {
		progress.FailedStreak++
		if progress.FailedStreak >= s.Cfg.Quiz.MaxAttempts {
			lockedUntil := time.Now().Add(time.Duration(s.Cfg.Quiz.LockoutHours) * time.Hour)
			progress.LockedUntil = &lockedUntil
			// 解锁后重新获得完整的尝试窗口
			progress.FailedStreak = 0
		}
	}

	if err := s.ProgressRepo.RecordAttempt(progress, attempt); err != nil {
		return nil, err
	}

	now := time.Now()
	session.Status = model.QuizSessionSubmitted
	session.SubmittedAt = &now
	if err := s.QuizRepo.UpdateSession(session); err != nil {
		return nil, err
	}

	if approved {
		if chapter, err := s.CourseRepo.FindChapterByID(session.ChapterID); err == nil {
			if err := s.Certificates.IssueIfEligible(session.UserID, chapter.CourseID); err != nil {
				logger.Log.Warn("certificate issue check failed",
					zap.Uint("userId", session.UserID),
					zap.Uint("courseId", chapter.CourseID),
					zap.Error(err))
			}
		}
	}

	return &QuizResult{
		Attempt:        attempt.Attempt,
		Qualification:  percentage,
		Approved:       approved,
		CorrectCount:   correct,
		TotalQuestions: len(ordered),
		IsCompleted:    progress.IsCompleted,
		LockedUntil:    progress.LockedUntil,
		TimedOut:       timedOut,
	}, nil
}

func (s *QuizService) sessionExpired(session *model.QuizSession, now time.Time) bool {
	limit := time.Duration(s.Cfg.Quiz.TimeLimitMinutes) * time.Minute
	return now.Sub(session.StartedAt) > limit
}

func (s *QuizService) remainingSeconds(session *model.QuizSession, now time.Time) int {
	limit := s.Cfg.Quiz.TimeLimitMinutes * 60
	remaining := limit - int(now.Sub(session.StartedAt).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (s *QuizService) sessionView(session *model.QuizSession, progress *model.UserProgress) (*QuizSessionView, error) {
	var ids []uint
	if err := json.Unmarshal(session.QuestionIDs, &ids); err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.FindQuestionsByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	studentQs := make([]StudentQuestion, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			continue
		}
		sq := StudentQuestion{ID: q.ID, Content: q.Content}
		for _, a := range q.Answers {
			sq.Answers = append(sq.Answers, StudentAnswer{ID: a.ID, Content: a.Content})
		}
		studentQs = append(studentQs, sq)
	}

	priorCount, err := s.ProgressRepo.CountAttempts(progress.ID)
	if err != nil {
		return nil, err
	}

	return &QuizSessionView{
		SessionID:     session.ID,
		ChapterID:     session.ChapterID,
		Questions:     studentQs,
		TimeLimit:     s.Cfg.Quiz.TimeLimitMinutes,
		RemainingTime: s.remainingSeconds(session, time.Now()),
		NextAttempt:   int(priorCount) + 1,
	}, nil
}

func (s *QuizService) refreshLock(progress *model.UserProgress) (*model.UserProgress, error) {
	if progress.LockedUntil != nil && !time.Now().Before(*progress.LockedUntil) {
		if err := s.ProgressRepo.ClearLock(progress.ID); err != nil {
			return nil, err
		}
		progress.LockedUntil = nil
		progress.FailedStreak = 0
	}
	return progress, nil
}

// ValidateQuestionAnswers 写入侧校验：每题恰好一个正确选项
func ValidateQuestionAnswers(answers []model.Answer) error {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return util.ErrCorrectAnswerCount
	}
	return nil
}
