package service

import (
	"maintech_backend/internal/model"
	"maintech_backend/internal/repository"
	"maintech_backend/internal/util"
	"maintech_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	QuizRepo     *repository.QuizRepository
	OrderRepo    *repository.OrderRepository
	Certificates *CertificateService
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	quizRepo *repository.QuizRepository,
	orderRepo *repository.OrderRepository,
	certificates *CertificateService,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		QuizRepo:     quizRepo,
		OrderRepo:    orderRepo,
		Certificates: certificates,
	}
}

// ensureActiveEnrollment 测验与进度入口的报名前置校验
func ensureActiveEnrollment(orderRepo *repository.OrderRepository, userID, courseID uint) error {
	enrollment, err := orderRepo.FindEnrollment(userID, courseID)
	if err == gorm.ErrRecordNotFound {
		return util.ErrNotEnrolled
	}
	if err != nil {
		return err
	}
	if !enrollment.Active {
		return util.ErrNotEnrolled
	}
	return nil
}

// SyncCourseProgress 保证该用户在课程每个章节下都有进度记录，然后返回完整列表。
// Ensure 走 FirstOrCreate 加唯一索引，重复进入（双开标签页等）不会产生重复行。
func (s *ProgressService) SyncCourseProgress(userID, courseID uint) ([]model.UserProgress, error) {
	if err := ensureActiveEnrollment(s.OrderRepo, userID, courseID); err != nil {
		return nil, err
	}

	chapters, err := s.CourseRepo.ListChapters(courseID)
	if err != nil {
		return nil, err
	}

	for _, chapter := range chapters {
		if _, err := s.ProgressRepo.Ensure(userID, chapter.ID); err != nil {
			return nil, err
		}
	}

	return s.ProgressRepo.ListByUserAndCourse(userID, courseID)
}

// MarkChapterRead 无测验的章节允许手动标记完成；带测验的章节必须通过测验
func (s *ProgressService) MarkChapterRead(userID, chapterID uint) (*model.UserProgress, error) {
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
	if count > 0 {
		return nil, util.ErrChapterHasQuiz
	}

	progress, err := s.ProgressRepo.Ensure(userID, chapterID)
	if err != nil {
		return nil, err
	}
	if !progress.IsCompleted {
		progress.IsCompleted = true
		if err := s.ProgressRepo.Update(progress); err != nil {
			return nil, err
		}
	}

	if err := s.Certificates.IssueIfEligible(userID, chapter.CourseID); err != nil {
		logger.Log.Warn("certificate issue check failed",
			zap.Uint("userId", userID),
			zap.Uint("courseId", chapter.CourseID),
			zap.Error(err))
	}

	return progress, nil
}

type CourseProgressSummary struct {
	CourseID          uint    `json:"courseId"`
	TotalChapters     int     `json:"totalChapters"`
	CompletedChapters int     `json:"completedChapters"`
	Percentage        float64 `json:"percentage"`
}

func (s *ProgressService) GetCourseSummary(userID, courseID uint) (*CourseProgressSummary, error) {
	total, err := s.CourseRepo.CountChapters(courseID)
	if err != nil {
		return nil, err
	}

	completed, err := s.ProgressRepo.CountCompletedInCourse(userID, courseID)
	if err != nil {
		return nil, err
	}

	summary := &CourseProgressSummary{
		CourseID:          courseID,
		TotalChapters:     int(total),
		CompletedChapters: int(completed),
	}
	if total > 0 {
		summary.Percentage = float64(completed) / float64(total) * 100
	}
	return summary, nil
}

// ResetProgress 管理端重开章节：清完成态与锁定，成绩历史保留
func (s *ProgressService) ResetProgress(progressID uint) error {
	if _, err := s.ProgressRepo.FindByID(progressID); err != nil {
		return err
	}
	return s.ProgressRepo.Reset(progressID)
}
