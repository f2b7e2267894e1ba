package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"

	"maintech_backend/internal/model"
	"maintech_backend/internal/repository"
	"maintech_backend/internal/util"
	"maintech_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const catalogCacheTTL = 5 * time.Minute

// CourseService 课程目录与管理端维护。公开目录走 Redis 缓存，写操作负责失效。
type CourseService struct {
	CourseRepo *repository.CourseRepository
	QuizRepo   *repository.QuizRepository
	Storage    *StorageService
	Redis      *redis.Client
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	quizRepo *repository.QuizRepository,
	storage *StorageService,
	rdb *redis.Client,
) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		QuizRepo:   quizRepo,
		Storage:    storage,
		Redis:      rdb,
	}
}

func (s *CourseService) ListCategories() ([]model.Category, error) {
	return s.CourseRepo.ListCategories()
}

func (s *CourseService) CreateCategory(cat *model.Category) error {
	return s.CourseRepo.CreateCategory(cat)
}

// ListPublished 公开目录，缓存未命中时回源并写缓存
func (s *CourseService) ListPublished(ctx context.Context) ([]model.Course, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, util.CacheKeyPublishedCourses).Result()
		if err == nil {
			var courses []model.Course
			if err := json.Unmarshal([]byte(cached), &courses); err == nil {
				return courses, nil
			}
		}
	}

	courses, err := s.CourseRepo.ListPublishedCourses()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(courses); err == nil {
			s.Redis.Set(ctx, util.CacheKeyPublishedCourses, data, catalogCacheTTL)
		}
	}
	return courses, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, util.CacheKeyPublishedCourses).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}

// GetBySlug 课程详情。未报名用户只能看到免费章节的正文，其余章节只保留标题。
func (s *CourseService) GetBySlug(slug string, enrolled bool) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourseBySlug(slug)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotPublished
	}

	if !enrolled {
		for i := range course.Chapters {
			if !course.Chapters[i].IsFree {
				course.Chapters[i].Content = nil
			}
		}
	}
	return course, nil
}

func (s *CourseService) GetByID(id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourseByID(id)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

func (s *CourseService) ListCourses(page, limit int, categoryID uint) ([]model.Course, int64, error) {
	return s.CourseRepo.ListCourses(page, limit, categoryID)
}

type CourseRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Slug        string     `json:"slug" binding:"required,max=255"`
	Description string     `json:"description"`
	Price       float64    `json:"price" binding:"gte=0"`
	Currency    string     `json:"currency" binding:"omitempty,len=3"`
	CategoryID  uint       `json:"categoryId" binding:"required"`
	PublishAt   *time.Time `json:"publishAt"`
}

func (s *CourseService) CreateCourse(instructorID uint, req *CourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		Price:        req.Price,
		Currency:     req.Currency,
		CategoryID:   req.CategoryID,
		InstructorID: instructorID,
		PublishAt:    req.PublishAt,
	}
	if course.Currency == "" {
		course.Currency = "PEN"
	}
	if err := s.CourseRepo.CreateCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, id uint, req *CourseRequest) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourseByID(id)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}

	course.Title = req.Title
	course.Slug = req.Slug
	course.Description = req.Description
	course.Price = req.Price
	course.CategoryID = req.CategoryID
	course.PublishAt = req.PublishAt
	if req.Currency != "" {
		course.Currency = req.Currency
	}

	if err := s.CourseRepo.UpdateCourse(course); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// SetPublished 上下架课程。下架不影响已报名用户的学习进度。
func (s *CourseService) SetPublished(ctx context.Context, id uint, published bool) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourseByID(id)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}
	course.IsPublished = published
	if err := s.CourseRepo.UpdateCourse(course); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, id uint) error {
	if _, err := s.CourseRepo.FindCourseByID(id); err != nil {
		return util.ErrCourseNotFound
	}
	if err := s.CourseRepo.DeleteCourse(id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// UploadThumbnail 缩略图上传，文件名用 UUID 防覆盖
func (s *CourseService) UploadThumbnail(ctx context.Context, id uint, file *multipart.FileHeader) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourseByID(id)
	if err != nil {
		return nil, util.ErrCourseNotFound
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	filename := fmt.Sprintf("thumbnails/%s%s", uuid.New().String(), filepath.Ext(file.Filename))
	url, err := s.uploadStream(ctx, filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	course.Thumbnail = url
	if err := s.CourseRepo.UpdateCourse(course); err != nil {
		return nil, err
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

func (s *CourseService) uploadStream(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	return s.Storage.Upload(ctx, filename, reader, size, contentType)
}

type ChapterRequest struct {
	Title   string          `json:"title" binding:"required,max=255"`
	Order   int             `json:"order"`
	Content json.RawMessage `json:"content"`
	IsFree  bool            `json:"isFree"`
}

func (s *CourseService) CreateChapter(courseID uint, req *ChapterRequest) (*model.Chapter, error) {
	if _, err := s.CourseRepo.FindCourseByID(courseID); err != nil {
		return nil, util.ErrCourseNotFound
	}

	chapter := &model.Chapter{
		CourseID: courseID,
		Title:    req.Title,
		Order:    req.Order,
		Content:  req.Content,
		IsFree:   req.IsFree,
	}
	if err := s.CourseRepo.CreateChapter(chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

func (s *CourseService) UpdateChapter(chapterID uint, req *ChapterRequest) (*model.Chapter, error) {
	chapter, err := s.CourseRepo.FindChapterByID(chapterID)
	if err != nil {
		return nil, util.ErrChapterNotFound
	}

	chapter.Title = req.Title
	chapter.Order = req.Order
	chapter.Content = req.Content
	chapter.IsFree = req.IsFree

	if err := s.CourseRepo.UpdateChapter(chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

func (s *CourseService) DeleteChapter(chapterID uint) error {
	if _, err := s.CourseRepo.FindChapterByID(chapterID); err != nil {
		return util.ErrChapterNotFound
	}
	return s.CourseRepo.DeleteChapter(chapterID)
}

type AnswerInput struct {
	Content   string `json:"content" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionInput struct {
	Content string        `json:"content" binding:"required"`
	Answers []AnswerInput `json:"answers" binding:"required,min=2"`
}

type QuestionGroupRequest struct {
	Title     string          `json:"title" binding:"max=255"`
	Questions []QuestionInput `json:"questions" binding:"required,min=1"`
}

// CreateQuestionGroup 整组写入，每道题必须恰好一个正确选项
func (s *CourseService) CreateQuestionGroup(chapterID uint, req *QuestionGroupRequest) (*model.QuestionGroup, error) {
	if _, err := s.CourseRepo.FindChapterByID(chapterID); err != nil {
		return nil, util.ErrChapterNotFound
	}

	group := &model.QuestionGroup{
		ChapterID: chapterID,
		Title:     req.Title,
	}
	for _, q := range req.Questions {
		question := model.Question{Content: q.Content}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, model.Answer{
				Content:   a.Content,
				IsCorrect: a.IsCorrect,
			})
		}
		if err := ValidateQuestionAnswers(question.Answers); err != nil {
			return nil, err
		}
		group.Questions = append(group.Questions, question)
	}

	if err := s.QuizRepo.CreateGroup(group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *CourseService) DeleteQuestionGroup(groupID uint) error {
	return s.QuizRepo.DeleteGroup(groupID)
}

// ProcessScheduledPublishes 定时任务入口：把 publish_at 已到期的课程置为已发布
func (s *CourseService) ProcessScheduledPublishes(ctx context.Context) {
	count, err := s.CourseRepo.PublishScheduled(time.Now())
	if err != nil {
		logger.Log.Error("Scheduled publish sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		logger.Log.Info("Published scheduled courses", zap.Int64("count", count))
		s.invalidateCatalog(ctx)
	}
}
