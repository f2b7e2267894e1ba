package service

import (
	"fmt"
	"testing"

	"maintech_backend/internal/config"
	"maintech_backend/internal/model"
	"maintech_backend/internal/repository"
	"maintech_backend/pkg/database"
	"maintech_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.InitTestLogger()
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Quiz.ApplyDefaults()
	return cfg
}

type testEnv struct {
	db   *gorm.DB
	cfg  *config.Config
	repos struct {
		user        *repository.UserRepository
		course      *repository.CourseRepository
		quiz        *repository.QuizRepository
		progress    *repository.ProgressRepository
		order       *repository.OrderRepository
		certificate *repository.CertificateRepository
	}
	quiz        *QuizService
	progress    *ProgressService
	certificate *CertificateService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:  setupTestDB(t),
		cfg: testConfig(),
	}
	env.repos.user = repository.NewUserRepository(env.db)
	env.repos.course = repository.NewCourseRepository(env.db)
	env.repos.quiz = repository.NewQuizRepository(env.db)
	env.repos.progress = repository.NewProgressRepository(env.db)
	env.repos.order = repository.NewOrderRepository(env.db)
	env.repos.certificate = repository.NewCertificateRepository(env.db)

	email := NewEmailService(&env.cfg.Email)
	env.certificate = NewCertificateService(
		env.repos.certificate,
		env.repos.progress,
		env.repos.course,
		env.repos.order,
		env.repos.user,
		email,
	)
	env.quiz = NewQuizService(env.repos.quiz, env.repos.progress, env.repos.course, env.repos.order, env.certificate, env.cfg)
	env.progress = NewProgressService(env.repos.progress, env.repos.course, env.repos.quiz, env.repos.order, env.certificate)
	return env
}

// enroll 开通有效报名，测验与进度入口都以此为前置条件
func enroll(t *testing.T, env *testEnv, userID, courseID uint) {
	t.Helper()
	require.NoError(t, env.repos.order.CreateEnrollment(&model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Active:   true,
	}))
}

func (env *testEnv) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Name: "Test User", Email: email, Password: "hashed", Role: model.Student}
	require.NoError(t, env.repos.user.Create(user))
	return user
}

func (env *testEnv) createCourse(t *testing.T, slug string) *model.Course {
	t.Helper()
	course := &model.Course{
		Title:       "Mantenimiento Industrial",
		Slug:        slug,
		Price:       100,
		Currency:    "PEN",
		IsPublished: true,
	}
	require.NoError(t, env.repos.course.CreateCourse(course))
	return course
}

func (env *testEnv) createChapter(t *testing.T, courseID uint, position int) *model.Chapter {
	t.Helper()
	chapter := &model.Chapter{
		CourseID: courseID,
		Title:    fmt.Sprintf("Capítulo %d", position),
		Order:    position,
	}
	require.NoError(t, env.repos.course.CreateChapter(chapter))
	return chapter
}

// createQuestionGroup 建一个题组，每道题四个选项，第一个选项为正确答案
func (env *testEnv) createQuestionGroup(t *testing.T, chapterID uint, questionCount int) *model.QuestionGroup {
	t.Helper()
	group := &model.QuestionGroup{ChapterID: chapterID, Title: "Evaluación"}
	for i := 0; i < questionCount; i++ {
		question := model.Question{Content: fmt.Sprintf("Pregunta %d", i+1)}
		for j := 0; j < 4; j++ {
			question.Answers = append(question.Answers, model.Answer{
				Content:   fmt.Sprintf("Opción %d", j+1),
				IsCorrect: j == 0,
			})
		}
		group.Questions = append(group.Questions, question)
	}
	require.NoError(t, env.repos.quiz.CreateGroup(group))
	return group
}

// answerKey 返回 questionId -> 正确answerId 的映射
func (env *testEnv) answerKey(t *testing.T, chapterID uint) map[uint]uint {
	t.Helper()
	groups, err := env.repos.quiz.ListGroupsWithQuestions(chapterID)
	require.NoError(t, err)

	key := make(map[uint]uint)
	for _, g := range groups {
		for _, q := range g.Questions {
			for _, a := range q.Answers {
				if a.IsCorrect {
					key[q.ID] = a.ID
				}
			}
		}
	}
	return key
}

// wrongKey 返回 questionId -> 错误answerId 的映射
func (env *testEnv) wrongKey(t *testing.T, chapterID uint) map[uint]uint {
	t.Helper()
	groups, err := env.repos.quiz.ListGroupsWithQuestions(chapterID)
	require.NoError(t, err)

	key := make(map[uint]uint)
	for _, g := range groups {
		for _, q := range g.Questions {
			for _, a := range q.Answers {
				if !a.IsCorrect {
					key[q.ID] = a.ID
					break
				}
			}
		}
	}
	return key
}
