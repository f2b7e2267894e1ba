package service

import (
	"context"
	"testing"
	"time"

	"maintech_backend/internal/config"
	"maintech_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourseEnv(t *testing.T) (*testEnv, *CourseService) {
	t.Helper()
	env := newTestEnv(t)

	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()
	storage := NewStorageService(cfg)

	// 测试不走 Redis，缓存分支按未命中处理
	courses := NewCourseService(env.repos.course, env.repos.quiz, storage, nil)
	return env, courses
}

func TestCatalogOnlyListsPublishedCourses(t *testing.T) {
	env, courses := newCourseEnv(t)

	env.createCourse(t, "published-course")
	draft := env.createCourse(t, "draft-course")
	draft.IsPublished = false
	require.NoError(t, env.repos.course.UpdateCourse(draft))

	list, err := courses.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "published-course", list[0].Slug)
}

func TestCourseDetailGatesChapterContent(t *testing.T) {
	env, courses := newCourseEnv(t)

	course := env.createCourse(t, "gated")
	free := env.createChapter(t, course.ID, 1)
	free.IsFree = true
	free.Content = []byte(`{"type":"doc"}`)
	require.NoError(t, env.repos.course.UpdateChapter(free))

	paid := env.createChapter(t, course.ID, 2)
	paid.Content = []byte(`{"type":"doc"}`)
	require.NoError(t, env.repos.course.UpdateChapter(paid))

	// 未报名：付费章节正文被剥离，免费章节保留
	detail, err := courses.GetBySlug("gated", false)
	require.NoError(t, err)
	require.Len(t, detail.Chapters, 2)
	assert.NotEmpty(t, detail.Chapters[0].Content)
	assert.Empty(t, detail.Chapters[1].Content)

	// 已报名：全部可见
	full, err := courses.GetBySlug("gated", true)
	require.NoError(t, err)
	assert.NotEmpty(t, full.Chapters[1].Content)
}

func TestCourseDetailRejectsUnpublished(t *testing.T) {
	env, courses := newCourseEnv(t)

	course := env.createCourse(t, "hidden-course")
	course.IsPublished = false
	require.NoError(t, env.repos.course.UpdateCourse(course))

	_, err := courses.GetBySlug("hidden-course", false)
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)
}

func TestCreateQuestionGroupValidatesAnswers(t *testing.T) {
	env, courses := newCourseEnv(t)
	course := env.createCourse(t, "validation")
	chapter := env.createChapter(t, course.ID, 1)

	req := &QuestionGroupRequest{
		Title: "Inválido",
		Questions: []QuestionInput{{
			Content: "¿Pregunta sin respuesta correcta?",
			Answers: []AnswerInput{
				{Content: "a"},
				{Content: "b"},
			},
		}},
	}

	_, err := courses.CreateQuestionGroup(chapter.ID, req)
	assert.ErrorIs(t, err, util.ErrCorrectAnswerCount)

	req.Questions[0].Answers[0].IsCorrect = true
	group, err := courses.CreateQuestionGroup(chapter.ID, req)
	require.NoError(t, err)
	assert.NotZero(t, group.ID)
}

func TestScheduledPublish(t *testing.T) {
	env, courses := newCourseEnv(t)

	due := env.createCourse(t, "due-course")
	past := time.Now().Add(-time.Minute)
	due.IsPublished = false
	due.PublishAt = &past
	require.NoError(t, env.repos.course.UpdateCourse(due))

	notYet := env.createCourse(t, "future-course")
	future := time.Now().Add(time.Hour)
	notYet.IsPublished = false
	notYet.PublishAt = &future
	require.NoError(t, env.repos.course.UpdateCourse(notYet))

	courses.ProcessScheduledPublishes(context.Background())

	published, err := env.repos.course.FindCourseByID(due.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)

	still, err := env.repos.course.FindCourseByID(notYet.ID)
	require.NoError(t, err)
	assert.False(t, still.IsPublished)
}

func TestDeleteCourseCascades(t *testing.T) {
	env, courses := newCourseEnv(t)

	course := env.createCourse(t, "cascade")
	chapter := env.createChapter(t, course.ID, 1)
	env.createQuestionGroup(t, chapter.ID, 3)

	require.NoError(t, courses.DeleteCourse(context.Background(), course.ID))

	_, err := env.repos.course.FindCourseByID(course.ID)
	assert.Error(t, err)
	_, err = env.repos.course.FindChapterByID(chapter.ID)
	assert.Error(t, err)
}
