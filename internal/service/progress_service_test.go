package service

import (
	"testing"

	"maintech_backend/internal/model"
	"maintech_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCreatesOneRecordPerChapter(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "sync@test.dev")
	course := env.createCourse(t, "sync")
	enroll(t, env, user.ID, course.ID)
	env.createChapter(t, course.ID, 1)
	env.createChapter(t, course.ID, 2)
	env.createChapter(t, course.ID, 3)

	list, err := env.progress.SyncCourseProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	for _, p := range list {
		assert.False(t, p.IsCompleted)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "sync-idem@test.dev")
	course := env.createCourse(t, "sync-idem")
	enroll(t, env, user.ID, course.ID)
	env.createChapter(t, course.ID, 1)
	env.createChapter(t, course.ID, 2)

	_, err := env.progress.SyncCourseProgress(user.ID, course.ID)
	require.NoError(t, err)
	list, err := env.progress.SyncCourseProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// 数据库里每个 (用户, 章节) 只有一行
	var count int64
	require.NoError(t, env.db.Model(&model.UserProgress{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSyncPreservesExistingProgress(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "sync-keep@test.dev")
	course := env.createCourse(t, "sync-keep")
	enroll(t, env, user.ID, course.ID)
	chapter := env.createChapter(t, course.ID, 1)
	env.createChapter(t, course.ID, 2)

	_, err := env.progress.MarkChapterRead(user.ID, chapter.ID)
	require.NoError(t, err)

	list, err := env.progress.SyncCourseProgress(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsCompleted)
	assert.False(t, list[1].IsCompleted)
}

func TestMarkReadRejectsChapterWithQuiz(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "mark-quiz@test.dev")
	course := env.createCourse(t, "mark-quiz")
	enroll(t, env, user.ID, course.ID)
	chapter := env.createChapter(t, course.ID, 1)
	env.createQuestionGroup(t, chapter.ID, 3)

	_, err := env.progress.MarkChapterRead(user.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrChapterHasQuiz)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "mark-idem@test.dev")
	course := env.createCourse(t, "mark-idem")
	enroll(t, env, user.ID, course.ID)
	chapter := env.createChapter(t, course.ID, 1)

	first, err := env.progress.MarkChapterRead(user.ID, chapter.ID)
	require.NoError(t, err)
	assert.True(t, first.IsCompleted)

	second, err := env.progress.MarkChapterRead(user.ID, chapter.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCourseSummary(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "summary@test.dev")
	course := env.createCourse(t, "summary")
	enroll(t, env, user.ID, course.ID)
	ch1 := env.createChapter(t, course.ID, 1)
	env.createChapter(t, course.ID, 2)

	_, err := env.progress.MarkChapterRead(user.ID, ch1.ID)
	require.NoError(t, err)

	summary, err := env.progress.GetCourseSummary(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalChapters)
	assert.Equal(t, 1, summary.CompletedChapters)
	assert.InDelta(t, 50.0, summary.Percentage, 0.001)
}

func TestResetProgressKeepsAttemptHistory(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reset@test.dev")
	course := env.createCourse(t, "reset")
	enroll(t, env, user.ID, course.ID)
	chapter := env.createChapter(t, course.ID, 1)
	env.createQuestionGroup(t, chapter.ID, 5)

	failOnce(t, env, user.ID, chapter.ID)
	failOnce(t, env, user.ID, chapter.ID)
	failOnce(t, env, user.ID, chapter.ID) // 触发锁定

	progress, err := env.repos.progress.FindByUserAndChapter(user.ID, chapter.ID)
	require.NoError(t, err)
	require.NotNil(t, progress.LockedUntil)

	require.NoError(t, env.progress.ResetProgress(progress.ID))

	after, err := env.repos.progress.FindByID(progress.ID)
	require.NoError(t, err)
	assert.Nil(t, after.LockedUntil)
	assert.False(t, after.IsCompleted)
	assert.Equal(t, 0, after.FailedStreak)
	// 成绩历史保留
	assert.Len(t, after.Attempts, 3)

	// 重置后可立即重考
	_, err = env.quiz.StartQuiz(user.ID, chapter.ID)
	assert.NoError(t, err)
}

func TestProgressRequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "outsider-progress@test.dev")
	course := env.createCourse(t, "progress-gate")
	chapter := env.createChapter(t, course.ID, 1)

	_, err := env.progress.SyncCourseProgress(user.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
	_, err = env.progress.MarkChapterRead(user.ID, chapter.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	// 未报名时不会偷偷建出进度行
	var count int64
	require.NoError(t, env.db.Model(&model.UserProgress{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)

	enroll(t, env, user.ID, course.ID)
	list, err := env.progress.SyncCourseProgress(user.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
