package service

import (
	"testing"

	"maintech_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateRequiresFullCompletion(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "cert@test.dev")
	course := env.createCourse(t, "cert")
	ch1 := env.createChapter(t, course.ID, 1)
	ch2 := env.createChapter(t, course.ID, 2)
	enroll(t, env, user.ID, course.ID)

	_, err := env.progress.MarkChapterRead(user.ID, ch1.ID)
	require.NoError(t, err)

	_, err = env.repos.certificate.FindByUserAndCourse(user.ID, course.ID)
	assert.Error(t, err, "certificate issued before course completion")

	_, err = env.progress.MarkChapterRead(user.ID, ch2.ID)
	require.NoError(t, err)

	cert, err := env.repos.certificate.FindByUserAndCourse(user.ID, course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Code)
	assert.False(t, cert.IssuedAt.IsZero())
}

func TestCertificateRequiresActiveEnrollment(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "cert-noenroll@test.dev")
	course := env.createCourse(t, "cert-noenroll")
	chapter := env.createChapter(t, course.ID, 1)

	// 直接写完成态绕过入口校验，验证签发侧自身也会拦截未报名用户
	progress, err := env.repos.progress.Ensure(user.ID, chapter.ID)
	require.NoError(t, err)
	progress.IsCompleted = true
	require.NoError(t, env.repos.progress.Update(progress))

	require.NoError(t, env.certificate.IssueIfEligible(user.ID, course.ID))

	_, err = env.repos.certificate.FindByUserAndCourse(user.ID, course.ID)
	assert.Error(t, err, "certificate issued without enrollment")
}

func TestCertificateIssueIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "cert-idem@test.dev")
	course := env.createCourse(t, "cert-idem")
	chapter := env.createChapter(t, course.ID, 1)
	enroll(t, env, user.ID, course.ID)

	_, err := env.progress.MarkChapterRead(user.ID, chapter.ID)
	require.NoError(t, err)

	first, err := env.repos.certificate.FindByUserAndCourse(user.ID, course.ID)
	require.NoError(t, err)

	// 重复触发不会生成第二张证书，也不会换码
	require.NoError(t, env.certificate.IssueIfEligible(user.ID, course.ID))

	second, err := env.repos.certificate.FindByUserAndCourse(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)

	var count int64
	require.NoError(t, env.db.Model(&model.Certificate{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCertificateIssuedAfterPassingQuiz(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "cert-quiz@test.dev")
	course := env.createCourse(t, "cert-quiz")
	chapter := env.createChapter(t, course.ID, 1)
	env.createQuestionGroup(t, chapter.ID, 5)
	enroll(t, env, user.ID, course.ID)

	view, err := env.quiz.StartQuiz(user.ID, chapter.ID)
	require.NoError(t, err)

	key := env.answerKey(t, chapter.ID)
	answers := make(map[uint]uint)
	for _, q := range view.Questions {
		answers[q.ID] = key[q.ID]
	}
	result, err := env.quiz.SubmitQuiz(user.ID, view.SessionID, QuizSubmissionReq{Answers: answers})
	require.NoError(t, err)
	require.True(t, result.Approved)

	cert, err := env.repos.certificate.FindByUserAndCourse(user.ID, course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Code)
}

func TestVerifyCertificate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "verify@test.dev")
	course := env.createCourse(t, "verify")
	chapter := env.createChapter(t, course.ID, 1)
	enroll(t, env, user.ID, course.ID)

	_, err := env.progress.MarkChapterRead(user.ID, chapter.ID)
	require.NoError(t, err)

	cert, err := env.repos.certificate.FindByUserAndCourse(user.ID, course.ID)
	require.NoError(t, err)

	info, err := env.certificate.Verify(cert.Code)
	require.NoError(t, err)
	assert.Equal(t, user.Name, info.HolderName)
	assert.Equal(t, course.Title, info.CourseTitle)
	assert.Equal(t, cert.Code, info.Code)

	_, err = env.certificate.Verify("no-such-code")
	assert.Error(t, err)
}
