package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrCourseNotFound     = errors.New("course not found")
	ErrCourseNotPublished = errors.New("course not published")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrChapterHasNoQuiz   = errors.New("chapter has no quiz")
	ErrChapterHasQuiz     = errors.New("chapter requires passing its quiz")
	ErrQuizCompleted      = errors.New("quiz already completed")
	ErrQuizLocked         = errors.New("quiz attempts locked")
	ErrSessionNotFound    = errors.New("quiz session not found")
	ErrSessionSubmitted   = errors.New("quiz session already submitted")
	ErrNotEnrolled        = errors.New("user not enrolled in course")
	ErrAlreadyEnrolled    = errors.New("user already enrolled in course")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrCorrectAnswerCount = errors.New("每道题必须恰好有一个正确选项")
	ErrCertNotFound       = errors.New("certificate not found")
	ErrCertNotEligible    = errors.New("course not fully completed")
)
