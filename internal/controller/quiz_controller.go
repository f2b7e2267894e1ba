package controller

import (
	"errors"
	"strconv"

	"maintech_backend/internal/service"
	"maintech_backend/internal/util"
	"maintech_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// GetStatus godoc
// @Summary 章节测验状态
// @Description 返回 available / in_progress / completed / locked 与历史成绩
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   chapterId path int true "章节ID"
// @Success 200 {object} util.Response{data=service.QuizStatus} "成功"
// @Failure 403 {object} util.Response "未报名该课程"
// @Failure 404 {object} util.Response "章节不存在"
// @Router /api/chapters/{chapterId}/quiz [get]
func (c *QuizController) GetStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	chapterID, err := strconv.ParseUint(ctx.Param("chapterId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的章节ID")
		return
	}

	status, err := c.QuizService.GetStatus(claims.UserID, uint(chapterID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrChapterNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotEnrolled):
			util.Error(ctx, 403, "未报名该课程")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, status)
}

// StartQuiz godoc
// @Summary 开始答题
// @Description 抽题并创建会话。已有未交卷的会话时续用原会话，不重置计时。
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   chapterId path int true "章节ID"
// @Success 200 {object} util.Response{data=service.QuizSessionView} "成功"
// @Failure 403 {object} util.Response "未报名、已通过或处于锁定期"
// @Failure 404 {object} util.Response "章节不存在或无题目"
// @Router /api/chapters/{chapterId}/quiz/start [post]
func (c *QuizController) StartQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	chapterID, err := strconv.ParseUint(ctx.Param("chapterId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的章节ID")
		return
	}

	view, err := c.QuizService.StartQuiz(claims.UserID, uint(chapterID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrChapterNotFound), errors.Is(err, util.ErrChapterHasNoQuiz):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotEnrolled):
			util.Error(ctx, 403, "未报名该课程")
		case errors.Is(err, util.ErrQuizCompleted):
			util.Error(ctx, 403, "测验已通过，不能重复作答")
		case errors.Is(err, util.ErrQuizLocked):
			util.Error(ctx, 403, "连续失败次数过多，测验已锁定")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, view)
}

// SubmitQuiz godoc
// @Summary 交卷
// @Description 按会话抽题计分。超时提交按已选答案计分，未答题目记错。
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "会话ID"
// @Param   body body service.QuizSubmissionReq true "答案映射 questionId -> answerId"
// @Success 200 {object} util.Response{data=service.QuizResult} "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Failure 409 {object} util.Response "会话已交卷"
// @Router /api/quiz/sessions/{sessionId}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	sessionID := ctx.Param("sessionId")

	var req service.QuizSubmissionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.SubmitQuiz(claims.UserID, sessionID, req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrSessionSubmitted):
			util.Conflict(ctx, "该会话已交卷")
		case errors.Is(err, util.ErrQuizCompleted):
			util.Conflict(ctx, "测验已通过，不能重复作答")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	outcome := "failed"
	switch {
	case result.TimedOut:
		outcome = "timeout"
	case result.Approved:
		outcome = "approved"
	}
	monitoring.QuizSubmissionCounter.WithLabelValues(outcome).Inc()

	util.Success(ctx, result)
}
