package controller

import (
	"errors"
	"strconv"

	"maintech_backend/internal/service"
	"maintech_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// SyncProgress godoc
// @Summary 同步课程进度
// @Description 为课程的每个章节补齐进度记录后返回完整列表，重复调用幂等
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.UserProgress} "成功"
// @Failure 403 {object} util.Response "未报名该课程"
// @Router /api/progress/courses/{courseId}/sync [post]
func (c *ProgressController) SyncProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, err := strconv.ParseUint(ctx.Param("courseId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的课程ID")
		return
	}

	progress, err := c.ProgressService.SyncCourseProgress(claims.UserID, uint(courseID))
	if err != nil {
		if errors.Is(err, util.ErrNotEnrolled) {
			util.Error(ctx, 403, "未报名该课程")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, progress)
}

// MarkRead godoc
// @Summary 标记章节已读
// @Description 仅限没有测验的章节，带测验的章节必须通过测验才算完成
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   chapterId path int true "章节ID"
// @Success 200 {object} util.Response{data=model.UserProgress} "成功"
// @Failure 403 {object} util.Response "未报名该课程"
// @Failure 409 {object} util.Response "章节带测验"
// @Router /api/progress/chapters/{chapterId}/read [post]
func (c *ProgressController) MarkRead(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	chapterID, err := strconv.ParseUint(ctx.Param("chapterId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的章节ID")
		return
	}

	progress, err := c.ProgressService.MarkChapterRead(claims.UserID, uint(chapterID))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrChapterNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotEnrolled):
			util.Error(ctx, 403, "未报名该课程")
		case errors.Is(err, util.ErrChapterHasQuiz):
			util.Conflict(ctx, "该章节需要通过测验才能完成")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, progress)
}

// GetSummary godoc
// @Summary 课程完成度
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgressSummary} "成功"
// @Router /api/progress/courses/{courseId}/summary [get]
func (c *ProgressController) GetSummary(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, err := strconv.ParseUint(ctx.Param("courseId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的课程ID")
		return
	}

	summary, err := c.ProgressService.GetCourseSummary(claims.UserID, uint(courseID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// ResetProgress godoc
// @Summary 重置章节进度（管理端）
// @Description 清除完成态与锁定，保留历史成绩
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   progressId path int true "进度记录ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/admin/progress/{progressId}/reset [post]
func (c *ProgressController) ResetProgress(ctx *gin.Context) {
	progressID, err := strconv.ParseUint(ctx.Param("progressId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的进度ID")
		return
	}

	if err := c.ProgressService.ResetProgress(uint(progressID)); err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, nil)
}
