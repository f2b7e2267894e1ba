package controller

import (
	"errors"
	"strconv"

	"maintech_backend/internal/model"
	"maintech_backend/internal/service"
	"maintech_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService  *service.CourseService
	PaymentService *service.PaymentService
}

func NewCourseController(courseService *service.CourseService, paymentService *service.PaymentService) *CourseController {
	return &CourseController{CourseService: courseService, PaymentService: paymentService}
}

// ListCategories godoc
// @Summary 分类列表
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Category} "成功"
// @Router /api/categories [get]
func (c *CourseController) ListCategories(ctx *gin.Context) {
	categories, err := c.CourseService.ListCategories()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}

// ListPublished godoc
// @Summary 公开课程目录
// @Description 返回全部已发布课程，带缓存
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListPublished(ctx *gin.Context) {
	courses, err := c.CourseService.ListPublished(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetBySlug godoc
// @Summary 课程详情
// @Description 未报名用户只能看到免费章节的正文
// @Tags 课程
// @Produce  json
// @Param   slug path string true "课程slug"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{slug} [get]
func (c *CourseController) GetBySlug(ctx *gin.Context) {
	slug := ctx.Param("slug")

	enrolled := false
	if claims := util.GetUserFromContext(ctx); claims != nil {
		if course, err := c.CourseService.CourseRepo.FindCourseBySlug(slug); err == nil {
			enrolled = c.PaymentService.IsEnrolled(claims.UserID, course.ID)
		}
	}

	course, err := c.CourseService.GetBySlug(slug, enrolled)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, course)
}

// ListCourses godoc
// @Summary 课程分页列表（管理端）
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Param   categoryId query int false "分类ID"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/admin/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	categoryID, _ := strconv.ParseUint(ctx.DefaultQuery("categoryId", "0"), 10, 64)

	courses, total, err := c.CourseService.ListCourses(page, limit, uint(categoryID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// CreateCategory godoc
// @Summary 创建分类
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body model.Category true "分类信息"
// @Success 201 {object} util.Response{data=model.Category} "创建成功"
// @Router /api/admin/categories [post]
func (c *CourseController) CreateCategory(ctx *gin.Context) {
	var cat model.Category
	if err := ctx.ShouldBindJSON(&cat); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.CourseService.CreateCategory(&cat); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, cat)
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/admin/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(claims.UserID, &req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/admin/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的课程ID")
		return
	}

	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.UpdateCourse(ctx.Request.Context(), uint(id), &req)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, course)
}

type PublishRequest struct {
	Published bool `json:"published"`
}

// SetPublished godoc
// @Summary 上架/下架课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body PublishRequest true "发布状态"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Router /api/admin/courses/{id}/publish [put]
func (c *CourseController) SetPublished(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的课程ID")
		return
	}

	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.SetPublished(ctx.Request.Context(), uint(id), req.Published)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Description 级联删除章节、题组与进度
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的课程ID")
		return
	}

	if err := c.CourseService.DeleteCourse(ctx.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// UploadThumbnail godoc
// @Summary 上传课程缩略图
// @Tags 课程管理
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   file formData file true "图片文件"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Router /api/admin/courses/{id}/thumbnail [post]
func (c *CourseController) UploadThumbnail(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的课程ID")
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少文件")
		return
	}

	course, err := c.CourseService.UploadThumbnail(ctx.Request.Context(), uint(id), file)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, course)
}

// CreateChapter godoc
// @Summary 创建章节
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body service.ChapterRequest true "章节信息"
// @Success 201 {object} util.Response{data=model.Chapter} "创建成功"
// @Router /api/admin/courses/{id}/chapters [post]
func (c *CourseController) CreateChapter(ctx *gin.Context) {
	courseID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的课程ID")
		return
	}

	var req service.ChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	chapter, err := c.CourseService.CreateChapter(uint(courseID), &req)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, chapter)
}

// UpdateChapter godoc
// @Summary 更新章节
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   chapterId path int true "章节ID"
// @Param   body body service.ChapterRequest true "章节信息"
// @Success 200 {object} util.Response{data=model.Chapter} "成功"
// @Router /api/admin/chapters/{chapterId} [put]
func (c *CourseController) UpdateChapter(ctx *gin.Context) {
	chapterID, err := strconv.ParseUint(ctx.Param("chapterId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的章节ID")
		return
	}

	var req service.ChapterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	chapter, err := c.CourseService.UpdateChapter(uint(chapterID), &req)
	if err != nil {
		if errors.Is(err, util.ErrChapterNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, chapter)
}

// DeleteChapter godoc
// @Summary 删除章节
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   chapterId path int true "章节ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/chapters/{chapterId} [delete]
func (c *CourseController) DeleteChapter(ctx *gin.Context) {
	chapterID, err := strconv.ParseUint(ctx.Param("chapterId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的章节ID")
		return
	}

	if err := c.CourseService.DeleteChapter(uint(chapterID)); err != nil {
		if errors.Is(err, util.ErrChapterNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// CreateQuestionGroup godoc
// @Summary 创建章节题组
// @Description 整组写入题目与选项，每道题必须恰好一个正确选项
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   chapterId path int true "章节ID"
// @Param   body body service.QuestionGroupRequest true "题组"
// @Success 201 {object} util.Response{data=model.QuestionGroup} "创建成功"
// @Failure 400 {object} util.Response "正确选项数量不合法"
// @Router /api/admin/chapters/{chapterId}/question-groups [post]
func (c *CourseController) CreateQuestionGroup(ctx *gin.Context) {
	chapterID, err := strconv.ParseUint(ctx.Param("chapterId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的章节ID")
		return
	}

	var req service.QuestionGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	group, err := c.CourseService.CreateQuestionGroup(uint(chapterID), &req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrChapterNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrCorrectAnswerCount):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, group)
}

// DeleteQuestionGroup godoc
// @Summary 删除题组
// @Tags 课程管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   groupId path int true "题组ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/question-groups/{groupId} [delete]
func (c *CourseController) DeleteQuestionGroup(ctx *gin.Context) {
	groupID, err := strconv.ParseUint(ctx.Param("groupId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的题组ID")
		return
	}

	if err := c.CourseService.DeleteQuestionGroup(uint(groupID)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
