package controller

import (
	"strconv"

	"maintech_backend/internal/service"
	"maintech_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// ListUsers godoc
// @Summary 用户列表（管理端）
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Param   role query string false "角色过滤"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	role := ctx.Query("role")

	users, total, err := c.UserService.ListUsers(page, limit, role)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

type SetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// SetDisabled godoc
// @Summary 禁用/启用用户（管理端）
// @Tags 用户管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   body body SetDisabledRequest true "禁用状态"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/disabled [put]
func (c *UserController) SetDisabled(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	var body SetDisabledRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetDisabled(uint(id), body.Disabled); err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, nil)
}
