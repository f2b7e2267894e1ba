package controller

import (
	"errors"
	"io"

	"maintech_backend/internal/service"
	"maintech_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	PaymentService *service.PaymentService
}

func NewOrderController(paymentService *service.PaymentService) *OrderController {
	return &OrderController{PaymentService: paymentService}
}

type CheckoutRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
}

// Checkout godoc
// @Summary 购买课程
// @Description 免费课程直接开通报名，付费课程返回支付跳转地址
// @Tags 订单
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CheckoutRequest true "课程ID"
// @Success 201 {object} util.Response{data=service.CheckoutResult} "创建成功"
// @Failure 404 {object} util.Response "课程不存在或未发布"
// @Failure 409 {object} util.Response "已报名该课程"
// @Router /api/checkout [post]
func (c *OrderController) Checkout(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.PaymentService.Checkout(claims.UserID, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrCourseNotFound), errors.Is(err, util.ErrCourseNotPublished):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrAlreadyEnrolled):
			util.Conflict(ctx, "已报名该课程")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, result)
}

// Webhook godoc
// @Summary 支付网关回调
// @Description 校验签名后按订单落账，重复回调幂等
// @Tags 订单
// @Accept  json
// @Produce  json
// @Param   X-Signature header string true "HMAC-SHA256 签名"
// @Success 200 {object} util.Response "成功"
// @Failure 401 {object} util.Response "签名无效"
// @Failure 404 {object} util.Response "订单不存在"
// @Router /api/payments/webhook [post]
func (c *OrderController) Webhook(ctx *gin.Context) {
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		util.BadRequest(ctx, "无法读取请求体")
		return
	}

	order, err := c.PaymentService.HandleWebhook(payload, ctx.GetHeader("X-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidSignature):
			util.Unauthorized(ctx)
		case errors.Is(err, util.ErrOrderNotFound):
			util.NotFound(ctx)
		default:
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Success(ctx, gin.H{"orderId": order.ID, "status": order.Status})
}

// ListOrders godoc
// @Summary 我的订单
// @Tags 订单
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Order} "成功"
// @Router /api/orders [get]
func (c *OrderController) ListOrders(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	orders, err := c.PaymentService.ListOrders(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, orders)
}

// ListEnrollments godoc
// @Summary 我的课程
// @Tags 订单
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment} "成功"
// @Router /api/enrollments [get]
func (c *OrderController) ListEnrollments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	enrollments, err := c.PaymentService.ListEnrollments(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}

// GetOrder godoc
// @Summary 订单详情
// @Tags 订单
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "订单ID"
// @Success 200 {object} util.Response{data=model.Order} "成功"
// @Failure 404 {object} util.Response "订单不存在"
// @Router /api/orders/{id} [get]
func (c *OrderController) GetOrder(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	order, err := c.PaymentService.OrderRepo.FindByID(ctx.Param("id"))
	if err != nil || order.UserID != claims.UserID {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, order)
}
