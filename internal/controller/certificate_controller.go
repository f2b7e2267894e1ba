package controller

import (
	"maintech_backend/internal/service"
	"maintech_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// Verify godoc
// @Summary 证书验证（公开）
// @Description 凭证书编码查询持有人与课程
// @Tags 证书
// @Produce  json
// @Param   code path string true "证书编码"
// @Success 200 {object} util.Response{data=service.CertificateInfo} "成功"
// @Failure 404 {object} util.Response "证书不存在"
// @Router /api/certificates/{code}/verify [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	info, err := c.CertificateService.Verify(ctx.Param("code"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, info)
}

// ListMine godoc
// @Summary 我的证书
// @Tags 证书
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Certificate} "成功"
// @Router /api/certificates [get]
func (c *CertificateController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	certs, err := c.CertificateService.ListByUser(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, certs)
}
