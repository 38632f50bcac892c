package http

import "github.com/gin-gonic/gin"

func RegisterCertificateRoutes(r gin.IRouter, handler *CertificateHandler) {
	certs := r.Group("/certificates")
	{
		certs.POST("", handler.CreateCertificate)
		certs.GET("/:kind/:id", handler.GetCertificate)
	}
}
