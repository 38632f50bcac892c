package http

import "github.com/gin-gonic/gin"

func RegisterWorkflowRoutes(r gin.IRouter, handler *WorkflowHandler) {
	r.GET("/workflows/:id", handler.GetWorkflow)
}
