package todo

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the todo handlers on router.
func RegisterRoutes(router gin.IRouter, h *Handler) {
	todos := router.Group("/api/todo")
	{
		todos.GET("/", h.List)
		todos.POST("/", h.Create)
		todos.DELETE("/", h.Delete)
	}
}
