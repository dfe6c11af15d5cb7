package routes

import (
	"catalog-sync-service/controllers"
	"catalog-sync-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the trigger/operator API. All sync routes require a
// bearer token; continuation has no HTTP route at all.
func RegisterRoutes(r *gin.Engine, syncController *controllers.SyncController, jwtSecret []byte) {
	sync := r.Group("/sync")
	sync.Use(middleware.RequireAuth(jwtSecret))
	{
		sync.POST("/integrations/:id/start", syncController.StartSync)
		sync.GET("/integrations/:id/runs", syncController.ListRuns)
		sync.POST("/runs/:id/resume", syncController.ResumeSync)
		sync.GET("/runs/:id", syncController.GetRun)
	}
}
