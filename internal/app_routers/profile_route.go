package approuters

import (
	"Lumen/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ProfileRouters(router *gin.RouterGroup, container *configuration.Container) {
	profileRoute := router.Group("/profiles")
	{
		profileRoute.POST("", container.ProfileHandler.CreateProfile)
		profileRoute.GET("/me", container.ProfileHandler.GetMyProfile)
		profileRoute.PATCH("/me", container.ProfileHandler.UpdateMyProfile)
		profileRoute.GET("/search", container.ProfileHandler.SearchProfiles)
		profileRoute.GET("/:id", container.ProfileHandler.GetProfile)
	}
}
