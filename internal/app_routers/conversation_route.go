package approuters

import (
	"Lumen/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ConversationRouters(router *gin.RouterGroup, container *configuration.Container) {
	conversationRoute := router.Group("/conversations")
	{
		conversationRoute.GET("", container.ConversationHandler.ListConversations)
		conversationRoute.POST("/read", container.ConversationHandler.MarkRead)
		conversationRoute.GET("/:partnerId/messages", container.ConversationHandler.GetMessages)
		conversationRoute.POST("/:partnerId/messages", container.ConversationHandler.SendMessage)
	}
}
