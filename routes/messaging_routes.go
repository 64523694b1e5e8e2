package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(api fiber.Router, d Deps) {
	conversations := api.Group("/conversations")
	conversations.Get("", d.protected(d.Messaging.GetUserConversations)...)
	conversations.Post("", d.protected(d.Messaging.CreateOrGetConversation)...)
	conversations.Get("/unread-count", d.protected(d.Messaging.UnreadCount)...)
	conversations.Post("/teacher/:teacherId", d.protected(d.limited(d.Messaging.StartTeacherConversation)...)...)
	conversations.Get("/:id/messages", d.protected(d.Messaging.GetConversationMessages)...)
	conversations.Post("/:id/messages", d.protected(d.limited(d.Messaging.SendMessage)...)...)
	conversations.Post("/:id/read", d.protected(d.Messaging.MarkAsRead)...)

	// The websocket authenticates with its first frame, not a header.
	api.Get("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, websocket.New(d.Messaging.ServeWs))
}
