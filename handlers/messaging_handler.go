package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const wsAuthTimeout = 10 * time.Second

type MessagingHandler struct {
	messaging   *services.MessagingService
	hub         *websocket.Hub
	jwtSecret   string
	authTimeout time.Duration
}

func NewMessagingHandler(messaging *services.MessagingService, hub *websocket.Hub, jwtSecret string) *MessagingHandler {
	return &MessagingHandler{messaging: messaging, hub: hub, jwtSecret: jwtSecret, authTimeout: wsAuthTimeout}
}

func (h *MessagingHandler) GetUserConversations(c *fiber.Ctx) error {
	conversations, err := h.messaging.ListConversations(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

type OpenConversationRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

func (h *MessagingHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	var req OpenConversationRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	conversation, err := h.messaging.OpenConversation(c.UserContext(), middleware.CurrentActor(c), uuid.MustParse(req.UserID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversation)
}

type StartTeacherConversationRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

func (h *MessagingHandler) StartTeacherConversation(c *fiber.Ctx) error {
	teacherID, err := uuidParam(c, "teacherId")
	if err != nil {
		return respondError(c, err)
	}
	var req StartTeacherConversationRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
	}
	conversation, err := h.messaging.StartTeacherConversation(c.UserContext(), middleware.CurrentActor(c), teacherID, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversation)
}

func (h *MessagingHandler) GetConversationMessages(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return respondError(c, &services.ValidationError{Message: "before must be an RFC 3339 timestamp"})
		}
		before = &t
	}

	messages, err := h.messaging.ListMessages(c.UserContext(), middleware.CurrentActor(c), id, c.QueryInt("limit", 20), before)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *MessagingHandler) SendMessage(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	message, err := h.messaging.SendMessage(c.UserContext(), middleware.CurrentActor(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *MessagingHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	n, err := h.messaging.MarkAsRead(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": "Messages marked as read", "updated": n})
}

func (h *MessagingHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.messaging.UnreadCount(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread": n})
}

// ServeWs expects {"type":"auth","token":"..."} as the first frame, then hands the
// connection to the hub for server-pushed events.
func (h *MessagingHandler) ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	// Unauthenticated sockets get authTimeout to send the auth frame.
	_ = c.SetReadDeadline(time.Now().Add(h.authTimeout))
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(authMsg.Token, h.jwtSecret)
	if err != nil {
		log.Printf("WebSocket auth failed: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}
	actor, err := middleware.ActorFromClaims(claims)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	_ = c.SetReadDeadline(time.Time{})
	_ = c.WriteJSON(fiber.Map{"type": "auth.ok"})
	h.hub.Serve(actor.ID, c)
}

func parseToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
