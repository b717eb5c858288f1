package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/papercomputeco/persona/pkg/chat"
	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/session"
)

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ChatResponse is the POST /chat success body.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// StatusResponse is the GET /chat body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NotFoundResponse is returned for unknown routes. It echoes the path and
// method as the server saw them, which shows whether a proxy rewrote them.
type NotFoundResponse struct {
	Detail      string `json:"detail"`
	DebugPath   string `json:"debug_path"`
	DebugMethod string `json:"debug_method"`
	Message     string `json:"message"`
}

// TranscriptResponse is the debug view of one session.
type TranscriptResponse struct {
	SessionID string         `json:"sessionId"`
	Turns     []session.Turn `json:"turns"`
	Length    int            `json:"length"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStatus answers GET /chat regardless of model configuration.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{Status: "ok", Message: "Chat API is running"})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error:  chat.ErrInvalidRequest.Error(),
			Detail: "request body must be JSON with message and sessionId",
		})
	}

	// Client disconnects are not propagated to the model call.
	reply, err := s.chat.HandleTurn(context.Background(), req.SessionID, req.Message)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(ChatResponse{Reply: reply})
}

// handleTranscript returns a session's turns. It goes through the same
// lookup-or-create path as a chat turn, so reading an unseen id registers
// it as an empty session.
func (s *Server) handleTranscript(c *fiber.Ctx) error {
	// Params point into the reused request buffer; the id may be kept as a
	// store key.
	id := utils.CopyString(c.Params("id"))

	sess, err := s.chat.Transcript(context.Background(), id)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(TranscriptResponse{
		SessionID: sess.ID,
		Turns:     sess.Turns,
		Length:    len(sess.Turns),
	})
}

func (s *Server) handleNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(NotFoundResponse{
		Detail:      "Not Found",
		DebugPath:   c.Path(),
		DebugMethod: c.Method(),
		Message:     "Check whether the host strips the /api prefix.",
	})
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	kind := chat.Kind(err)

	status := fiber.StatusInternalServerError
	if errors.Is(kind, chat.ErrInvalidRequest) {
		status = fiber.StatusBadRequest
	}

	name := "internal_error"
	if kind != nil {
		name = kind.Error()
	}

	return c.Status(status).JSON(llm.ErrorResponse{
		Error:  name,
		Detail: chat.Detail(err),
	})
}
