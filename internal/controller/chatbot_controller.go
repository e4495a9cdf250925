package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"municipal-assistant-be/internal/constant"
	"municipal-assistant-be/internal/dto"
	"municipal-assistant-be/internal/pkg/serverutils"
	"municipal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Post("", c.CreateSession)
	h.Get(":id/messages", c.GetChatHistory)
	h.Post(":id/messages", c.SendMessage)
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.chatbotService.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.GetChatHistory(ctx.UserContext(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

// SendMessage accepts JSON or multipart. The response body is the answer
// itself, not wrapped in the success envelope.
func (c *chatbotController) SendMessage(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if strings.HasPrefix(ctx.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := parseMultipart(ctx, &req); err != nil {
			return err
		}
	} else if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	req.Content = strings.TrimSpace(req.Content)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SendMessage(ctx.UserContext(), id, &req)
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(res)
}

func parseMultipart(ctx *fiber.Ctx, req *dto.SendMessageRequest) error {
	req.Content = ctx.FormValue("content")
	jurisdiction := strings.TrimSpace(ctx.FormValue("jurisdiction"))
	board := strings.TrimSpace(ctx.FormValue("board"))
	if jurisdiction != "" || board != "" {
		req.Metadata = &dto.MessageHintsDTO{Jurisdiction: jurisdiction, Board: board}
	}

	file, err := ctx.FormFile(constant.AttachmentFieldName)
	if err != nil {
		// No attachment.
		return nil
	}
	if file.Size > constant.MaxAttachmentBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Attachment is too large")
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unreadable attachment")
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, constant.MaxAttachmentBytes))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unreadable attachment")
	}

	text, err := ExtractText(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	}
	req.Attachment = text
	req.AttachmentName = file.Filename
	return nil
}

// ExtractText returns the text of a plain-text upload. Binary formats are
// rejected.
func ExtractText(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	contentType := http.DetectContentType(raw)
	if !strings.HasPrefix(contentType, "text/") || !utf8.Valid(raw) {
		return "", fmt.Errorf("unsupported attachment type %s, only text documents are accepted", contentType)
	}
	return strings.TrimSpace(string(raw)), nil
}

func sessionID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}
	return id, nil
}

func mapServiceError(err error) error {
	if errors.Is(err, service.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return err
}
