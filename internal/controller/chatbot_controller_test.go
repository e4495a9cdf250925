package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"municipal-assistant-be/internal/dto"
	"municipal-assistant-be/internal/pkg/serverutils"
	"municipal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatbotServiceStub struct {
	lastRequest *dto.SendMessageRequest
	err         error
}

func (s *chatbotServiceStub) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	return &dto.CreateSessionResponse{Id: uuid.New(), CreatedAt: time.Now()}, nil
}

func (s *chatbotServiceStub) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.ChatHistoryItemDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*dto.ChatHistoryItemDTO{}, nil
}

func (s *chatbotServiceStub) SendMessage(ctx context.Context, sessionId uuid.UUID, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	s.lastRequest = request
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SendMessageResponse{
		Message:            dto.MessageDTO{Id: uuid.New(), Role: "assistant", Content: "answer"},
		AnswerMeta:         dto.AnswerMetaDTO{Outcome: "answered", Complexity: "simple"},
		Sources:            []dto.SourceDTO{},
		SuggestedFollowUps: []string{},
	}, nil
}

func newTestApp(svc service.IChatbotService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewChatbotController(svc).RegisterRoutes(app.Group("/api"))
	return app
}

func messagesURL(id string) string {
	return "/api/sessions/" + id + "/messages"
}

func TestSendMessage_JSON(t *testing.T) {
	stub := &chatbotServiceStub{}
	app := newTestApp(stub)

	body := `{"content":"  What did the Select Board decide?  ","metadata":{"jurisdiction":"Anytown"}}`
	req := httptest.NewRequest(http.MethodPost, messagesURL(uuid.NewString()), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out, "message")
	assert.Contains(t, out, "answerMeta")
	assert.Contains(t, out, "sources")
	assert.Contains(t, out, "suggestedFollowUps")

	require.NotNil(t, stub.lastRequest)
	assert.Equal(t, "What did the Select Board decide?", stub.lastRequest.Content)
	require.NotNil(t, stub.lastRequest.Metadata)
	assert.Equal(t, "Anytown", stub.lastRequest.Metadata.Jurisdiction)
}

func TestSendMessage_Validation(t *testing.T) {
	app := newTestApp(&chatbotServiceStub{})

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{"empty content", uuid.NewString(), `{"content":"   "}`, http.StatusBadRequest},
		{"too long", uuid.NewString(), `{"content":"` + strings.Repeat("a", 4001) + `"}`, http.StatusBadRequest},
		{"bad id", "not-a-uuid", `{"content":"hi"}`, http.StatusBadRequest},
		{"malformed json", uuid.NewString(), `{"content":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, messagesURL(tt.id), strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestSendMessage_SessionNotFound(t *testing.T) {
	app := newTestApp(&chatbotServiceStub{err: service.ErrSessionNotFound})

	req := httptest.NewRequest(http.MethodPost, messagesURL(uuid.NewString()), strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("attachment", fileName)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(file))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, messagesURL(uuid.NewString()), &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSendMessage_MultipartTextAttachment(t *testing.T) {
	stub := &chatbotServiceStub{}
	app := newTestApp(stub)

	req := multipartRequest(t, map[string]string{
		"content":      "Does this draft warrant article need a public hearing?",
		"jurisdiction": "Anytown",
		"board":        "Select Board",
	}, "article.txt", []byte("Article 12. To see if the town will vote to raise and appropriate $50,000."))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, stub.lastRequest)
	assert.Contains(t, stub.lastRequest.Attachment, "Article 12")
	assert.Equal(t, "article.txt", stub.lastRequest.AttachmentName)
	require.NotNil(t, stub.lastRequest.Metadata)
	assert.Equal(t, "Select Board", stub.lastRequest.Metadata.Board)
}

func TestSendMessage_MultipartBinaryAttachmentRejected(t *testing.T) {
	stub := &chatbotServiceStub{}
	app := newTestApp(stub)

	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d}
	req := multipartRequest(t, map[string]string{"content": "What is this?"}, "scan.png", png)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Nil(t, stub.lastRequest)
}

func TestCreateSessionAndHistory(t *testing.T) {
	app := newTestApp(&chatbotServiceStub{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, messagesURL(uuid.NewString()), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText([]byte("  Minutes of the March meeting  "))
	require.NoError(t, err)
	assert.Equal(t, "Minutes of the March meeting", text)

	_, err = ExtractText([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3"))
	assert.Error(t, err)
}
