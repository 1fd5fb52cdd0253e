package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// Fallback texts used when the model returns an empty or unparseable reply.
const (
	chatFallback  = "Response received."
	startFallback = "Please continue."
)

type TutorService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewTutorService(apiKey string, concurrentReqs int) (*TutorService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.7)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &TutorService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *TutorService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *TutorService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return &RateLimitError{Message: "Too many concurrent tutoring requests. Please try again."}
	}
}

func (s *TutorService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Chat evaluates one user turn: corrections for the user's message, a reply
// in the target language and a follow-up phrase to keep the conversation
// going.
func (s *TutorService) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildChatPrompt(req.Language, req.Level, req.ContextMessages, req.Message)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("Gemini chat error: %v", err)
		return nil, &UnavailableError{Message: "AI tutor is temporarily unavailable"}
	}

	rawText := extractText(resp)
	reply := parseTutorReply(rawText)
	if reply.AIResponse == "" {
		log.Println("WARNING: Gemini returned no usable chat reply. Using fallback.")
		reply.AIResponse = chatFallback
	}

	return &models.ChatResponse{
		AIResponse:  reply.AIResponse,
		NextPhrase:  reply.NextPhrase,
		Corrections: validateCorrections(reply.Corrections),
		SessionID:   req.SessionID,
		TokensUsed:  tokenCount(resp),
	}, nil
}

// StartMessage generates a conversation-opening greeting, optionally grounded
// on recent history so a returning learner is welcomed back.
func (s *TutorService) StartMessage(ctx context.Context, req models.StartRequest) (*models.StartResponse, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildStartPrompt(req.Language, req.Level, req.ContextMessages)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("Gemini start error: %v", err)
		return nil, &UnavailableError{Message: "AI tutor is temporarily unavailable"}
	}

	text := strings.TrimSpace(stripFences(extractText(resp)))
	if text == "" {
		log.Println("WARNING: Gemini returned an empty greeting. Using fallback.")
		text = startFallback
	}

	return &models.StartResponse{
		Message:    text,
		SessionID:  req.SessionID,
		TokensUsed: tokenCount(resp),
	}, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func tokenCount(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata == nil {
		return 0
	}
	return int(resp.UsageMetadata.TotalTokenCount)
}
