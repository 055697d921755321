// Package rag answers free-text questions from documents uploaded to a session.
package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medbook/internal/config"
	"medbook/internal/domain"
	"medbook/internal/logging"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	NoDocumentsAnswer = "No documents uploaded yet. Please add a plain-text document first."
	NotFoundAnswer    = "I could not find relevant information in the uploaded documents."
	FailedAnswer      = "LLM FAILED — check Groq API key, model access, or logs."

	systemPrompt = "You are a medical assistant.\n" +
		"Answer ONLY using the provided document context.\n" +
		"If the answer is not present, say:\n" +
		"'The information is not available in the uploaded documents.'"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient targets any OpenAI-compatible endpoint; Groq by default.
func NewOpenAIClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return openai.NewClientWithConfig(clientCfg)
}

type Answerer struct {
	store       *MemoryStore
	client      chatClient
	model       string
	temperature float32
	timeout     time.Duration
	topK        int
	logger      zerolog.Logger
}

// NewAnswerer wires the store and the LLM. A nil client makes every retrieval end in FailedAnswer.
func NewAnswerer(store *MemoryStore, client chatClient, cfg config.LLMConfig, logger *zerolog.Logger) *Answerer {
	if store == nil {
		store = NewMemoryStore()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}
	return &Answerer{
		store:       store,
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		topK:        topK,
		logger:      logging.Component(logger, "rag"),
	}
}

// New builds an answerer from config. Without an api key answers end in FailedAnswer.
func New(cfg config.LLMConfig, logger *zerolog.Logger) *Answerer {
	if cfg.APIKey == "" {
		return NewAnswerer(NewMemoryStore(), nil, cfg, logger)
	}
	return NewAnswerer(NewMemoryStore(), NewOpenAIClient(cfg), cfg, logger)
}

// AddDocument chunks plain text into the session's store and returns the number of chunks.
func (a *Answerer) AddDocument(_ context.Context, sessionID, name, text string) (int, error) {
	chunks := Split(text, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyDocument
	}
	a.store.Add(sessionID, name, chunks)
	a.logger.Info().Str("session_id", sessionID).Str("document", name).Int("chunks", len(chunks)).Msg("document added")
	return len(chunks), nil
}

func (a *Answerer) ClearDocuments(sessionID string) {
	a.store.Clear(sessionID)
}

// Answer never fails; problems are reported through the sentinel answers.
func (a *Answerer) Answer(ctx context.Context, sessionID, question string) string {
	if !a.store.Has(sessionID) {
		return NoDocumentsAnswer
	}

	docs := a.store.Query(sessionID, question, a.topK)
	if len(docs) == 0 {
		return NotFoundAnswer
	}

	answer, err := a.complete(ctx, strings.Join(docs, "\n\n"), question)
	if err != nil {
		a.logger.Error().Err(err).Str("session_id", sessionID).Msg("llm request failed")
		return FailedAnswer
	}
	return answer
}

func (a *Answerer) complete(ctx context.Context, contextText, question string) (string, error) {
	if a.client == nil {
		return "", errors.New("llm client not configured")
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", contextText, question)},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("llm returned empty content")
	}
	return content, nil
}
