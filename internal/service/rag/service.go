package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"ragchat/internal/config"
	"ragchat/internal/model/chat"
)

// systemPrompt grounds the model in the retrieved context. The context slot is
// left empty when no retriever is configured.
const systemPrompt = `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, say that you don't know. Keep the answer concise.

Context:
{context}`

// historyLimit bounds how many prior turns are replayed to the model.
const historyLimit = 10

// Response carries the pipeline answer plus the context documents it used.
type Response struct {
	Answer  string   `json:"answer"`
	Context []string `json:"context"`
}

// Service answers user prompts with retrieval-augmented generation: retrieved
// context and conversation history are folded into a prompt template and run
// through the chat model.
type Service struct {
	chatModel model.ChatModel
	retriever retriever.Retriever
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the retrieval chain. The retriever may be nil, in which
// case answers are generated without knowledge-base context.
func NewService(ctx context.Context, ret retriever.Retriever, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile retrieval chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		retriever: ret,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// Answer runs the full pipeline for one prompt and returns the generated text
// with the context documents that informed it.
func (s *Service) Answer(ctx context.Context, query string, history []chat.Message) (Response, error) {
	docs, err := s.retrieveContext(ctx, query)
	if err != nil {
		return Response{}, fmt.Errorf("failed to retrieve context: %w", err)
	}

	response, err := s.chain.Invoke(ctx, s.buildChainInput(query, history, docs))
	if err != nil {
		return Response{}, fmt.Errorf("failed to run retrieval chain: %w", err)
	}

	log.Printf("[rag] generated answer, context_docs=%d length=%d", len(docs), len(response.Content))
	return Response{Answer: response.Content, Context: docs}, nil
}

// Stream runs the pipeline and streams the answer chunks.
func (s *Service) Stream(ctx context.Context, query string, history []chat.Message) (*schema.StreamReader[*schema.Message], error) {
	docs, err := s.retrieveContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	stream, err := s.chain.Stream(ctx, s.buildChainInput(query, history, docs))
	if err != nil {
		return nil, fmt.Errorf("failed to stream retrieval chain output: %w", err)
	}
	return stream, nil
}

func (s *Service) retrieveContext(ctx context.Context, query string) ([]string, error) {
	if s.retriever == nil {
		return nil, nil
	}

	docs, err := s.retriever.Retrieve(ctx, query, retriever.WithTopK(s.cfg.TopK))
	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		contents = append(contents, doc.Content)
	}
	return contents, nil
}

func (s *Service) buildChainInput(query string, history []chat.Message, docs []string) map[string]any {
	return map[string]any{
		"context": strings.Join(docs, "\n\n"),
		"history": buildHistoryMessages(history),
		"query":   query,
	}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Type {
		case chat.TypeUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.TypeAI:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
