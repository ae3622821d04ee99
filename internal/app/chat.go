package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"docchat/internal/util"
	"docchat/pkg/aigw"
	"docchat/pkg/domain"
)

const maxFallbackTitleRunes = 40

// PostMessageResult is everything a chat turn produced. AIMessage is zero
// when generation failed after the user message was committed.
type PostMessageResult struct {
	Session     domain.ChatSession
	UserMessage domain.ChatMessage
	AIMessage   domain.ChatMessage
}

// PostMessage runs one chat turn: the user message and its file associations
// are committed in a short transaction before the AI is called, so a slow or
// failed generation never loses the user's words. On generation failure the
// returned error wraps ErrGeneration and the result still carries the
// committed user message.
func (a *App) PostMessage(ctx context.Context, owner domain.User, sessionID, prompt string, fileIDs []string) (PostMessageResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return PostMessageResult{}, fmt.Errorf("prompt is required: %w", ErrValidation)
	}
	for _, id := range fileIDs {
		if _, found, err := a.store.GetFileOwned(id, owner.ID); err != nil {
			return PostMessageResult{}, fmt.Errorf("check file %s: %w", id, err)
		} else if !found {
			return PostMessageResult{}, fmt.Errorf("file %s: %w", id, ErrNotFound)
		}
	}

	session, history, err := a.resolveSession(ctx, owner, sessionID, prompt)
	if err != nil {
		return PostMessageResult{}, err
	}

	userMsg := domain.ChatMessage{
		ID:        util.NewID(),
		SessionID: session.ID,
		Sender:    domain.SenderUser,
		Text:      prompt,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateUserMessage(userMsg, fileIDs); err != nil {
		return PostMessageResult{}, fmt.Errorf("persist user message: %w", err)
	}
	result := PostMessageResult{Session: session, UserMessage: userMsg}

	memories, err := a.store.ListMemories(owner.ID)
	if err != nil {
		slog.Warn("load memories failed, generating without them", "owner_id", owner.ID, "err", err)
		memories = nil
	}
	memoryTexts := make([]string, 0, len(memories))
	for _, m := range memories {
		memoryTexts = append(memoryTexts, m.Content)
	}
	historyMsgs := make([]aigw.HistoryMessage, 0, len(history))
	for _, m := range history {
		historyMsgs = append(historyMsgs, aigw.HistoryMessage{Sender: string(m.Sender), Message: m.Text})
	}

	reply, err := a.ai.Generate(ctx, aigw.GenerateRequest{
		Prompt:   prompt,
		FileIDs:  fileIDs,
		History:  historyMsgs,
		OwnerID:  owner.ID,
		Memories: memoryTexts,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	aiMsg := domain.ChatMessage{
		ID:        util.NewID(),
		SessionID: session.ID,
		Sender:    domain.SenderAI,
		Text:      reply.Text,
		FilesUsed: reply.FilesUsed,
		CreatedAt: time.Now().UTC(),
	}
	// Ordering is by timestamp; never let the reply sort before its prompt.
	if aiMsg.CreatedAt.Before(userMsg.CreatedAt) {
		aiMsg.CreatedAt = userMsg.CreatedAt
	}
	if err := a.store.AppendAIMessage(aiMsg); err != nil {
		return result, fmt.Errorf("%w: persist reply: %w", ErrGeneration, err)
	}
	result.AIMessage = aiMsg
	return result, nil
}

// resolveSession loads an existing session (checking ownership) or creates a
// new one when sessionID is empty. History is the ordered messages of an
// existing session, nil for a fresh one.
func (a *App) resolveSession(ctx context.Context, owner domain.User, sessionID, prompt string) (domain.ChatSession, []domain.ChatMessage, error) {
	if sessionID != "" {
		session, found, err := a.store.GetSession(sessionID)
		if err != nil {
			return domain.ChatSession{}, nil, fmt.Errorf("load session: %w", err)
		}
		if !found {
			return domain.ChatSession{}, nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		if session.OwnerID != owner.ID {
			return domain.ChatSession{}, nil, fmt.Errorf("session %s: %w", sessionID, ErrAccessDenied)
		}
		history, err := a.store.ListSessionMessages(session.ID)
		if err != nil {
			return domain.ChatSession{}, nil, fmt.Errorf("load history: %w", err)
		}
		return session, history, nil
	}

	session := domain.ChatSession{
		ID:        util.NewID(),
		OwnerID:   owner.ID,
		Name:      a.sessionTitle(ctx, prompt),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateSession(session); err != nil {
		return domain.ChatSession{}, nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil, nil
}

func (a *App) sessionTitle(ctx context.Context, prompt string) string {
	title, err := a.ai.GenerateTitle(ctx, prompt)
	if err != nil || title == "" {
		if err != nil {
			slog.Warn("title generation failed, using prompt", "err", err)
		}
		return truncateRunes(prompt, maxFallbackTitleRunes)
	}
	return title
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
