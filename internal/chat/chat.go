// Package chat keeps the conversation with the hosted movie assistant.
package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

// MsgFallback replaces the bot reply when the assistant cannot be reached.
const MsgFallback = "Sorry, I'm having trouble connecting. Please try again later."

// Greeting is shown above the suggestions while the conversation is empty.
const Greeting = "Ask me to recommend a movie, find an actor's filmography, or anything else you can think of!"

var suggestions = []string{
	"Suggest a sci-fi movie from the 90s",
	"Who directed The Godfather?",
}

// Assistant produces a reply to a prompt.
type Assistant interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// Conversation is an ordered exchange of user and bot messages. It is safe for concurrent use.
type Conversation struct {
	assistant Assistant
	logger    *log.Logger
	now       func() time.Time

	mu       sync.Mutex
	messages []models.ChatMessage
	pending  bool

	// generation changes on Reset; replies started before it are dropped.
	generation uint64
}

// New creates an empty conversation. A nil logger discards output.
func New(assistant Assistant, logger *log.Logger) *Conversation {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Conversation{assistant: assistant, logger: logger, now: time.Now}
}

// Suggestions returns the starter prompts offered while the conversation is empty.
func Suggestions() []string {
	return append([]string(nil), suggestions...)
}

// Messages returns a copy of the conversation.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

// Pending reports whether a reply is outstanding.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Send appends input as a user message and then the bot reply, or [MsgFallback] on failure.
//
// Blank input and input sent while a reply is pending are ignored; sent reports whether the
// message was accepted. The returned reply is the bot message appended to the conversation.
// A reply that arrives after [Conversation.Reset] is dropped and sent is false.
func (c *Conversation) Send(ctx context.Context, input string) (reply models.ChatMessage, sent bool) {
	if strings.TrimSpace(input) == "" {
		return models.ChatMessage{}, false
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return models.ChatMessage{}, false
	}
	c.pending = true
	generation := c.generation
	c.messages = append(c.messages, c.message(input, models.SenderUser))
	c.mu.Unlock()

	text, err := c.assistant.Reply(ctx, input)
	if err != nil {
		c.logger.Error("assistant reply failed", "error", err)
		text = MsgFallback
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		c.logger.Debug("dropping reply for a cleared conversation")
		return models.ChatMessage{}, false
	}
	reply = c.message(text, models.SenderBot)
	c.messages = append(c.messages, reply)
	c.pending = false
	return reply, true
}

// Reset clears the conversation. An outstanding reply is dropped when it arrives.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.pending = false
	c.generation++
}

func (c *Conversation) message(text string, sender models.Sender) models.ChatMessage {
	return models.ChatMessage{ID: shared.GenerateID(), Text: text, Sender: sender, SentAt: c.now()}
}
