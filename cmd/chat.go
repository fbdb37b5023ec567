package main

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/movli/internal/chat"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/urfave/cli/v3"
)

// Chat sends a single prompt, or runs an interactive session when no prompt is given.
//
// In a session, "/reset" clears the conversation, "/quit" or end of input leaves, and a number
// picks one of the suggestions while the conversation is empty.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	assistant, err := r.assistantService(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("history") {
		return r.chatHistory(ctx, assistant, cmd.Bool("json"), cmd.Bool("pretty"))
	}
	conversation := chat.New(assistant, shared.WithLogger(r.logger, "component", "chat"))

	if prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); prompt != "" {
		reply, _ := conversation.Send(ctx, prompt)
		return r.writePlain("%s\n", reply.Text)
	}

	r.writeSuggestions()
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.readLine("you › ")
		if errors.Is(err, io.EOF) {
			return r.writePlain("\n")
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			conversation.Reset()
			r.writeSuggestions()
			continue
		}

		if len(conversation.Messages()) == 0 {
			if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(chat.Suggestions()) {
				input = chat.Suggestions()[n-1]
				r.writePlain("you › %s\n", input)
			}
		}

		reply, sent := conversation.Send(ctx, input)
		if !sent {
			continue
		}
		r.writePlain("bot › %s\n\n", reply.Text)
	}
}

// chatHistory prints the signed-in user's stored conversation.
func (r *Runner) chatHistory(ctx context.Context, assistant Assistant, asJSON, pretty bool) error {
	if _, err := r.requireIdentity(); err != nil {
		return err
	}

	messages, err := assistant.History(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return r.writeJSON(messages, pretty)
	}
	if len(messages) == 0 {
		return r.writePlain("No earlier messages\n")
	}
	for _, msg := range messages {
		speaker := "bot"
		if msg.Sender == models.SenderUser {
			speaker = "you"
		}
		r.writePlain("%s  %s › %s\n", msg.SentAt.Local().Format("2006-01-02 15:04"), speaker, msg.Text)
	}
	return nil
}

func (r *Runner) writeSuggestions() {
	r.writePlain("%s\n\n", chat.Greeting)
	for i, s := range chat.Suggestions() {
		r.writePlain("  %d. %s\n", i+1, s)
	}
	r.writePlain("\nType /reset to start over, /quit to leave.\n\n")
}
