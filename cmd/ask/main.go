// Command ask runs questions through the answer pipeline in-process and
// prints the answer with its provenance. Sessions are kept in memory.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"municipal-assistant-be/internal/bootstrap"
	"municipal-assistant-be/internal/config"
	"municipal-assistant-be/internal/dto"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	jurisdiction := flag.String("jurisdiction", "", "town or city hint")
	board := flag.String("board", "", "board or committee hint")
	flag.Parse()

	cfg := config.Load()
	container, err := bootstrap.NewContainer(nil, cfg)
	if err != nil {
		color.Red("Failed to start: %v", err)
		os.Exit(1)
	}
	defer container.Close()

	ctx := context.Background()
	session, err := container.ChatbotService.CreateSession(ctx)
	if err != nil {
		color.Red("Failed to create session: %v", err)
		os.Exit(1)
	}

	var hints *dto.MessageHintsDTO
	if *jurisdiction != "" || *board != "" {
		hints = &dto.MessageHintsDTO{Jurisdiction: *jurisdiction, Board: *board}
	}

	questions := flag.Args()
	if len(questions) > 0 {
		for _, q := range questions {
			ask(ctx, container, session.Id, q, hints)
		}
		return
	}

	color.Cyan("Session %s. Ask a question, empty line to quit.", session.Id)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			return
		}
		ask(ctx, container, session.Id, q, hints)
	}
}

func ask(ctx context.Context, c *bootstrap.Container, sessionID uuid.UUID, q string, hints *dto.MessageHintsDTO) {
	res, err := c.ChatbotService.SendMessage(ctx, sessionID, &dto.SendMessageRequest{Content: q, Metadata: hints})
	if err != nil {
		color.Red("Error: %v", err)
		return
	}

	meta := res.AnswerMeta
	color.Yellow("[%s | %s]", meta.Outcome, meta.Complexity)
	fmt.Println(res.Message.Content)

	if meta.ScopeNotice != nil {
		color.Cyan("Scope: %s", meta.ScopeNotice.Text)
	}
	if meta.CriticScore != nil {
		color.Green("Critic score: %.2f", *meta.CriticScore)
	}
	if meta.LimitationsNote != "" {
		color.Magenta("Note: %s", meta.LimitationsNote)
	}
	for _, s := range res.Sources {
		title := s.Title
		if title == "" {
			title = s.Id
		}
		color.White("  source: %s", title)
	}
	for _, f := range res.SuggestedFollowUps {
		color.Blue("  follow-up: %s", f)
	}
}
