package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"parley/chat"
	"parley/config"
	"parley/flow"
	"parley/gateway"
	"parley/model"
	"parley/store"
)

const (
	Version = "v0.1.0"
	License = "Apache-2.0"
)

func main() {
	dataDir := os.Getenv("PARLEY_DATA_DIR")
	if dataDir == "" {
		dataDir = config.GetDefaultDataDir()
	}
	dataDir = config.ExpandPath(dataDir)

	if err := config.EnsureDir(dataDir); err != nil {
		fmt.Printf("Failed to create data directory: %v\n", err)
		os.Exit(1)
	}
	config.InitDebugLog(dataDir)

	method := config.SecurityPlainText
	passphrase := os.Getenv("PARLEY_PASSPHRASE")
	if passphrase != "" {
		method = config.SecurityPassphrase
	}
	creds := config.NewCredentialStore(method, dataDir)
	creds.SetPassphrase(passphrase)

	settings, err := config.NewStore(dataDir, creds, config.DebugLog)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	messages := store.NewMessageStore()
	svc := chat.NewService(messages, gateway.New(), settings)
	machine := flow.NewMachine(svc, messages)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go machine.Run(ctx)
	go printLoop(ctx, machine)

	machine.Dispatch(flow.Event{Kind: flow.EventScreenLoaded})

	fmt.Printf("parley %s - type a message, /retry <id>, /clear, or /quit\n", Version)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/clear":
			machine.Dispatch(flow.Event{Kind: flow.EventClearConversation})
		case line == "/dismiss":
			machine.Dispatch(flow.Event{Kind: flow.EventDismissError})
		case strings.HasPrefix(line, "/retry "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/retry "))
			machine.Dispatch(flow.Event{Kind: flow.EventRetryMessage, MessageID: id})
		default:
			machine.Dispatch(flow.Event{Kind: flow.EventSendMessage, Text: line})
		}
	}
}

// printLoop is the stand-in for the real rendering layer: it consumes the
// state and effect streams and writes them to the terminal.
func printLoop(ctx context.Context, machine *flow.Machine) {
	states := machine.States()
	defer states.Close()

	var prev []model.Message
	for {
		select {
		case <-ctx.Done():
			return

		case effect := <-machine.Effects():
			fmt.Printf("  * %s\n", effect.Message)

		case state := <-states.Updates():
			switch state.Phase {
			case flow.PhaseError:
				fmt.Printf("  ! fatal: %s\n", state.Cause.Message)
			case flow.PhaseSuccess:
				for _, msg := range changedTail(prev, state.Messages) {
					printMessage(msg)
				}
				prev = state.Messages
				if state.Err != nil {
					fmt.Printf("  ! %s (/dismiss to hide)\n", state.Err.Message)
				}
			}
		}
	}
}

// changedTail returns the suffix of next starting at the first message that
// differs from prev, so replacements get re-printed, not just appends.
func changedTail(prev, next []model.Message) []model.Message {
	for i, msg := range next {
		if i >= len(prev) || prev[i].ID != msg.ID || prev[i].Status != msg.Status || prev[i].Content != msg.Content {
			return next[i:]
		}
	}
	return nil
}

func printMessage(msg model.Message) {
	switch msg.Status {
	case model.StatusProcessing:
		fmt.Println("  assistant is thinking...")
	case model.StatusFailed:
		fmt.Printf("  ! %s [/retry %s]\n", msg.Failure.Message, msg.ID)
	default:
		fmt.Printf("  %s: %s\n", msg.Sender, msg.Content)
	}
}
