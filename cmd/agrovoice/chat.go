package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/agrovoice/agrovoice/internal/engine"
)

func newChatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant interactively",
		Long: `Talk to the assistant interactively.

Plain input is sent as text. Special commands:
  /voice <path>   send an audio file (with optional trailing text)
  /image <path>   send an image file (with optional trailing text)
  /stats          show the current session's metadata
  /quit           exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if sessionID == "" {
				sessionID = uuid.New().String()
			}
			fmt.Printf("session %s (Ctrl-D or /quit to exit)\n", sessionID)

			line := liner.NewLiner()
			defer func() { _ = line.Close() }()
			line.SetCtrlCAborts(true)

			historyFile := chatHistoryPath()
			if f, err := os.Open(historyFile); err == nil {
				_, _ = line.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(historyFile); err == nil {
					_, _ = line.WriteHistory(f)
					_ = f.Close()
				}
			}()

			for {
				input, err := line.Prompt("you> ")
				if err != nil { // io.EOF or liner.ErrPromptAborted
					fmt.Println()
					return nil
				}
				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}
				line.AppendHistory(input)

				if input == "/quit" || input == "/exit" {
					return nil
				}
				if input == "/stats" {
					printStats(cmd.Context(), a, sessionID)
					continue
				}

				req := engine.Request{SessionID: sessionID}
				switch {
				case strings.HasPrefix(input, "/voice "):
					path, rest := splitPathArg(strings.TrimPrefix(input, "/voice "))
					req.AudioRef = path
					req.Text = rest
				case strings.HasPrefix(input, "/image "):
					path, rest := splitPathArg(strings.TrimPrefix(input, "/image "))
					image, err := os.ReadFile(path) // #nosec G304 - user-supplied path
					if err != nil {
						fmt.Printf("read image: %v\n", err)
						continue
					}
					req.Image = image
					req.Text = rest
				default:
					req.Text = input
				}

				reply, err := a.engine.Analyze(cmd.Context(), req)
				if err != nil {
					fmt.Printf("error: %v\n", err)
					continue
				}
				if reply.Transcript != "" {
					fmt.Printf("(heard: %s)\n", reply.Transcript)
				}
				fmt.Printf("assistant [%s]> %s\n", reply.Intent, reply.ResponseText)
			}
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session ID to resume (default: new session)")
	return cmd
}

func printStats(ctx context.Context, a *app, sessionID string) {
	summary, err := a.lifecycle.Summarize(ctx, sessionID)
	if err != nil {
		fmt.Printf("stats: %v\n", err)
		return
	}
	fmt.Printf("messages: %d (user %d, assistant %d), duration: %s\n",
		summary.MessageCount, summary.UserMessages, summary.AssistantMessages, summary.Duration.Round(time.Second))
	for k, v := range summary.Context {
		fmt.Printf("  %s: %s\n", k, v)
	}
}

// splitPathArg splits "path [trailing text]" on the first space.
func splitPathArg(s string) (path, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

func chatHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agrovoice_history"
	}
	dir := filepath.Join(home, ".agrovoice")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("create history dir: %v", err)
		return ".agrovoice_history"
	}
	return filepath.Join(dir, "chat_history")
}
