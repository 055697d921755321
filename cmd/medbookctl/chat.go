package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Reads one message per line and prints the assistant's reply.
Commands: /doc <text> adds a document, /clear resets the session, /quit exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if sessionID == "" {
				sessionID = "cli:" + uuid.NewString()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s\n", sessionID)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 1<<20)
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "":
					continue
				case line == "/quit" || line == "/exit":
					return nil
				case line == "/clear":
					if err := e.app.Chat.ClearSession(cmd.Context(), sessionID); err != nil {
						return err
					}
					fmt.Fprintln(out, "chat cleared")
				case strings.HasPrefix(line, "/doc "):
					n, err := e.app.Chat.AddDocument(cmd.Context(), sessionID, "cli", strings.TrimPrefix(line, "/doc "))
					if err != nil {
						fmt.Fprintf(out, "error: %v\n", err)
						continue
					}
					fmt.Fprintf(out, "document added (%d chunks)\n", n)
				default:
					reply, err := e.app.Chat.Reply(cmd.Context(), sessionID, line)
					if err != nil {
						fmt.Fprintf(out, "error: %v\n", err)
						continue
					}
					fmt.Fprintln(out, reply.Text)
				}
			}
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to resume (default: a new one)")
	return cmd
}
