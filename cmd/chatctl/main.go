// Command chatctl is a small operator and developer client for the messaging API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"petchat/internal/middleware"
	chat "petchat/internal/pkg/chat/application/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	apiURL   string
	apiToken string
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "Talk to the pet adoption messaging API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", envOr("CHATCTL_API", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("CHATCTL_TOKEN"), "viewer token (env CHATCTL_TOKEN)")

	root.AddCommand(
		newTokenCommand(),
		newConversationsCommand(),
		newOpenCommand(),
		newSendCommand(),
		newReadCommand(),
		newStatusCommand(),
		newUnreadCommand(),
		newTailCommand(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func client() (*apiClient, error) {
	if apiToken == "" {
		return nil, errors.New("a viewer token is required (--token or CHATCTL_TOKEN)")
	}
	return newAPIClient(apiURL, apiToken), nil
}

func newTokenCommand() *cobra.Command {
	var (
		secret    string
		userID    string
		role      string
		shelterID string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a viewer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := chat.Viewer{UserID: userID, Role: chat.Role(role), ShelterID: shelterID}
			if err := v.Validate(); err != nil {
				return err
			}
			tok, err := middleware.SignViewerToken(secret, v, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret (env JWT_SECRET)")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", string(chat.RoleAdopter), "adopter or shelter")
	cmd.Flags().StringVar(&shelterID, "shelter", "", "shelter id (shelter role)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newConversationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List the caller's conversations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			convs, err := c.ListConversations(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSHELTER\tADOPTER\tPET\tSTATUS\tUNREAD\tLAST")
			for _, s := range convs {
				pet, last := "-", "-"
				if s.Pet != nil {
					pet = s.Pet.Name
				}
				if s.LastMessage != nil {
					last = truncate(s.LastMessage.Content, 40)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID, s.Shelter.Name, s.Adopter.Name, pet, s.Status, s.UnreadCount, last)
			}
			return w.Flush()
		},
	}
}

func newOpenCommand() *cobra.Command {
	var shelterID, petID string
	cmd := &cobra.Command{
		Use:   "open <message>",
		Short: "Start (or continue) a conversation with a shelter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			summary, err := c.CreateConversation(cmd.Context(), shelterID, petID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	cmd.Flags().StringVar(&shelterID, "shelter", "", "shelter id")
	cmd.Flags().StringVar(&petID, "pet", "", "pet id (optional)")
	_ = cmd.MarkFlagRequired("shelter")
	return cmd
}

func newSendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <message>",
		Short: "Send a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			m, err := c.SendMessage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}
}

func newReadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "read <conversation-id>",
		Short: "Mark the other party's messages as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			n, err := c.MarkRead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d message(s) marked as read\n", n)
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "status <conversation-id> <active|archived|closed>",
		Short:     "Archive, close or reactivate a conversation",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"active", "archived", "closed"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			conv, err := c.SetStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, conv)
		},
	}
}

func newUnreadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Print the caller's unread message count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			n, err := c.UnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
