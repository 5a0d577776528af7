package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "Manage conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list <group-id>",
	Short: "List conversations in a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <group-id> <conversation-id>",
	Short: "Show a conversation with its message history",
	Args:  cobra.ExactArgs(2),
	RunE:  runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:     "delete <group-id> <conversation-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a conversation and its messages",
	Args:    cobra.ExactArgs(2),
	RunE:    runConversationsDelete,
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
}

func runConversationsList(cmd *cobra.Command, args []string) error {
	list, err := backend.ListConversations(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if list.Total == 0 {
		fmt.Println("No conversations found")
		return nil
	}

	fmt.Printf("%-14s %-40s %10s %s\n", "ID", "TITLE", "MESSAGES", "UPDATED")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, c := range list.Conversations {
		title := c.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Printf("%-14s %-40s %10d %s\n", c.ID, title, c.MessageCount, c.UpdatedAt)
	}
	return nil
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	history, err := backend.GetConversation(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}

	conv := history.Conversation
	fmt.Printf("Conversation: %s (%s)\n", conv.Title, conv.ID)
	fmt.Printf("  Group: %s\n", conv.GroupID)
	fmt.Printf("  Messages: %d\n\n", conv.MessageCount)

	for _, m := range history.Messages {
		fmt.Printf("[%s] %s\n", m.Role, m.Content)
		fmt.Println()
	}
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	if err := backend.DeleteConversation(context.Background(), args[0], args[1]); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	fmt.Printf("Deleted conversation %s\n", args[1])
	return nil
}
