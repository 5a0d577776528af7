package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightgraph/lightgraph-go/internal/client"
)

var (
	chatConversation string
	chatTitle        string
	chatMode         string
	chatStream       bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <group-id> <message>",
	Short: "Send a message in a conversation",
	Long: `Send a message in a conversation and get a RAG-powered response.

Without --conversation, a new conversation is created first and its ID is
printed so follow-up messages can continue it.

Examples:
  lightgraph chat demo "What does the architecture doc say about caching?"
  lightgraph chat demo "And how is it invalidated?" --conversation 4f2a9c1b`,
	Args: cobra.ExactArgs(2),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "conversation ID to continue")
	chatCmd.Flags().StringVarP(&chatTitle, "title", "t", "", "title for a newly created conversation")
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", client.ModeMix, "RAG query mode (naive, local, global, hybrid, mix)")
	chatCmd.Flags().BoolVarP(&chatStream, "stream", "s", false, "stream the reply as it is generated")
}

func runChat(cmd *cobra.Command, args []string) error {
	groupID, message := args[0], args[1]
	if !client.ValidMode(chatMode) {
		return fmt.Errorf("invalid mode %q", chatMode)
	}

	ctx := context.Background()

	conversationID := chatConversation
	if conversationID == "" {
		conv, err := backend.CreateConversation(ctx, groupID, chatTitle)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		conversationID = conv.ID
		fmt.Printf("Conversation %s created. Continue it with --conversation %s\n\n", conv.ID, conv.ID)
	}

	req := client.ChatRequest{Message: message, Mode: chatMode}

	if chatStream {
		err := backend.ChatStream(ctx, groupID, conversationID, req, func(chunk string) error {
			fmt.Print(chunk)
			return nil
		})
		if err != nil {
			return fmt.Errorf("stream chat: %w", err)
		}
		fmt.Fprintln(os.Stdout)
		return nil
	}

	resp, err := backend.Chat(ctx, groupID, conversationID, req)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	fmt.Println(resp.AssistantMessage.Content)
	return nil
}
