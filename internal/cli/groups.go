package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lightgraph/lightgraph-go/internal/client"
)

var groupDescription string

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage document groups",
	Long: `Manage document groups. Each group has its own isolated knowledge graph,
vector store, and document set.`,
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all groups with document counts",
	RunE:  runGroupsList,
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new document group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsCreate,
}

var groupsShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "Show a single group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsShow,
}

var groupsDeleteCmd = &cobra.Command{
	Use:     "delete <group-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a group and all its data",
	Args:    cobra.ExactArgs(1),
	RunE:    runGroupsDelete,
}

func init() {
	groupsCreateCmd.Flags().StringVarP(&groupDescription, "description", "d", "", "group description")

	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsCreateCmd)
	groupsCmd.AddCommand(groupsShowCmd)
	groupsCmd.AddCommand(groupsDeleteCmd)
}

func runGroupsList(cmd *cobra.Command, args []string) error {
	list, err := backend.ListGroups(context.Background())
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	if list.Total == 0 {
		fmt.Println("No groups found")
		return nil
	}

	fmt.Printf("%-20s %-30s %10s %s\n", "ID", "NAME", "DOCUMENTS", "CREATED")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, g := range list.Groups {
		fmt.Printf("%-20s %-30s %10d %s\n", g.ID, g.Name, g.DocumentCount, g.CreatedAt)
	}
	return nil
}

func runGroupsCreate(cmd *cobra.Command, args []string) error {
	group, err := backend.CreateGroup(context.Background(), client.CreateGroupInput{
		Name:        args[0],
		Description: groupDescription,
	})
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}

	fmt.Printf("Created group %s (%s)\n", group.Name, group.ID)
	return nil
}

func runGroupsShow(cmd *cobra.Command, args []string) error {
	group, err := backend.GetGroup(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}

	fmt.Printf("Group: %s\n", group.ID)
	fmt.Printf("  Name: %s\n", group.Name)
	if group.Description != "" {
		fmt.Printf("  Description: %s\n", group.Description)
	}
	fmt.Printf("  Documents: %d\n", group.DocumentCount)
	fmt.Printf("  Created: %s\n", group.CreatedAt)
	fmt.Printf("  Updated: %s\n", group.UpdatedAt)
	return nil
}

func runGroupsDelete(cmd *cobra.Command, args []string) error {
	if err := backend.DeleteGroup(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	fmt.Printf("Deleted group %s\n", args[0])
	return nil
}
