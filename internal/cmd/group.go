package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	groupDescription string
	groupPrivacy     string
	groupSearch      string
	groupMine        bool
	groupPage        int
	groupPageSize    int
	groupPostsPage   int
	groupPostsSize   int
	groupMembersPage int
	groupMembersSize int
	groupViewSize    int
)

var groupCmd = &cobra.Command{
	Use:     "group",
	Aliases: []string{"groups"},
	Short:   "Group commands",
	Long:    "Create, join and browse community groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSvc := service.NewGroupService()
		return groupSvc.CreateGroup(cmd.Context(), args[0], groupDescription, groupPrivacy)
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSvc := service.NewGroupService()
		return groupSvc.ListGroups(cmd.Context(), groupSearch, groupMine, groupPage, groupPageSize)
	},
}

var groupViewCmd = &cobra.Command{
	Use:   "view <group-id>",
	Short: "View a group and its latest posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSvc := service.NewGroupService()
		return groupSvc.ViewGroup(cmd.Context(), args[0], groupViewSize)
	},
}

var groupPostsCmd = &cobra.Command{
	Use:   "posts <group-id>",
	Short: "List posts in a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSvc := service.NewGroupService()
		return groupSvc.GroupPosts(cmd.Context(), args[0], groupPostsPage, groupPostsSize)
	},
}

var groupJoinCmd = &cobra.Command{
	Use:   "join <group-id>",
	Short: "Join a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSvc := service.NewGroupService()
		return groupSvc.JoinGroup(cmd.Context(), args[0])
	},
}

var groupLeaveCmd = &cobra.Command{
	Use:   "leave <group-id>",
	Short: "Leave a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSvc := service.NewGroupService()
		return groupSvc.LeaveGroup(cmd.Context(), args[0])
	},
}

var groupMembersCmd = &cobra.Command{
	Use:   "members <group-id>",
	Short: "List group members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupSvc := service.NewGroupService()
		return groupSvc.ListMembers(cmd.Context(), args[0], groupMembersPage, groupMembersSize)
	},
}

func init() {
	groupCreateCmd.Flags().StringVarP(&groupDescription, "description", "d", "", "What the group is about")
	groupCreateCmd.Flags().StringVar(&groupPrivacy, "privacy", "public", "public or private")

	groupListCmd.Flags().StringVarP(&groupSearch, "search", "s", "", "Filter by name")
	groupListCmd.Flags().BoolVar(&groupMine, "mine", false, "Only groups you belong to")
	addPageFlags(groupListCmd, &groupPage, &groupPageSize, 20)

	groupViewCmd.Flags().IntVar(&groupViewSize, "posts", 5, "Number of recent posts to show")
	addPageFlags(groupPostsCmd, &groupPostsPage, &groupPostsSize, 10)
	addPageFlags(groupMembersCmd, &groupMembersPage, &groupMembersSize, 50)

	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupViewCmd)
	groupCmd.AddCommand(groupPostsCmd)
	groupCmd.AddCommand(groupJoinCmd)
	groupCmd.AddCommand(groupLeaveCmd)
	groupCmd.AddCommand(groupMembersCmd)
}
