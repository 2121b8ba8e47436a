package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/auth"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/socialhub/socialhub-cli/pkg/prompter"
)

// Group privacy levels
const (
	GroupPublic  = "public"
	GroupPrivate = "private"
)

// GroupService provides group operations
type GroupService struct{}

// NewGroupService creates a new group service
func NewGroupService() *GroupService {
	return &GroupService{}
}

// CreateGroup creates a group with you as its admin
func (gs *GroupService) CreateGroup(ctx context.Context, name, description, privacy string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	if name == "" {
		if name, err = prompter.PromptRequired("Group name: "); err != nil {
			return err
		}
	}
	if name, err = requireText("name", name); err != nil {
		return err
	}
	if privacy == "" {
		privacy = GroupPublic
	}
	if privacy != GroupPublic && privacy != GroupPrivate {
		return clierrors.ValidationError("privacy", "must be public or private")
	}

	group, err := api.CreateGroup(ctx, api.NewGroup{
		Name:        name,
		Description: strings.TrimSpace(description),
		Privacy:     privacy,
		CreatedBy:   creds.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	if output.IsJSON() {
		return output.Print("", group)
	}
	formatter.PrintSuccess("✓ Group %q created (%s)", group.Name, group.ID)
	return nil
}

// ListGroups lists groups matching search, or only yours when mine is set
func (gs *GroupService) ListGroups(ctx context.Context, search string, mine bool, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	var groups []api.Group
	title := "👥 Groups"
	var res *api.PageResult[api.Group]
	if mine {
		if groups, err = api.ListMyGroups(ctx, creds.UserID); err != nil {
			return fmt.Errorf("failed to fetch your groups: %w", err)
		}
		title = "👥 Your Groups"
	} else {
		if res, err = api.ListGroups(ctx, search, page, pageSize); err != nil {
			return fmt.Errorf("failed to fetch groups: %w", err)
		}
		groups = res.Items
	}

	if !output.IsJSON() && len(groups) == 0 {
		formatter.Printf("No groups found.\n")
		return nil
	}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Name, g.Privacy, formatter.Count(g.MembersCount), formatter.Truncate(g.Description, 40), g.ID})
	}
	if err := output.PrintList(title, groups, []string{"Name", "Privacy", "Members", "About", "ID"}, rows); err != nil {
		return err
	}
	if res != nil && !output.IsJSON() {
		pageFooter(len(groups), res.Total, res.Page, res.PageSize)
	}
	return nil
}

// ViewGroup shows a group, your membership and its latest posts
func (gs *GroupService) ViewGroup(ctx context.Context, groupID string, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	group, err := getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	member, err := api.IsGroupMember(ctx, groupID, creds.UserID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	var posts *api.PageResult[api.Post]
	if member || group.Privacy == GroupPublic {
		if posts, err = api.ListGroupPosts(ctx, groupID, 1, pageSize); err != nil {
			return fmt.Errorf("failed to fetch group posts: %w", err)
		}
	}

	if output.IsJSON() {
		return output.Print("", map[string]interface{}{
			"group":  group,
			"member": member,
			"posts":  posts,
		})
	}

	formatter.Header(fmt.Sprintf("👥 %s", group.Name))
	if group.Description != "" {
		formatter.Printf("%s\n", group.Description)
	}
	status := "not a member"
	if member {
		status = "member"
	}
	formatter.Muted.Fprintf(output.Writer, "%s · %s · %s\n", group.Privacy, formatter.Pluralize(group.MembersCount, "member"), status)

	if posts == nil {
		formatter.PrintInfo("Join this private group to see its posts")
		return nil
	}
	return displayPosts("Group Posts", posts, creds.UserID, "No posts in this group yet.")
}

// GroupPosts lists a group's posts page by page
func (gs *GroupService) GroupPosts(ctx context.Context, groupID string, page, pageSize int) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	group, err := getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	posts, err := api.ListGroupPosts(ctx, groupID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch group posts: %w", err)
	}
	return displayPosts(fmt.Sprintf("Posts in %s", group.Name), posts, creds.UserID, "No posts in this group yet.")
}

func getGroup(ctx context.Context, groupID string) (*api.Group, error) {
	group, err := api.GetGroup(ctx, groupID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, clierrors.NotFoundError("group", groupID)
		}
		return nil, fmt.Errorf("failed to fetch group: %w", err)
	}
	return group, nil
}

// JoinGroup makes you a member of a group
func (gs *GroupService) JoinGroup(ctx context.Context, groupID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	group, err := getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := api.JoinGroup(ctx, groupID, creds.UserID); err != nil {
		return fmt.Errorf("failed to join group: %w", err)
	}
	formatter.PrintSuccess("✓ Joined %s", group.Name)
	return nil
}

// LeaveGroup ends your membership of a group
func (gs *GroupService) LeaveGroup(ctx context.Context, groupID string) error {
	creds, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	member, err := api.IsGroupMember(ctx, groupID, creds.UserID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		formatter.PrintWarning("You are not a member of this group")
		return nil
	}
	if err := api.LeaveGroup(ctx, groupID, creds.UserID); err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}
	formatter.PrintSuccess("✓ Left the group")
	return nil
}

// ListMembers lists the members of a group
func (gs *GroupService) ListMembers(ctx context.Context, groupID string, page, pageSize int) error {
	if _, err := auth.RequireSession(ctx); err != nil {
		return err
	}

	members, err := api.GetGroupMembers(ctx, groupID, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch members: %w", err)
	}

	rows := make([][]string, 0, len(members.Items))
	for _, m := range members.Items {
		rows = append(rows, []string{displayName(m.Profile), m.Role, formatter.TimeAgo(m.JoinedAt)})
	}
	if err := output.PrintList(fmt.Sprintf("👥 Members (%d)", members.Total), members.Items, []string{"Member", "Role", "Joined"}, rows); err != nil {
		return err
	}
	if !output.IsJSON() {
		pageFooter(len(members.Items), members.Total, members.Page, members.PageSize)
	}
	return nil
}
