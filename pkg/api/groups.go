package api

import (
	"context"
	"fmt"

	"github.com/socialhub/socialhub-cli/pkg/logger"
)

// CreateGroup inserts a group and makes its creator the first admin member
func CreateGroup(ctx context.Context, g NewGroup) (*Group, error) {
	logger.Debug("Creating group", "name", g.Name, "privacy", g.Privacy)

	var rows []Group
	if err := From("groups").Insert(ctx, g, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("backend returned no group")
	}
	group := &rows[0]

	if err := addGroupMember(ctx, group.ID, g.CreatedBy, "admin"); err != nil {
		return group, fmt.Errorf("group created but membership failed: %w", err)
	}
	return group, nil
}

// ListGroups returns groups, optionally filtered by a name pattern
func ListGroups(ctx context.Context, search string, page, pageSize int) (*PageResult[Group], error) {
	logger.Debug("Listing groups", "search", search, "page", page)

	q := From("groups").Select("*").Order("members_count", false).Page(page, pageSize).Count()
	if search != "" {
		q.ILike("name", "*"+search+"*")
	}

	var groups []Group
	total, err := q.Get(ctx, &groups)
	if err != nil {
		return nil, err
	}
	return &PageResult[Group]{Items: groups, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListMyGroups returns the groups userID belongs to
func ListMyGroups(ctx context.Context, userID string) ([]Group, error) {
	logger.Debug("Listing joined groups", "user_id", userID)

	var memberships []struct {
		Group Group `json:"group"`
	}
	_, err := From("group_members").
		Select("group:groups(*)").
		Eq("user_id", userID).
		Order("joined_at", false).
		Get(ctx, &memberships)
	if err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(memberships))
	for _, m := range memberships {
		groups = append(groups, m.Group)
	}
	return groups, nil
}

// GetGroup retrieves a group by ID
func GetGroup(ctx context.Context, groupID string) (*Group, error) {
	logger.Debug("Fetching group", "group_id", groupID)

	var group Group
	if _, err := From("groups").Select("*").Eq("id", groupID).Single().Get(ctx, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func addGroupMember(ctx context.Context, groupID, userID, role string) error {
	row := map[string]string{"group_id": groupID, "user_id": userID, "role": role}
	return From("group_members").OnConflict("group_id,user_id").Upsert(ctx, row, nil)
}

// JoinGroup adds the caller as a member
func JoinGroup(ctx context.Context, groupID, userID string) error {
	logger.Debug("Joining group", "group_id", groupID)
	return addGroupMember(ctx, groupID, userID, "member")
}

// LeaveGroup removes the caller's membership
func LeaveGroup(ctx context.Context, groupID, userID string) error {
	logger.Debug("Leaving group", "group_id", groupID)
	return From("group_members").Eq("group_id", groupID).Eq("user_id", userID).Delete(ctx)
}

// GetGroupMembers lists a group's members with their profiles
func GetGroupMembers(ctx context.Context, groupID string, page, pageSize int) (*PageResult[GroupMember], error) {
	logger.Debug("Fetching group members", "group_id", groupID, "page", page)

	var members []GroupMember
	total, err := From("group_members").
		Select("*,profile:profiles(*)").
		Eq("group_id", groupID).
		Order("joined_at", true).
		Page(page, pageSize).
		Count().
		Get(ctx, &members)
	if err != nil {
		return nil, err
	}
	return &PageResult[GroupMember]{Items: members, Total: total, Page: page, PageSize: pageSize}, nil
}

// IsGroupMember reports whether userID belongs to the group
func IsGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	n, err := From("group_members").Eq("group_id", groupID).Eq("user_id", userID).CountRows(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
