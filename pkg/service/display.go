package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/output"
)

// displayName renders a profile as "Full Name (@user)" or "@user"
func displayName(p *api.Profile) string {
	if p == nil {
		return "@unknown"
	}
	if p.FullName != "" {
		return fmt.Sprintf("%s (@%s)", p.FullName, p.Username)
	}
	return "@" + p.Username
}

func handle(p *api.Profile) string {
	if p == nil {
		return "@unknown"
	}
	return "@" + p.Username
}

// reactionSummary renders counts in the fixed reaction order, e.g. "👍 3  ❤️ 1"
func reactionSummary(counts map[string]int) string {
	var parts []string
	for _, r := range api.ReactionTypes {
		if n := counts[r]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", formatter.ReactionEmoji(r), n))
		}
	}
	return strings.Join(parts, "  ")
}

func displayPost(p *api.Post, viewerID string) {
	formatter.Bold.Fprintf(output.Writer, "%s", displayName(p.Author))
	formatter.Muted.Fprintf(output.Writer, " · %s · %s\n", formatter.TimeAgo(p.CreatedAt), p.ID)
	if p.Content != "" {
		formatter.Printf("%s\n", p.Content)
	}
	if p.MediaURL != "" {
		icon := "🖼️"
		if p.MediaType == "video" {
			icon = "🎬"
		}
		formatter.Printf("%s %s\n", icon, p.MediaURL)
	}

	counts := p.ReactionCounts()
	line := formatter.Pluralize(p.CommentCount(), "comment")
	if summary := reactionSummary(counts); summary != "" {
		line = summary + "  ·  " + line
	}
	if mine := p.ReactionOf(viewerID); mine != "" {
		line += fmt.Sprintf("  ·  you reacted %s", formatter.ReactionEmoji(mine))
	}
	formatter.Muted.Fprintln(output.Writer, line)
}

// displayPosts renders a page of posts, or the JSON page in json mode
func displayPosts(title string, res *api.PageResult[api.Post], viewerID, empty string) error {
	if output.IsJSON() {
		return output.Print(title, res)
	}
	if len(res.Items) == 0 {
		formatter.Printf("%s\n", empty)
		return nil
	}

	formatter.Header(fmt.Sprintf("📰 %s", title))
	for i := range res.Items {
		displayPost(&res.Items[i], viewerID)
		formatter.Separator()
	}
	pageFooter(len(res.Items), res.Total, res.Page, res.PageSize)
	return nil
}

// pageFooter prints "Page 2 of 5 (47 total)" under a paged list
func pageFooter(shown, total, page, pageSize int) {
	if total <= 0 || pageSize <= 0 {
		return
	}
	pages := (total + pageSize - 1) / pageSize
	formatter.Muted.Fprintf(output.Writer, "Showing %d · page %d of %d (%d total)\n", shown, page, pages, total)
}

func profileRows(profiles []api.Profile) [][]string {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			"@" + p.Username,
			p.FullName,
			formatter.Truncate(p.Bio, 40),
			formatter.Check(p.IsBanned),
			p.ID,
		})
	}
	return rows
}

var profileHeaders = []string{"Username", "Name", "Bio", "Banned", "ID"}

func sortedCounts(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// requireText rejects blank input for a named field
func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", clierrors.ValidationError(field, "cannot be empty")
	}
	return value, nil
}
