package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for collectors by username, display name or email",
	Long: `Search for users.

Examples:
  flexbase search "sneaker"
  flexbase search "kaws" --limit 25`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return searchUsers(cmd, client(), args[0], limit)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile [user-id]",
	Short: "Show a profile, yours when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := "me"
		if len(args) == 1 {
			id = args[0]
		}
		if id == "me" {
			if err := requireToken(); err != nil {
				return err
			}
		}
		return showProfile(cmd, client(), id)
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <user-id>",
	Short: "Follow a user, or unfollow if you already do",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		return toggleFollow(cmd, client(), args[0])
	},
}

func init() {
	searchCmd.Flags().IntP("limit", "l", 10, "Maximum number of results (max 50)")
}

func searchUsers(cmd *cobra.Command, c *apiClient, query string, limit int) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("search query cannot be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var result usersResponse
	raw, err := c.get(cmd.Context(), "/api/users/search", params, &result)
	if err != nil {
		return err
	}
	if output == "json" {
		return printJSON(cmd.OutOrStdout(), raw)
	}
	printUsers(cmd.OutOrStdout(), result.Users)
	return nil
}

func showProfile(cmd *cobra.Command, c *apiClient, id string) error {
	path := "/api/users/" + url.PathEscape(id)
	if id == "me" {
		path = "/api/auth/me"
	}

	var result profileResponse
	raw, err := c.get(cmd.Context(), path, nil, &result)
	if err != nil {
		return err
	}
	if output == "json" {
		return printJSON(cmd.OutOrStdout(), raw)
	}
	printProfile(cmd.OutOrStdout(), result.User)
	return nil
}

func toggleFollow(cmd *cobra.Command, c *apiClient, id string) error {
	var result followResponse
	raw, err := c.post(cmd.Context(), "/api/users/"+url.PathEscape(id)+"/follow", nil, &result)
	if err != nil {
		return err
	}
	if output == "json" {
		return printJSON(cmd.OutOrStdout(), raw)
	}

	verb := color.YellowString("Unfollowed")
	if result.Following {
		verb = color.GreenString("Now following")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d followers)\n", verb, id, result.FollowerCount)
	return nil
}

func printUsers(w io.Writer, users []userSummary) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.New(color.Bold).Sprint("ID\tUSERNAME\tNAME"))
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, color.CyanString("@"+u.Username), u.DisplayName)
	}
	_ = tw.Flush()
}

func printProfile(w io.Writer, p profile) {
	fmt.Fprintf(w, "%s (%s)\n", color.New(color.Bold).Sprint(p.DisplayName), color.CyanString("@"+p.Username))
	fmt.Fprintf(w, "  ID:        %s\n", p.ID)
	if p.Email != "" {
		fmt.Fprintf(w, "  Email:     %s\n", p.Email)
	}
	if p.Bio != "" {
		fmt.Fprintf(w, "  Bio:       %s\n", p.Bio)
	}
	fmt.Fprintf(w, "  Posts:     %d\n", p.PostCount)
	fmt.Fprintf(w, "  Followers: %d\n", p.FollowerCount)
	fmt.Fprintf(w, "  Following: %d\n", p.FollowingCount)
	if !p.IsSelf && p.IsFollowing {
		fmt.Fprintln(w, "  You follow this collector")
	}
}
