package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show posts from you and the collectors you follow",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		return listPosts(cmd, client(), "/api/posts/feed", pageParams(limit, offset))
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse public posts",
	Long: `Browse public posts, optionally filtered.

Examples:
  flexbase explore --category sneakers
  flexbase explore --brand nike --search "jordan"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		params := pageParams(limit, offset)
		for _, name := range []string{"category", "brand", "search"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				params.Set(name, v)
			}
		}
		return listPosts(cmd, client(), "/api/posts/explore", params)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{feedCmd, exploreCmd} {
		cmd.Flags().IntP("limit", "l", 20, "Maximum number of posts")
		cmd.Flags().IntP("offset", "o", 0, "Result offset for pagination")
	}
	exploreCmd.Flags().String("category", "", "Tag category filter (e.g. sneakers, watches)")
	exploreCmd.Flags().String("brand", "", "Brand tag filter")
	exploreCmd.Flags().String("search", "", "Caption or tag search")
}

func pageParams(limit, offset int) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	return params
}

func listPosts(cmd *cobra.Command, c *apiClient, path string, params url.Values) error {
	var result postsResponse
	raw, err := c.get(cmd.Context(), path, params, &result)
	if err != nil {
		return err
	}
	if output == "json" {
		return printJSON(cmd.OutOrStdout(), raw)
	}
	printPosts(cmd.OutOrStdout(), result.Posts, time.Now())
	return nil
}

func printPosts(w io.Writer, posts []post, now time.Time) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts")
		return
	}
	for _, p := range posts {
		author := "unknown"
		if p.Author != nil {
			author = color.CyanString("@" + p.Author.Username)
		}
		fmt.Fprintf(w, "%s  %s  %s ago  [%s]\n", color.New(color.Faint).Sprint(p.ID), author, since(now, p.CreatedAt), p.Visibility)
		fmt.Fprintf(w, "  %s\n", p.Caption)
		if len(p.Tags) > 0 {
			names := make([]string, 0, len(p.Tags))
			for _, t := range p.Tags {
				names = append(names, "#"+t.Name)
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(names, " "))
		}
		fmt.Fprintf(w, "  %d likes, %d comments  %s %s\n\n", p.LikeCount, p.CommentCount, p.Media.Kind, p.Media.URL)
	}
}

func since(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func printJSON(w io.Writer, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
