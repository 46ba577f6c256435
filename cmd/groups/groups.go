// Package groups управляет сообществами из командной строки.
package groups

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/cmd/internal/cli"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

const (
	titleFlag       = "title"
	slugFlag        = "slug"
	descriptionFlag = "description"
)

const maxTitleLength = 200

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

var createFlags = map[string]cobraflags.Flag{
	titleFlag: &cobraflags.StringFlag{
		Name:  titleFlag,
		Value: "",
		Usage: "Group title (required)",
	},
	slugFlag: &cobraflags.StringFlag{
		Name:  slugFlag,
		Value: "",
		Usage: "Unique URL slug: latin letters, digits, hyphens and underscores (required)",
	},
	descriptionFlag: &cobraflags.StringFlag{
		Name:  descriptionFlag,
		Value: "",
		Usage: "Group description",
	},
}

var deleteFlags = map[string]cobraflags.Flag{
	slugFlag: &cobraflags.StringFlag{
		Name:  slugFlag,
		Value: "",
		Usage: "Slug of the group to delete (required)",
	},
}

func NewGroupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage groups",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.Open("")
			if err != nil {
				return err
			}
			defer env.Close()
			return Create(cmd.Context(), env.Store, cmd.OutOrStdout(), &domain.Group{
				Title:       createFlags[titleFlag].GetString(),
				Slug:        createFlags[slugFlag].GetString(),
				Description: createFlags[descriptionFlag].GetString(),
			})
		},
	}
	cobraflags.RegisterMap(createCmd, createFlags)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.Open("")
			if err != nil {
				return err
			}
			defer env.Close()
			return List(cmd.Context(), env.Store, cmd.OutOrStdout())
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a group, its posts stay without a group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.Open("")
			if err != nil {
				return err
			}
			defer env.Close()
			return Delete(cmd.Context(), env.Store, cmd.OutOrStdout(), deleteFlags[slugFlag].GetString())
		},
	}
	cobraflags.RegisterMap(deleteCmd, deleteFlags)

	cmd.AddCommand(createCmd, listCmd, deleteCmd)
	return cmd
}

// Create проверяет поля и сохраняет группу.
func Create(ctx context.Context, store storage.Storage, out io.Writer, group *domain.Group) error {
	group.Title = strings.TrimSpace(group.Title)
	group.Slug = strings.TrimSpace(group.Slug)
	group.Description = strings.TrimSpace(group.Description)

	if err := cli.Require(titleFlag, group.Title); err != nil {
		return err
	}
	if len([]rune(group.Title)) > maxTitleLength {
		return fmt.Errorf("--%s must be at most %d characters", titleFlag, maxTitleLength)
	}
	if err := cli.Require(slugFlag, group.Slug); err != nil {
		return err
	}
	if !slugPattern.MatchString(group.Slug) {
		return fmt.Errorf("--%s may contain only latin letters, digits, hyphens and underscores", slugFlag)
	}

	created, err := store.CreateGroup(ctx, group)
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("group with slug %q already exists", group.Slug)
	}
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	fmt.Fprintf(out, "Created group %q (id %d): /group/%s/\n", created.Title, created.ID, created.Slug)
	return nil
}

// List печатает группы таблицей.
func List(ctx context.Context, store storage.Storage, out io.Writer) error {
	groups, err := store.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	if len(groups) == 0 {
		fmt.Fprintln(out, "No groups.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tTITLE")
	for _, g := range groups {
		fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
	}
	return w.Flush()
}

// Delete удаляет группу по slug.
func Delete(ctx context.Context, store storage.Storage, out io.Writer, slug string) error {
	if err := cli.Require(slugFlag, slug); err != nil {
		return err
	}
	group, err := store.GetGroupBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("group with slug %q not found", slug)
	}
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}
	if err := store.DeleteGroup(ctx, group.ID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	fmt.Fprintf(out, "Deleted group %q\n", group.Slug)
	return nil
}
