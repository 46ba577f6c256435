// Package posts управляет постами из командной строки.
package posts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/cmd/internal/cli"
	"github.com/UkralStul/yatube/internal/app"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/search"
	"github.com/UkralStul/yatube/internal/storage"
)

const idFlag = "id"

var deleteFlags = map[string]cobraflags.Flag{
	idFlag: &cobraflags.StringFlag{
		Name:  idFlag,
		Value: "",
		Usage: "ID of the post to delete (required)",
	},
}

func NewPostsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Manage posts",
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a post with its comments and image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := cli.ParseID(idFlag, deleteFlags[idFlag].GetString())
			if err != nil {
				return err
			}
			env, err := cli.Open("")
			if err != nil {
				return err
			}
			defer env.Close()

			files, err := app.OpenMedia(env.Config)
			if err != nil {
				return err
			}
			index, err := app.OpenSearcher(cmd.Context(), env.Config, env.Store, env.Log)
			if err != nil {
				return err
			}
			return Delete(cmd.Context(), Deps{Store: env.Store, Media: files, Searcher: index, Log: env.Log}, cmd.OutOrStdout(), id)
		},
	}
	cobraflags.RegisterMap(deleteCmd, deleteFlags)

	cmd.AddCommand(deleteCmd)
	return cmd
}

// Deps - хранилища, из которых удаляется пост.
type Deps struct {
	Store    storage.Storage
	Media    media.Storage
	Searcher search.Searcher
	Log      *slog.Logger
}

// Delete удаляет пост из хранилища, затем из поискового индекса и его картинку.
// Ошибки индекса и медиа только логируются: пост уже удален.
func Delete(ctx context.Context, deps Deps, out io.Writer, id uint) error {
	post, err := deps.Store.GetPostByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("post %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get post: %w", err)
	}

	if err := deps.Store.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if err := deps.Searcher.Delete(ctx, id); err != nil {
		deps.Log.Warn("failed to remove post from search index", "post_id", id, "error", err)
	}
	if post.Image != "" {
		if err := deps.Media.Delete(ctx, post.Image); err != nil {
			deps.Log.Warn("failed to delete post image", "post_id", id, "image", post.Image, "error", err)
		}
	}

	fmt.Fprintf(out, "Deleted post %d %q\n", post.ID, post.String())
	return nil
}
