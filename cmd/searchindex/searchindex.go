// Package searchindex перестраивает поисковый индекс Elasticsearch.
package searchindex

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/cmd/internal/cli"
	"github.com/UkralStul/yatube/internal/app"
)

const batchFlag = "batch"

const defaultBatch = "100"

var reindexFlags = map[string]cobraflags.Flag{
	batchFlag: &cobraflags.StringFlag{
		Name:  batchFlag,
		Value: defaultBatch,
		Usage: "Number of posts loaded from storage per request",
	},
}

// Reindexer переиндексирует все посты пачками.
type Reindexer interface {
	Reindex(ctx context.Context, batch int) (int, error)
}

func NewSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Manage the search index",
	}

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Index every post into Elasticsearch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batch, err := cli.ParseID(batchFlag, reindexFlags[batchFlag].GetString())
			if err != nil {
				return err
			}
			env, err := cli.Open("")
			if err != nil {
				return err
			}
			defer env.Close()
			if env.Config.ElasticAddr == "" {
				return errors.New("ELASTICSEARCH_ADDR is not set, storage search does not use an index")
			}

			searcher, err := app.OpenSearcher(cmd.Context(), env.Config, env.Store, env.Log)
			if err != nil {
				return err
			}
			r, ok := searcher.(Reindexer)
			if !ok {
				return fmt.Errorf("search backend %T cannot reindex", searcher)
			}
			return Reindex(cmd.Context(), r, cmd.OutOrStdout(), int(batch))
		},
	}
	cobraflags.RegisterMap(reindexCmd, reindexFlags)

	cmd.AddCommand(reindexCmd)
	return cmd
}

// Reindex запускает переиндексацию и печатает число проиндексированных постов.
func Reindex(ctx context.Context, r Reindexer, out io.Writer, batch int) error {
	n, err := r.Reindex(ctx, batch)
	if err != nil {
		return fmt.Errorf("reindex stopped after %d posts: %w", n, err)
	}
	fmt.Fprintf(out, "Indexed %d posts\n", n)
	return nil
}
