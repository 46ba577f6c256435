// Package pagecache сбрасывает кэш страниц.
package pagecache

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/cmd/internal/cli"
	"github.com/UkralStul/yatube/internal/app"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/config"
)

func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the page cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop all cached pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadConfig(nil)
			if err != nil {
				return err
			}
			if cfg.CacheBackend != config.CacheRedis {
				fmt.Fprintln(cmd.OutOrStdout(), "Memory cache lives inside the server process, restart the server to drop it.")
				return nil
			}

			pages, closeFn, err := app.OpenPageCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			return Clear(cmd.Context(), pages, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(clearCmd)
	return cmd
}

// Clear удаляет все сохраненные страницы.
func Clear(ctx context.Context, pages cache.PageCache, out io.Writer) error {
	if err := pages.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear page cache: %w", err)
	}
	fmt.Fprintln(out, "Page cache cleared")
	return nil
}
