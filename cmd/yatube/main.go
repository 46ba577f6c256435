package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/cmd/groups"
	"github.com/UkralStul/yatube/cmd/pagecache"
	"github.com/UkralStul/yatube/cmd/posts"
	"github.com/UkralStul/yatube/cmd/searchindex"
	"github.com/UkralStul/yatube/cmd/serve"
	"github.com/UkralStul/yatube/cmd/users"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "yatube",
		Short:         "Yatube blog server and management commands",
		SilenceUsage:  true,
	}
	root.AddCommand(
		serve.NewServeCommand(),
		groups.NewGroupsCommand(),
		users.NewUsersCommand(),
		posts.NewPostsCommand(),
		pagecache.NewCacheCommand(),
		searchindex.NewSearchCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
