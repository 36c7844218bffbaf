package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/coffeedia/internal/client/config"
)

func (a *App) getStatus() string {
	st := a.session.State()
	switch {
	case st.IsLoading:
		return "(...)"
	case st.IsAuthenticated:
		return fmt.Sprintf("(%s)", st.User.Username)
	default:
		return "(guest)"
	}
}

// Root restores the stored session and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to Coffeedia CLI (type 'help' for commands)")

	a.session.Init(ctx)
	if st := a.session.State(); st.IsAuthenticated {
		a.println("Welcome back,", st.User.DisplayName())
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// NewRootCommand builds the coffeedia command. Flags are read by
// config.LoadConfig, so cobra leaves them alone.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "coffeedia",
		Short: "Interactive client for the Coffeedia coffee catalog",
		Long: `coffeedia is an interactive client for the Coffeedia coffee catalog.

It keeps you logged in between runs and renews the access token in the
background.

Flags:
  -a string   backend base URL (default http://127.0.0.1:8080)
  -d string   local database path (default coffeedia.db)
  -i int      session check interval, seconds (default 60)
  -c string   JSON config file

Environment variables (also read from .env):
  COFFEEDIA_SERVER_URL, COFFEEDIA_API_PREFIX, COFFEEDIA_DATABASE_PATH,
  COFFEEDIA_REQUEST_TIMEOUT, COFFEEDIA_EXPIRY_CHECK_INTERVAL,
  COFFEEDIA_REFRESH_THRESHOLD, COFFEEDIA_LOG_LEVEL, COFFEEDIA_LOG_FORMAT`,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			app, err := NewApp(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			app.Run(cmd.Context())
			return nil
		},
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
