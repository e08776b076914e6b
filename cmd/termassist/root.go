package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bdobrica/termassist/common/version"
	"github.com/bdobrica/termassist/internal/termassist/app"
	"github.com/bdobrica/termassist/internal/termassist/config"
	"github.com/bdobrica/termassist/internal/termassist/observability"
)

var (
	cfgFile  string
	threadID string
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEDAB0")).Bold(true)
)

func errorText(s string) string { return errorStyle.Render(s) }

func scrub(err error) string { return observability.Scrub(err) }

// NewRootCmd creates the termassist command tree. Without a subcommand it
// starts the chat REPL.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "termassist",
		Short:         "A terminal assistant that organises directories with an LLM agent",
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runChat,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&threadID, "thread", "", "conversation thread to resume (default: a new thread)")

	root.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start the interactive assistant",
			Args:  cobra.NoArgs,
			RunE:  runChat,
		},
		newLoadCmd(),
		newListCmd(),
		newResetCmd(),
		newThreadsCmd(),
		newTurnsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "termassist", version.Info())
			},
		},
	)
	return root
}

// openApp loads the configuration, configures logging, and wires the app.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr(), cfg.LLM.APIKey, cfg.Redis.Password)
	return app.New(cmd.Context(), cfg,
		app.WithIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Chat(cmd.Context(), threadID)
}

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load DIR",
		Short: "Queue a directory's entries for batched listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.String())
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var attribute string
	cmd := &cobra.Command{
		Use:   "list DIR",
		Short: "Print the next batch of a directory's entries",
		Long: `Print the next batch of queued entries with one attribute each.
The directory is loaded first if it has no queue. Each call consumes the
batch it prints.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			l, err := a.List(cmd.Context(), args[0], attribute)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), l.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&attribute, "attribute", "a", "name", "attribute to show: name, type, size, modified or created")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset DIR",
		Short: "Discard a directory's queue so the next load rescans it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset queue for %s.\n", args[0])
			return nil
		},
	}
}

func newThreadsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List stored conversation threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			threads, err := a.Threads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, titleStyle.Render("THREAD")+"\tREMAINING\tUPDATED")
			for _, t := range threads {
				fmt.Fprintf(w, "%s\t%d\t%s\n", t.ThreadID, t.Remaining, t.UpdatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum threads to show")
	return cmd
}

func newTurnsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "turns",
		Short: "Show the turn log of the --thread conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threadID == "" {
				return fmt.Errorf("--thread is required")
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			turns, err := a.Turns(cmd.Context(), threadID, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRACE\tRESULT\tTOOLS\tMS\tMESSAGE")
			for _, t := range turns {
				result := t.Result
				if t.ErrorMsg != "" {
					result += ": " + t.ErrorMsg
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", t.TraceID, result, t.ToolCalls, t.DurationMS, t.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum turns to show")
	return cmd
}
