package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"archupdates/internal/ui"
	"archupdates/pkg/news"
)

var (
	newsAll    bool
	newsFull   bool
	newsFormat string
	newsYes    bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show unread Arch Linux news",
	Long: `Fetch the Arch Linux news feed and list the entries published since
the later of the last full system upgrade and the last time news was
marked as read.

Examples:
  archupdates news                    # Unread news
  archupdates news --all --full       # Every entry with its text
  archupdates news read               # Mark news as read`,
	Args: cobra.NoArgs,
	RunE: runNews,
}

var newsReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Mark all news as read",
	Args:  cobra.NoArgs,
	RunE:  runNewsRead,
}

func init() {
	newsCmd.Flags().BoolVarP(&newsAll, "all", "a", false, "list every entry of the feed")
	newsCmd.Flags().BoolVar(&newsFull, "full", false, "print the text of each entry")
	newsCmd.Flags().StringVarP(&newsFormat, "format", "f", "", "output format (text, json, yaml)")
	newsReadCmd.Flags().BoolVarP(&newsYes, "yes", "y", false, "do not ask for confirmation")

	newsCmd.AddCommand(newsReadCmd)
}

func runNews(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := outputFormat(newsFormat)
	if err != nil {
		return err
	}
	svc, err := newServices(ctx, nil)
	if err != nil {
		return err
	}

	var items []news.Item
	fetch := func() error {
		var err error
		items, err = svc.feed.Fetch(ctx)
		return err
	}
	if format == ui.FormatText {
		err = ui.WithSpinner("Fetching news...", fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return err
	}
	if !newsAll {
		items = news.Since(items, svc.newsSince())
	}

	out := cmd.OutOrStdout()
	switch format {
	case ui.FormatJSON:
		return ui.RenderJSON(out, items)
	case ui.FormatYAML:
		return ui.RenderYAML(out, items)
	}

	if len(items) == 0 {
		ui.SuccessMsg("No unread news")
		return nil
	}
	if !newsFull {
		ui.RenderNews(out, items)
		return nil
	}
	for i, item := range items {
		if i > 0 {
			fmt.Fprintln(out)
		}
		ui.RenderNewsItem(out, item)
	}
	return nil
}

func runNewsRead(cmd *cobra.Command, args []string) error {
	svc, err := newServices(cmd.Context(), nil)
	if err != nil {
		return err
	}

	if !newsYes {
		confirmed, err := ui.Confirm("Mark all news as read?", true)
		if err != nil {
			return err
		}
		if !confirmed {
			return ErrAborted
		}
	}

	now := time.Now()
	if err := svc.state.MarkNewsRead(now); err != nil {
		return fmt.Errorf("failed to mark news as read: %w", err)
	}
	ui.SuccessMsg("News marked as read at %s", now.Format(time.DateTime))
	return nil
}
