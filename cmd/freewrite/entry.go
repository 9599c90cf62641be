// ABOUTME: CLI commands for writing and managing freewrite entries.
// ABOUTME: Provides new, list, search, show, save, delete, and favorite subcommands.
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/2389-research/freewrite/internal/journal"
	"github.com/2389-research/freewrite/internal/models"
)

const entryTimeLayout = "2006-01-02 15:04:05"

var newCmd = &cobra.Command{
	Use:   "new [text...]",
	Short: "Start a new entry",
	Long: heredoc.Doc(`
		Create an entry. Without text, the body is seeded with a prompt for
		the category and an optional mood emoji.

		Examples:
		  freewrite new --category vent --mood tired
		  freewrite new -c plan "ship the release, then rest"
		  freewrite new --photo ~/Pictures/sunset.png "the sky tonight"
	`),
	RunE: runNew,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List entries, newest first",
	RunE:    runList,
}

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search entry text",
	Long:  "Find entries whose text contains the query, ignoring case. Newest matches come first.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an entry",
	Long:  "Print the full text of an entry. The id may be any unique prefix.",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var saveCmd = &cobra.Command{
	Use:   "save <id>",
	Short: "Replace the text of an entry",
	Long: heredoc.Doc(`
		Replace the body of an entry with --text, or with stdin when --text
		is not given.

		Example:
		  $EDITOR draft.md && freewrite save 3f2a < draft.md
	`),
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an entry with its insights and photo",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var favoriteCmd = &cobra.Command{
	Use:     "favorite <id>",
	Aliases: []string{"fav"},
	Short:   "Toggle the favorite flag of an entry",
	Args:    cobra.ExactArgs(1),
	RunE:    runFavorite,
}

// Flags
var (
	newCategory   string
	newMood       string
	newPhoto      string
	listLimit     int
	listCategory  string
	listFavorites bool
	saveText      string
	searchLimit   int
)

func init() {
	rootCmd.AddCommand(newCmd, listCmd, searchCmd, showCmd, saveCmd, deleteCmd, favoriteCmd)

	newCmd.Flags().StringVarP(&newCategory, "category", "c", string(models.DefaultCategory), "Entry category: Vent, Explore, or Plan")
	newCmd.Flags().StringVarP(&newMood, "mood", "m", "", "Mood for the seed emoji, e.g. happy, tired, anxious")
	newCmd.Flags().StringVar(&newPhoto, "photo", "", "Image file to attach")

	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of entries to show (0 for all)")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "Only show entries of this category")
	listCmd.Flags().BoolVar(&listFavorites, "favorites", false, "Only show favorites")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results (0 for all)")

	saveCmd.Flags().StringVar(&saveText, "text", "", "New body text (default: read stdin)")
}

func runNew(cmd *cobra.Command, args []string) error {
	category, ok := models.ParseCategory(newCategory)
	if !ok {
		return fmt.Errorf("unknown category %q (want Vent, Explore, or Plan)", newCategory)
	}

	body := strings.Join(args, " ")
	if body == "" {
		var emoji string
		if newMood != "" {
			mood, ok := models.ParseMood(newMood)
			if !ok {
				return fmt.Errorf("unknown mood %q", newMood)
			}
			emoji = mood.Emoji
		}
		body = journal.SeedBody(category, emoji)
	}

	attachment, err := readAttachment(newPhoto)
	if err != nil {
		return err
	}

	entry, err := globalIndex.Create(category, body, attachment)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", entry.Filename())
	if entry.Attachment != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Photo: %s\n", entry.Attachment)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	var category models.Category
	if listCategory != "" {
		c, ok := models.ParseCategory(listCategory)
		if !ok {
			return fmt.Errorf("unknown category %q", listCategory)
		}
		category = c
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := globalIndex.WaitForPreviews(ctx); err != nil {
		globalLogger.Warn("previews still loading", "err", err)
	}

	out := cmd.OutOrStdout()
	shown := 0
	for _, e := range globalIndex.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if listFavorites && !e.IsFavorite {
			continue
		}
		fmt.Fprintln(out, formatListLine(e))
		shown++
		if listLimit > 0 && shown == listLimit {
			break
		}
	}
	if shown == 0 {
		fmt.Fprintln(out, "No entries found.")
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	results, err := globalIndex.Search(cmd.Context(), strings.Join(args, " "), searchLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching entries found.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "--- %s  %s  [%s]%s\n", shortID(r.Entry), r.Entry.CreatedAt.Format(entryTimeLayout), r.Entry.Category, favoriteMark(r.Entry))
		fmt.Fprintf(out, "  %s\n\n", r.Snippet)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	if err := globalIndex.Select(entry.ID); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "--- %s [%s]%s\n", entry.CreatedAt.Format(entryTimeLayout), entry.Category, favoriteMark(entry))
	if entry.Attachment != "" {
		fmt.Fprintf(out, "Photo: %s\n", entry.Attachment)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, globalIndex.ActiveText())
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	body, err := stdinOrText(cmd, saveText, cmd.Flags().Changed("text"))
	if err != nil {
		return err
	}
	if err := globalIndex.Save(entry.ID, body); err != nil {
		return err
	}
	saved, _ := globalIndex.Entry(entry.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s\n", shortID(entry), saved.PreviewText)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	if err := globalIndex.Delete(entry.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", entry.Filename())
	return nil
}

func runFavorite(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	on, err := globalIndex.ToggleFavorite(entry.ID)
	if err != nil {
		return err
	}
	if on {
		fmt.Fprintf(cmd.OutOrStdout(), "★ %s is a favorite\n", shortID(entry))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer a favorite\n", shortID(entry))
	}
	return nil
}

func formatListLine(e models.Entry) string {
	return fmt.Sprintf("%s  %s  %-7s%s %s",
		shortID(e),
		e.CreatedAt.Format(entryTimeLayout),
		e.Category,
		favoriteMark(e),
		e.PreviewText,
	)
}

func favoriteMark(e models.Entry) string {
	if e.IsFavorite {
		return " ★"
	}
	return ""
}

func shortID(e models.Entry) string {
	return e.ID.String()[:8]
}

func photoExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
