// ABOUTME: CLI commands for the AI collaborator.
// ABOUTME: Provides analyze, ask, prompt, and insights subcommands with glamour rendering.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/2389-research/freewrite/internal/insights"
	"github.com/2389-research/freewrite/internal/journal"
	"github.com/2389-research/freewrite/internal/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Generate AI insights for an entry",
	Long:  "Send an entry to the AI collaborator and cache the insights it returns beside the entry.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var askCmd = &cobra.Command{
	Use:   "ask <id> <question...>",
	Short: "Ask a follow-up question about an entry's insights",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

var promptCmd = &cobra.Command{
	Use:   "prompt <id>",
	Short: "Append a guiding question to an entry",
	Long:  "Ask the AI collaborator for one question that nudges the writing forward and append it to the entry.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrompt,
}

var insightsCmd = &cobra.Command{
	Use:   "insights <id>",
	Short: "Show cached insights for an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsights,
}

// Flags
var (
	insightsRaw  bool
	insightsCopy bool
)

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteAll

func init() {
	rootCmd.AddCommand(analyzeCmd, askCmd, promptCmd, insightsCmd)

	insightsCmd.Flags().BoolVar(&insightsRaw, "raw", false, "Print markdown without terminal styling")
	insightsCmd.Flags().BoolVar(&insightsCopy, "copy", false, "Copy the insights to the clipboard")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	sections, err := globalIndex.Analyze(cmd.Context(), entry.ID)
	if err != nil {
		return describeAIError(err)
	}
	return printInsights(cmd, sections, false)
}

func runAsk(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	question := strings.Join(args[1:], " ")
	sections, err := globalIndex.FollowUp(cmd.Context(), entry.ID, question)
	if err != nil {
		return describeAIError(err)
	}
	return printInsights(cmd, sections, false)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	question, err := globalIndex.Prompt(cmd.Context(), entry.ID)
	if err != nil {
		return describeAIError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✨ %s\n", question)
	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	entry, err := globalIndex.Find(args[0])
	if err != nil {
		return err
	}
	if err := globalIndex.Select(entry.ID); err != nil {
		globalLogger.Warn("entry body unavailable", "id", entry.ID, "err", err)
	}
	sections := globalIndex.ActiveInsights()
	if len(sections) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No insights yet. Run: freewrite analyze "+shortID(entry))
		return nil
	}
	if insightsCopy {
		if err := writeClipboard(insights.Render(sections)); err != nil {
			return fmt.Errorf("failed to copy insights: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Insights copied to clipboard.")
		return nil
	}
	return printInsights(cmd, sections, insightsRaw)
}

func printInsights(cmd *cobra.Command, sections []models.InsightSection, raw bool) error {
	md := insights.Render(sections)
	if raw {
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	}
	out, err := renderMarkdown(md)
	if err != nil {
		globalLogger.Debug("markdown render failed, printing raw", "err", err)
		out = md + "\n"
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func describeAIError(err error) error {
	switch {
	case errors.Is(err, journal.ErrNoGenerator):
		return errors.New("no AI collaborator configured; run `freewrite setup` or set OPENAI_API_KEY")
	case errors.Is(err, journal.ErrTooShort):
		return errors.New("keep writing: the entry is too short for the collaborator")
	case errors.Is(err, journal.ErrInFlight):
		return errors.New("a request for this entry is already running")
	}
	return err
}
