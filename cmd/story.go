package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/vibekids/internal/document"
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Manage the story library",
}

var storyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		stories, err := s.Stories().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list stories: %w", err)
		}
		if len(stories) == 0 {
			fmt.Println("No stories yet.")
			return nil
		}

		fmt.Printf("%-38s  %-32s  %6s  %8s  %s\n", "ID", "Title", "Words", "Sections", "Minutes")
		fmt.Println(strings.Repeat("─", 100))
		for _, st := range stories {
			fmt.Printf("%-38s  %-32s  %6d  %8d  %d\n",
				st.ID, truncate(st.Title, 32), st.WordCount, len(st.Sections), st.ReadingTime)
		}
		fmt.Printf("\n%d stories\n", len(stories))
		return nil
	},
}

var storyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add a plain-text story; form feeds split it into sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := document.Import(cmd.Context(), document.PlainTextExtractor{}, s.Stories(), title, f)
		if err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}
		fmt.Printf("Imported %q as %s (%d words, %d sections)\n", st.Title, st.ID, st.WordCount, len(st.Sections))
		return nil
	},
}

func init() {
	storyImportCmd.Flags().String("title", "", "Story title (default: file name)")

	storyCmd.AddCommand(storyListCmd)
	storyCmd.AddCommand(storyImportCmd)
}
