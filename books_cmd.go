package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kinyabible/audiobible/content"
)

var booksTestament string

var booksCmd = &cobra.Command{
	Use:   "books [QUERY]",
	Short: "List or search the books",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		catalog := content.NewCatalog()

		var books []content.Book
		if len(args) == 1 {
			books = catalog.Search(args[0])
			if len(books) == 0 {
				return fmt.Errorf("no book matches %q", args[0])
			}
		} else {
			switch booksTestament {
			case "":
				books = catalog.Books("")
			case "old":
				books = catalog.Books(content.OldTestament)
			case "new":
				books = catalog.Books(content.NewTestament)
			default:
				return fmt.Errorf("testament must be old or new, got %q", booksTestament)
			}
		}

		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		for _, b := range books {
			chapters := "chapters"
			if b.Chapters == 1 {
				chapters = "chapter"
			}
			fmt.Printf("%3d  %-18s %s\n", b.ID, b.Name,
				dim.Render(fmt.Sprintf("%d %s", b.Chapters, chapters)))
		}
		return nil
	},
}

func init() {
	booksCmd.Flags().StringVarP(&booksTestament, "testament", "t", "", "filter by testament (old/new)")
}
