package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/parafrasa/internal/patterns"
)

var patternsCategory string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and maintain the pattern catalog",
	Long: `The pattern catalog lists known academic boilerplate phrases grouped by
category. Risk analysis flags paragraphs that resemble them.

The embedded catalog is read-only; export it to a file and set patterns.path
(or --patterns) to maintain your own.`,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog categories or the phrases of one category",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCatalog(catalogPath(cmd))
		if err != nil {
			return err
		}

		headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
		if patternsCategory == "" {
			counts := db.Categories()
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println(headerStyle.Render(fmt.Sprintf("%d categories, %d phrases", len(names), len(db.Entries()))))
			for _, name := range names {
				fmt.Printf("  %-28s %d\n", name, counts[name])
			}
			return nil
		}

		var phrases []string
		for _, e := range db.Entries() {
			if e.Category == patternsCategory {
				phrases = append(phrases, e.Phrase)
			}
		}
		if len(phrases) == 0 {
			return fmt.Errorf("unknown or empty category: %s", patternsCategory)
		}
		fmt.Println(headerStyle.Render(patternsCategory))
		for _, p := range phrases {
			fmt.Printf("  %s\n", p)
		}
		return nil
	},
}

var patternsAddCmd = &cobra.Command{
	Use:   "add <category> <phrase...>",
	Short: "Add a phrase to a category of the catalog file",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := catalogPath(cmd)
		if path == "" {
			return errors.New("patterns.path is not set; the embedded catalog is read-only (see 'parafrasa patterns export')")
		}
		db, err := patterns.Load(path)
		if err != nil {
			return err
		}
		phrase := strings.Join(args[1:], " ")
		if err := db.Add(args[0], phrase); err != nil {
			return err
		}
		fmt.Printf("✓ Added to %s: %s\n", args[0], phrase)
		return nil
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the embedded catalog to a file for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("file already exists: %s", args[0])
		}
		db, err := patterns.Default()
		if err != nil {
			return err
		}
		if err := db.SaveAs(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Exported catalog: %s\n", args[0])
		fmt.Printf("\nTo use it:\n  parafrasa config init && $EDITOR ~/.parafrasa/config.yaml  # set patterns.path\n")
		return nil
	},
}

// catalogPath prefers --patterns over the configured patterns.path
func catalogPath(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("patterns"); f != nil && f.Changed {
		return f.Value.String()
	}
	return viper.GetString("patterns.path")
}

func openCatalog(path string) (*patterns.Database, error) {
	if path == "" {
		return patterns.Default()
	}
	return patterns.Load(path)
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsListCmd, patternsAddCmd, patternsExportCmd)

	patternsListCmd.Flags().StringVar(&patternsCategory, "category", "", "show the phrases of one category")
	patternsCmd.PersistentFlags().String("patterns", "", "pattern catalog path (default: patterns.path or the embedded catalog)")
}
