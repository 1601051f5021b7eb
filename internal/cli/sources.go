package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/config"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List indexed sources",
	Long: `List every indexed source with its chunk count and last index time.

Examples:
  docqa sources
  docqa sources --json
  docqa sources rm docs/old.md`,
	RunE: runSources,
}

var sourcesRmCmd = &cobra.Command{
	Use:   "rm <source-id>",
	Short: "Remove a source from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRm,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesRmCmd)
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output as JSON")
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dbPath := config.IndexDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'docqa index' first")
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	idx, err := openIndex(cfg, GetRootDir(), embedder)
	if err != nil {
		return err
	}
	defer idx.Close()

	sources, err := idx.ListSources()
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if sourcesJSON {
		out, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(sources) == 0 {
		fmt.Println("No sources indexed.")
		return nil
	}

	fmt.Printf("%-50s %8s  %s\n", "SOURCE", "CHUNKS", "LAST INDEXED")
	for _, s := range sources {
		fmt.Printf("%-50s %8d  %s\n", s.SourceID, s.ChunkCount, s.LastIndexedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSourcesRm(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	idx, err := openIndex(cfg, GetRootDir(), embedder)
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.Delete(args[0])
	if err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	if n == 0 {
		fmt.Printf("Source not found: %s\n", args[0])
		return nil
	}
	fmt.Printf("Removed %s (%d chunks)\n", args[0], n)
	return nil
}
