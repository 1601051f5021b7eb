package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/fs"
	"docqa/internal/adapter/parser"
	"docqa/internal/usecase"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents for question answering",
	Long: `Index a document file or a directory of documents.
The index is stored in .docqa/index.db within the root directory.

Examples:
  docqa index ./docs            # Index every document under ./docs
  docqa index manual.pdf        # Index a single file
  docqa index ./docs --rebuild  # Discard the index and start over`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "discard the existing index before indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	cfg := GetConfig()

	if indexRebuild {
		dbPath := config.IndexDBPath(GetRootDir())
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing index: %w", err)
		}
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

	ck, err := chunker.NewTextChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return fmt.Errorf("invalid chunking config: %w", err)
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	ingestUC := usecase.NewIngestUseCase(
		parser.NewDocumentParser(),
		ck,
		embedder,
		idx,
		nil,
		walker,
		cfg.Ingest.MaxFileSizeMB,
	)

	ctx := cmd.Context()

	if !info.IsDir() {
		contentType := parser.ContentTypeForPath(path)
		if contentType == "" {
			return fmt.Errorf("unsupported file type: %s", path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		n, err := ingestUC.IndexDocument(ctx, filepath.Base(path), raw, contentType)
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		fmt.Printf("Indexed %s (%d chunks)\n", filepath.Base(path), n)
		return nil
	}

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	progressCallback := func(done, total int, currentFile string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	result, err := ingestUC.IndexDirectory(ctx, path, progressCallback)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed:  %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped:  %d\n", result.FilesSkipped)
	fmt.Printf("  Chunks created: %d\n", result.ChunksCreated)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", config.IndexDBPath(GetRootDir()))
	return nil
}
