package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/fs"
	"docqa/internal/adapter/parser"
	"docqa/internal/adapter/storage"
	"docqa/internal/usecase"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the raw document store",
	Long: `Manage documents uploaded into the local document store under
.docqa/docs. Stored documents keep their original bytes and can be
indexed or re-indexed by key at any time.

Examples:
  docqa docs add report.pdf       # Store and index a document
  docqa docs list                 # List stored documents
  docqa docs rm report-<key>.pdf  # Remove a stored document`,
}

var docsNoIndex bool

var docsAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Store a document and index it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsAdd,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE:  runDocsList,
}

var docsIndexCmd = &cobra.Command{
	Use:   "index <key>",
	Short: "Index a stored document by key",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsIndex,
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Remove a stored document and its index records",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsRm,
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsAddCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsIndexCmd)
	docsCmd.AddCommand(docsRmCmd)
	docsAddCmd.Flags().BoolVar(&docsNoIndex, "no-index", false, "store the document without indexing it")
}

func openDocStore() (*storage.LocalStore, error) {
	if err := config.EnsureDataDir(GetRootDir()); err != nil {
		return nil, fmt.Errorf("failed to create .docqa directory: %w", err)
	}
	return storage.NewLocalStore(config.DocumentsDir(GetRootDir()))
}

func newIngest(cfg *config.Config, docs *storage.LocalStore) (*usecase.IngestUseCase, func() error, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}
	idx, err := openIndex(cfg, GetRootDir(), embedder)
	if err != nil {
		return nil, nil, err
	}
	ck, err := chunker.NewTextChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		idx.Close()
		return nil, nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	u := usecase.NewIngestUseCase(
		parser.NewDocumentParser(),
		ck,
		embedder,
		idx,
		docs,
		fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes),
		cfg.Ingest.MaxFileSizeMB,
	)
	return u, idx.Close, nil
}

func runDocsAdd(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}

	filename := filepath.Base(path)
	if err := storage.ValidateUpload(filename, info.Size(), cfg.Ingest.MaxFileSizeMB); err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	docs, err := openDocStore()
	if err != nil {
		return err
	}

	contentType := parser.ContentTypeForPath(filename)
	doc, err := docs.Save(raw, filename, contentType)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	fmt.Printf("Stored %s as %s\n", filename, doc.Key)

	if docsNoIndex {
		return nil
	}

	ingestUC, closeIdx, err := newIngest(cfg, docs)
	if err != nil {
		return err
	}
	defer closeIdx()

	n, err := ingestUC.IndexStored(cmd.Context(), doc.Key)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Printf("Indexed %s (%d chunks)\n", doc.Key, n)
	return nil
}

func runDocsList(cmd *cobra.Command, args []string) error {
	docs, err := openDocStore()
	if err != nil {
		return err
	}

	stored, err := docs.List()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(stored) == 0 {
		fmt.Println("No documents stored.")
		return nil
	}

	fmt.Printf("%-50s %-30s %10s  %s\n", "KEY", "FILENAME", "SIZE", "UPLOADED")
	for _, d := range stored {
		fmt.Printf("%-50s %-30s %10d  %s\n", d.Key, d.OriginalFilename, d.Size, d.UploadedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runDocsIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	docs, err := openDocStore()
	if err != nil {
		return err
	}

	ingestUC, closeIdx, err := newIngest(cfg, docs)
	if err != nil {
		return err
	}
	defer closeIdx()

	n, err := ingestUC.IndexStored(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Printf("Indexed %s (%d chunks)\n", args[0], n)
	return nil
}

func runDocsRm(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	docs, err := openDocStore()
	if err != nil {
		return err
	}

	if err := docs.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	ingestUC, closeIdx, err := newIngest(cfg, docs)
	if err != nil {
		return err
	}
	defer closeIdx()

	n, err := ingestUC.RemoveSource(args[0])
	if err != nil {
		return fmt.Errorf("failed to remove index records: %w", err)
	}

	fmt.Printf("Removed %s (%d chunks dropped)\n", args[0], n)
	return nil
}
