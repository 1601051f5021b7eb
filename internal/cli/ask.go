package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/cache"
	"docqa/internal/usecase"
)

var (
	askQuestion   string
	askTopK       int
	askMaxContext int
	askJSON       bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about indexed documents",
	Long: `Ask a question and get an answer grounded in the indexed documents,
with the source documents that informed it.

Examples:
  docqa ask -q "What is the refund policy?"
  docqa ask -q "How do I configure TLS?" --top-k 10 --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().IntVar(&askMaxContext, "max-context", 0, "context budget in characters (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dbPath := config.IndexDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'docqa index' first")
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	idx, err := openIndex(cfg, GetRootDir(), embedder)
	if err != nil {
		return err
	}
	defer idx.Close()

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}
	maxContext := cfg.Retrieve.MaxContextChars
	if askMaxContext > 0 {
		maxContext = askMaxContext
	}

	answerUC := usecase.NewAnswerUseCase(
		embedder,
		idx,
		generator,
		cache.NewRetrievalCache(100, 5*time.Minute),
		topK,
		maxContext,
	)

	answer, err := answerUC.Answer(cmd.Context(), askQuestion)
	if err != nil {
		return err
	}

	if askJSON {
		history := answerUC.History()
		out, err := json.MarshalIndent(history[len(history)-1], "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Printf("\nSources:\n")
		for _, s := range answer.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}
	return nil
}
