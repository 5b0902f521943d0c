package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"copyloop/internal/config"
	"copyloop/internal/content"
	"copyloop/internal/detector"
	"copyloop/internal/feedback"
	"copyloop/internal/genclient"
	"copyloop/internal/orchestrator"
	"copyloop/internal/qualeval"
	"copyloop/internal/sink"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// #region main
func main() {
	configPath := config.EnvOr("COPYLOOP_CONFIG", "copyloop.yaml")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	store, err := feedback.NewStore(cfg.DBPath, logger)
	if err != nil {
		log.Fatalf("failed to open feedback store: %v", err)
	}
	defer store.Close()

	gen, err := genclient.NewClient(genclient.Config{
		BaseURL: cfg.Generator.URL,
		APIKey:  cfg.Generator.APIKey,
	}, logger)
	if err != nil {
		log.Fatalf("failed to init generator client: %v", err)
	}

	classifier, err := detector.NewClient(detector.ClientConfig{
		BaseURL: cfg.Classifier.URL,
		APIKey:  cfg.Classifier.APIKey,
	}, logger)
	if err != nil {
		log.Fatalf("failed to init classifier client: %v", err)
	}
	ensemble := detector.NewEnsemble(classifier, nil, logger)

	var evaluator orchestrator.Evaluator
	if cfg.Evaluator.URL != "" {
		ev, err := qualeval.NewClient(qualeval.Config{
			BaseURL: cfg.Evaluator.URL,
			APIKey:  cfg.Evaluator.APIKey,
		}, logger)
		if err != nil {
			log.Fatalf("failed to init evaluator client: %v", err)
		}
		evaluator = ev
	}

	outSink, err := sink.NewFileSink(cfg.OutputDir, logger)
	if err != nil {
		log.Fatalf("failed to init output sink: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	orch := orchestrator.New(store, gen, ensemble, evaluator, outSink,
		orchestrator.Config{ExplorationRate: cfg.ExplorationRate, Controls: cfg.Controls},
		rng, logger)

	fmt.Println("Copyloop controller ready.")
	fmt.Printf("  DB: %s | Generator: %s | Output: %s\n", cfg.DBPath, cfg.Generator.URL, cfg.OutputDir)
	fmt.Printf("  Kinds: %s\n", kindList())
	fmt.Println("Enter: subject | kind [| extra instructions]")
	fmt.Println("       correct attempt-id | corrected text [| category]  (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		if rest, ok := strings.CutPrefix(line, "correct "); ok {
			if err := recordCorrection(store, rest); err != nil {
				fmt.Printf("correction failed: %v\n", err)
			} else {
				fmt.Println("correction recorded")
			}
			continue
		}

		req, err := parseRequest(line)
		if err != nil {
			fmt.Printf("invalid request: %v\n", err)
			continue
		}

		outcome, err := orch.Run(context.Background(), req)
		if err != nil {
			var gerr *orchestrator.GenerationError
			if errors.As(err, &gerr) {
				fmt.Printf("FAILED after %d attempts (%s): %s\n", gerr.AttemptCount, gerr.FailureClass, gerr.Reason)
				for name, score := range gerr.LastScores {
					fmt.Printf("  %s: %.1f\n", name, score)
				}
			} else {
				fmt.Printf("error: %v\n", err)
			}
			continue
		}

		fmt.Printf("\n%s\n\n", outcome.Text)
		fmt.Printf("[%s] attempts=%d restarts=%d composite=%.1f\n",
			outcome.RequestID, outcome.Attempts, outcome.Restarts, outcome.Composite)
	}
}

// #endregion main

// #region helpers

// parseRequest splits "subject | kind [| extra]" and assembles the base
// prompt from the kind's envelope.
func parseRequest(line string) (orchestrator.Request, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return orchestrator.Request{}, fmt.Errorf("expected 'subject | kind'")
	}
	subject := strings.TrimSpace(parts[0])
	kind := content.Kind(strings.TrimSpace(parts[1]))
	if subject == "" {
		return orchestrator.Request{}, fmt.Errorf("subject is required")
	}
	spec, err := content.SpecFor(kind)
	if err != nil {
		return orchestrator.Request{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s for %s.", strings.ReplaceAll(string(kind), "_", " "), subject)
	fmt.Fprintf(&b, " Keep it between %d and %d words.", spec.MinWords, spec.MaxWords)
	if len(parts) > 2 {
		if extra := strings.TrimSpace(strings.Join(parts[2:], "|")); extra != "" {
			b.WriteString(" " + extra)
		}
	}

	return orchestrator.Request{
		Subject:      subject,
		Kind:         kind,
		BasePrompt:   b.String(),
		SystemPrompt: "You are a copywriter. Write naturally, the way a person talks.",
	}, nil
}

// recordCorrection parses "attempt-id | corrected text [| category]" and
// stores the edit as learning input against the attempt's original text.
func recordCorrection(store *feedback.Store, rest string) error {
	parts := strings.Split(rest, "|")
	if len(parts) < 2 {
		return fmt.Errorf("expected 'attempt-id | corrected text'")
	}
	attemptID := strings.TrimSpace(parts[0])
	corrected := strings.TrimSpace(parts[1])
	if attemptID == "" || corrected == "" {
		return fmt.Errorf("attempt id and corrected text are required")
	}
	category := "manual_edit"
	if len(parts) > 2 {
		if c := strings.TrimSpace(parts[2]); c != "" {
			category = c
		}
	}

	original, err := store.AttemptText(attemptID)
	if err != nil {
		return err
	}
	return store.InsertCorrection(feedback.Correction{
		ID:        uuid.New().String(),
		AttemptID: attemptID,
		Original:  original,
		Corrected: corrected,
		Category:  category,
		Approved:  true,
	})
}

func kindList() string {
	kinds := content.All()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// #endregion helpers
