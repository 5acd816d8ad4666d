package cli

import (
	"fmt"
	"log"
	"os"

	"hu-quiz-engine/internal/config"
	"hu-quiz-engine/internal/domain"
	"github.com/spf13/cobra"
)

// NewPublishCmd ingests a question-set JSON file into a chapter. The file
// follows the admin exchange format; an invalid set rejects the whole publish
// and leaves any previously published list intact.
func NewPublishCmd(configPath *string) *cobra.Command {
	var subject, chapter string

	cmd := &cobra.Command{
		Use:   "publish <questions.json>",
		Short: "Validate and publish a chapter's question set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" || chapter == "" {
				return fmt.Errorf("both --subject and --chapter are required")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			questions, err := domain.ParseQuestionSet(data)
			if err != nil {
				return err
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL != "" {
				if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
					return err
				}
			}

			eng, closeStores, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			if err := eng.PublishChapter(cmd.Context(), subject, chapter, questions); err != nil {
				return err
			}
			log.Printf("published %d questions to %s", len(questions), domain.ChapterID(subject, chapter))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "subject name")
	cmd.Flags().StringVar(&chapter, "chapter", "", "chapter name")
	return cmd
}
