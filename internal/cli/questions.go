package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mathfly-quiz-service/internal/domain"
	"mathfly-quiz-service/internal/infra/memory"
)

// NewQuestionsCmd prints a random sample of a phase, the way a session would draw it.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "questions <phase>",
		Short: "Print a random question sample for a phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			phase, err := domain.ParsePhase(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := openPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}
			loader, err := questionLoader(cfg, pool)
			if err != nil {
				return err
			}

			qs, err := memory.NewQuestionProvider(loader, 0).GetQuestions(ctx, phase, count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, q := range qs {
				fmt.Fprintf(out, "%d. [%s] %s\n", i+1, q.ID, q.Prompt)
				fmt.Fprintf(out, "   a) %s  b) %s  c) %s  d) %s  (correct: %s)\n", q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", domain.DefaultQuestionCount, "number of questions to draw")
	return cmd
}
