package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/config"
	"github.com/japaniel/easyquiz/pkg/pipeline"
	"github.com/japaniel/easyquiz/pkg/quiz"
	"github.com/japaniel/easyquiz/pkg/store"
)

func (a *app) generateCmd() *cobra.Command {
	var (
		kind      string
		questions int
		pushQuiz  bool
		broadcast bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Pick an article, scrape it and write both quizzes",
		Long: `Finds a recent article with enough annotated vocabulary, scrapes its text,
readings and dictionary tooltips, and writes the article file, the
pronunciation quiz, the definition quiz and the run log. With --push the
selected quiz is sent over LINE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			qt, err := quizType(kind)
			if err != nil {
				return err
			}
			p := a.pipeline(cmd.Context())
			res, err := p.Run(cmd.Context(), pipeline.Options{
				QuizType:  qt,
				Questions: questions,
				Push:      pushQuiz,
				Broadcast: broadcast,
				Progress:  a.progress(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n%s\n\n", res.Article.Title, res.Article.PublishedDate, res.URL)
			fmt.Fprintf(out, "単語意味クイズ解答：%s\n", res.AnswerKey)
			fmt.Fprintf(out, "words: %d, definitions: %d, questions: %d\n", res.Vocabulary.Len(), len(res.Definitions), len(res.Selected))
			if res.Sent {
				fmt.Fprintln(out, "quiz sent")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&kind, "type", "t", "", "quiz to push: definition or pronunciation (default from config)")
	f.IntVarP(&questions, "questions", "n", 0, fmt.Sprintf("number of questions, 1-%d (default from config)", config.MaxQuestions))
	f.BoolVar(&pushQuiz, "push", false, "send the selected quiz over LINE")
	f.BoolVar(&broadcast, "broadcast", false, "send to every follower instead of the configured user")
	return cmd
}

// progress renders definition scraping progress on stderr.
func (a *app) progress() func(float64, int, int) {
	return func(fraction float64, current, total int) {
		fmt.Fprintf(a.stderr, "\rdefinitions %d/%d (%3.0f%%)", current, total, fraction*100)
		if current == total {
			fmt.Fprintln(a.stderr)
		}
	}
}

func (a *app) pushCmd() *cobra.Command {
	var (
		kind      string
		broadcast bool
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send the last generated quiz over LINE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			qt, err := quizType(kind)
			if err != nil {
				return err
			}
			if qt == "" {
				qt = a.cfg.QuizType
			}
			if err := a.pipeline(cmd.Context()).Push(cmd.Context(), qt, broadcast); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s quiz sent\n", qt)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "", "definition or pronunciation (default from config)")
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "send to every follower instead of the configured user")
	return cmd
}

func (a *app) announceCmd() *cobra.Command {
	var (
		withVocabulary bool
		broadcast      bool
	)
	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Send the exam-day greeting and sticker over LINE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.pipeline(cmd.Context()).Announce(cmd.Context(), withVocabulary, broadcast); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "announcement sent")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withVocabulary, "with-vocabulary", false, "also send the last article's vocabulary")
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "send to every follower instead of the configured user")
	return cmd
}

func (a *app) gradeCmd() *cobra.Command {
	var answer, reply string
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Score an answer against the last definition quiz",
		Example: `  easyquiz grade --answer BDACE
  easyquiz grade --reply "$(pbpaste)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			student := ""
			if reply != "" {
				var ok bool
				student, answer, ok = quiz.ParseReply(reply)
				if !ok {
					return fmt.Errorf("reply has no 解答 line: %w", apperr.ErrInvalidValue)
				}
			}
			if strings.TrimSpace(answer) == "" {
				return fmt.Errorf("--answer or --reply is required: %w", apperr.ErrInvalidValue)
			}

			loc, _ := a.cfg.Location()
			log, err := store.RunLogFile{Path: a.cfg.Paths.RunLog, Location: loc}.Read()
			if err != nil {
				return err
			}
			if log.AnswerKey == "" {
				return fmt.Errorf("run log %s has no answer key (last run failed: %s): %w", a.cfg.Paths.RunLog, log.Failure, apperr.ErrInvalidValue)
			}

			key := quiz.AnswerKey(log.AnswerKey)
			out := cmd.OutOrStdout()
			if student != "" {
				fmt.Fprintf(out, "学生番号: %s\n", student)
			}
			fmt.Fprintf(out, "%d/%d\n", key.Score(answer), len(key))
			return nil
		},
	}
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "answer letters, e.g. ABCDE")
	cmd.Flags().StringVar(&reply, "reply", "", "a full student reply in the 返信フォーマット")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFileName
			if a.configPath != "" {
				path = a.configPath
			}
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
