package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/ranker"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes               = "Yes"
	PromptNo                = "No"
	PromptCandidatesToFile  = "Dump candidates to file"
	PromptCandidatesByNames = "Show candidate names"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Start evaluation?",
	Items: []string{PromptYes, PromptNo, PromptCandidatesByNames, PromptCandidatesToFile},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Score the discovered candidates of a session and write the ranked reports",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	addKeyFlags(rankCmd)
	rankCmd.Flags().StringP("tracking-id", "t", "", "tracking id for run events and the output sub directory")
	rankCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before scoring")
}

func addKeyFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "user id of the intake session")
	cmd.Flags().StringP("chat", "c", "", "chat id of the intake session")
	cmd.Flags().StringP("session", "s", "", "session uuid of the intake session")
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the leadscout ranking", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	key, err := keyFromFlags(cmd.Flags())
	if err != nil {
		logger.Fatal("session key is incomplete", zap.Error(err), zap.String("hint", "set --user, --chat and --session"))
	}
	trackingID, _ := cmd.Flags().GetString("tracking-id")

	b, err := openBackend(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer b.close(ctx)

	r, err := newRanker(ctx, config, b, logger)
	if err != nil {
		logger.Fatal("preparing the ranker", zap.Error(err))
	}

	input, err := r.Load(ctx, key)
	if err != nil {
		logger.Fatal("loading the session", zap.Error(err))
	}

	logger.Info("session loaded",
		zap.Int("conversation_entries", input.Transcript.Len()),
		zap.Bool("profile", !input.Profile.IsEmpty()),
		zap.Int("candidates", len(input.Candidates)),
	)

	if len(input.Candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates discovered for this session"))
		return
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	for !autoApprove {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		proceed, err := handleAction(action, logger, input)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
		if proceed {
			break
		}
	}

	outcome, err := r.Rank(ctx, input, trackingID)
	if err != nil {
		logger.Fatal("ranking failed", zap.Error(err))
	}

	summary := outcome.Summary()
	logger.Info("ranking finished",
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("failed", summary.Failed),
		zap.Strings("failed_companies", summary.FailedNames),
		zap.Int("input_tokens", summary.InputTokens),
		zap.Int("output_tokens", summary.OutputTokens),
		zap.Float64("estimated_cost_usd", summary.CostUSD),
		zap.String("report", outcome.Paths.AllMarkdown),
	)
}

// handleAction reports whether scoring should start.
func handleAction(action string, logger *zap.Logger, input *ranker.Input) (bool, error) {
	switch action {
	case PromptYes:
		return true, nil
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return false, errExit
	case PromptCandidatesByNames:
		list := toCandidates(input.Candidates)
		logger.Info("current list of candidates", zap.Int("count", list.Len()), zap.Strings("names", list.Names()))
		return false, nil
	case PromptCandidatesToFile:
		filename, err := toCandidates(input.Candidates).DumpToTmpFile()
		if err != nil {
			return false, fmt.Errorf("dump candidates to file: %w", err)
		}
		logger.Info("dumping candidates to file", zap.String("filename", filename))
		return false, nil
	default:
		return false, fmt.Errorf("invalid action: %s", action)
	}
}

func toCandidates(list []candidates.Candidate) *candidates.Candidates {
	out := &candidates.Candidates{Items: make([]*candidates.Candidate, 0, len(list))}
	for i := range list {
		out.Items = append(out.Items, &list[i])
	}
	return out
}
