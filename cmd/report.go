package cmd

import (
	"log"
	"os"

	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/ranking"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Convert a ranked markdown report into a spreadsheet",
	Run: func(cmd *cobra.Command, _ []string) {
		report(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("markdown", "m", ranking.AllMarkdownFile, "ranked markdown report to read")
	reportCmd.Flags().StringP("out", "o", ranking.AllXLSXFile, "spreadsheet to write")
}

func report(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	in, _ := cmd.Flags().GetString("markdown")
	out, _ := cmd.Flags().GetString("out")

	file, err := os.Open(in)
	if err != nil {
		logger.Fatal("opening the markdown report", zap.Error(err))
	}
	defer file.Close()

	rows, err := ranking.ParseMarkdown(file)
	if err != nil {
		logger.Fatal("parsing the markdown report", zap.Error(err), zap.String("file", in))
	}

	data, err := ranking.XLSX(rows)
	if err != nil {
		logger.Fatal("rendering the spreadsheet", zap.Error(err))
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		logger.Fatal("writing the spreadsheet", zap.Error(err))
	}

	logger.Info("spreadsheet written", zap.String("file", out), zap.Int("rows", len(rows)))
}
