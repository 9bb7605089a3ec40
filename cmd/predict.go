package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/pathfinder/internal/aptitude"
	"github.com/spigell/pathfinder/internal/logger"
	"github.com/spigell/pathfinder/internal/scoring"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score career profiles for a set of marks and print them as JSON",
	Long: `Score career profiles for a set of marks and print them as JSON.

Core marks are given in the order DSA, ML, DBMS, Python, Stats. Without
--marks every core mark is asked interactively.`,
	SilenceUsage: true,
	Example:      `  pathfinder predict --marks 95,40,90,80,40 --mark OOP=80 --mark HTML=60`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return predict(cmd)
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().Float64SliceP("marks", "m", nil, "five core marks: DSA, ML, DBMS, Python, Stats")
	predictCmd.Flags().StringArray("mark", nil, "additional subject mark as name=value, may be repeated")
}

func predict(cmd *cobra.Command) error {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer log.Sync()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}
	// A one-shot run has nothing to watch.
	config.Careers.Watch = false

	marks, err := cmd.Flags().GetFloat64Slice("marks")
	if err != nil {
		return err
	}
	extra, err := cmd.Flags().GetStringArray("mark")
	if err != nil {
		return err
	}

	if len(marks) == 0 {
		if marks, err = askCoreMarks(); err != nil {
			return err
		}
	}

	allMarks, err := subjectMarks(marks, extra)
	if err != nil {
		return err
	}

	scorer, err := newScorer(cmd.Context(), config, log)
	if err != nil {
		return err
	}

	results, err := scorer.Score(cmd.Context(), marks, allMarks)
	if err != nil {
		return err
	}

	log.Debug("prediction computed", zap.Int("results", len(results)))
	return writeResults(cmd.OutOrStdout(), results)
}

// subjectMarks names the core marks by subject and overlays name=value pairs.
func subjectMarks(core []float64, pairs []string) (scoring.Marks, error) {
	marks := make(scoring.Marks, len(core)+len(pairs))
	for i, mark := range core {
		if i < len(aptitude.CoreSubjects) {
			marks[aptitude.CoreSubjects[i]] = mark
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid mark %q, expected name=value", pair)
		}

		mark, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mark %q: %w", pair, err)
		}
		marks[name] = mark
	}

	return marks, nil
}

func askCoreMarks() ([]float64, error) {
	marks := make([]float64, 0, len(aptitude.CoreSubjects))
	for _, subject := range aptitude.CoreSubjects {
		prompt := promptui.Prompt{
			Label:    subject,
			Validate: validateMark,
		}

		value, err := prompt.Run()
		if err != nil {
			return nil, err
		}

		// Already validated.
		mark, _ := strconv.ParseFloat(strings.TrimSpace(value), 64)
		marks = append(marks, mark)
	}
	return marks, nil
}

func validateMark(input string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(input), 64); err != nil {
		return fmt.Errorf("mark must be a number")
	}
	return nil
}

func writeResults(w io.Writer, results []scoring.Result) error {
	if results == nil {
		results = []scoring.Result{}
	}

	pretty, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(pretty))
	return err
}
