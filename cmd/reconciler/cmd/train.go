package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/scoring"
	engineerrors "invoice-reconciliation-service/pkg/errors"
)

var (
	examplesFile string
	modelOut     string
)

// labeledExample is the on-disk form of one training decision.
type labeledExample struct {
	Features models.FeatureVector `json:"features"`
	Label    bool                 `json:"label"`
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a scoring model from labeled match decisions",
	Long: `train fits a logistic scoring model over labeled match decisions and
writes the model artifact to disk. The artifact can then be loaded at
startup via model.path or RECONCILER_MODEL_PATH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(examplesFile)
		if err != nil {
			return engineerrors.ParseError(engineerrors.CodeFileNotFound, examplesFile, err)
		}
		var labeled []labeledExample
		if err := json.Unmarshal(data, &labeled); err != nil {
			return engineerrors.ParseError(engineerrors.CodeInvalidFormat, examplesFile, err)
		}

		examples := make([]scoring.TrainingExample, len(labeled))
		for i := range labeled {
			examples[i] = scoring.TrainingExample{
				Features: &labeled[i].Features,
				Label:    labeled[i].Label,
			}
		}

		model, err := scoring.NewTrainer().Train(examples)
		if err != nil {
			return err
		}
		if err := scoring.SaveArtifact(model, modelOut); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "trained on %d examples, model written to %s\n",
			len(examples), modelOut)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&examplesFile, "examples", "", "labeled examples file (.json)")
	trainCmd.Flags().StringVar(&modelOut, "out", "model.json", "output model artifact path")
	trainCmd.MarkFlagRequired("examples")
	rootCmd.AddCommand(trainCmd)
}
