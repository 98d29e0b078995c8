package pipeline

import (
	"strconv"
)

// House price pipeline identity.
const (
	HousePriceName        = "simple-house-price-prediction"
	HousePriceDescription = "Simple end-to-end house price prediction pipeline using BQ data"
	HousePriceRunName     = "simple-house-price-prediction-run"
)

// Step and artifact names of the house price pipeline.
const (
	StepTrain        = "train"
	StepBatchPredict = "batch-predict"
	ArtifactModel    = "model"
)

// Binary is the entry point every step image runs.
const Binary = "housepipe"

// HousePriceParams configures the house price pipeline.
type HousePriceParams struct {
	Root            string
	Image           string
	Input           string
	Output          string
	Project         string
	Disposition     string
	MaxRowsPerChunk int
}

// HousePrice declares train followed by batch-predict.
func HousePrice(p HousePriceParams) Definition {
	model := "{{" + StepTrain + "." + ArtifactModel + "}}"
	return Definition{
		Name:          HousePriceName,
		Description:   HousePriceDescription,
		Root:          p.Root,
		EnableCaching: false,
		Steps: []Step{
			{
				Name:        StepTrain,
				DisplayName: "Train Model",
				Image:       p.Image,
				Command:     []string{Binary, StepTrain},
				Args:        []string{"-model-output", model},
				Outputs:     []string{ArtifactModel},
			},
			{
				Name:        StepBatchPredict,
				DisplayName: "Batch Predict",
				Image:       p.Image,
				Command:     []string{Binary, StepBatchPredict},
				Args: []string{
					"-model", model,
					"-input", p.Input,
					"-output", p.Output,
					"-project", p.Project,
					"-write-disposition", p.Disposition,
					"-max-rows-per-chunk", strconv.Itoa(p.MaxRowsPerChunk),
				},
				DependsOn: []string{StepTrain},
			},
		},
	}
}
