package orchestrator

import (
	"sort"
	"time"

	"github.com/docsmith/docsmith/internal/artifact"
	"github.com/docsmith/docsmith/pkg/models"
)

// Aggregate assembles the document package from stored artifacts. It is a
// pure read over the store: given the same store contents it produces the
// same package. Formats with no rendered artifact are listed as failed so a
// partial run still reports exactly which documents exist.
func Aggregate(runID string, graph *TaskGraph, store *artifact.Store) *models.DocumentPackage {
	pkg := &models.DocumentPackage{
		RunID:     runID,
		Outputs:   make(map[models.OutputFormat]*models.Artifact),
		CreatedAt: time.Now(),
	}

	// Chain artifacts ride along for traceability.
	if a, err := store.Latest(StageAnalyze); err == nil {
		pkg.Analysis = a
	}
	if a, err := store.Latest(StageGenerate); err == nil {
		pkg.Draft = a
	}

	for _, stage := range graph.FanOut {
		a, err := store.Latest(stage.ID)
		if err != nil {
			pkg.FailedFormats = append(pkg.FailedFormats, stage.Format)
			continue
		}
		pkg.Outputs[stage.Format] = a
	}
	sort.Slice(pkg.FailedFormats, func(i, j int) bool {
		return pkg.FailedFormats[i] < pkg.FailedFormats[j]
	})

	return pkg
}
