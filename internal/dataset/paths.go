package dataset

import (
	"path/filepath"
	"strings"
)

// JobPaths are the file locations one labeling job reads and writes, all
// derived from the input file stem so parallel jobs never collide.
type JobPaths struct {
	Input         string
	OutputParquet string // final labeled parquet, beside the input
	OutputCSV     string // flat copy, under the checkpoint dir
	Checkpoint    string
	Intermediate  string // periodic snapshot parquet
}

// PathsFor derives the job paths for an input parquet file.
func PathsFor(input, checkpointDir string) JobPaths {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	dir := filepath.Dir(input)

	return JobPaths{
		Input:         input,
		OutputParquet: filepath.Join(dir, stem+"_labeled.parquet"),
		OutputCSV:     filepath.Join(checkpointDir, stem+"_labeled.csv"),
		Checkpoint:    filepath.Join(checkpointDir, "checkpoint_"+stem+".json"),
		Intermediate:  filepath.Join(checkpointDir, "intermediate_"+stem+".parquet"),
	}
}

// Stem returns the job key for this input: the file name without extension.
func (p JobPaths) Stem() string {
	return strings.TrimSuffix(filepath.Base(p.Input), filepath.Ext(p.Input))
}
