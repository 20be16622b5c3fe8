package checkpoint

import "slices"

// CorruptFile is a checkpoint skipped in lenient mode.
type CorruptFile struct {
	Path  string `json:"path"  yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Summary is the per-stage breakdown of a checkpoint directory.
//
// Counts[s] always equals len(Firms[s]), and the counts add up to Total.
type Summary struct {
	Dir          string              `json:"dir"                     yaml:"dir"`
	Total        int                 `json:"total"                   yaml:"total"`
	Corrupt      int                 `json:"corrupt"                 yaml:"corrupt"`
	Bytes        int64               `json:"bytes"                   yaml:"bytes"`
	Stages       []string            `json:"stages"                  yaml:"stages"`
	Counts       map[string]int      `json:"counts"                  yaml:"counts"`
	Firms        map[string][]string `json:"firms"                   yaml:"firms"`
	CorruptFiles []CorruptFile       `json:"corrupt_files,omitempty" yaml:"corrupt_files,omitempty"`
}

// OrderedStages returns the stages present in the summary, known pipeline
// stages first in pipeline order, then the rest in first-seen order.
func (s *Summary) OrderedStages() []string {
	ordered := make([]string, 0, len(s.Stages))

	for _, stage := range PipelineStages {
		if _, ok := s.Counts[stage]; ok {
			ordered = append(ordered, stage)
		}
	}

	for _, stage := range s.Stages {
		if !slices.Contains(PipelineStages, stage) {
			ordered = append(ordered, stage)
		}
	}

	return ordered
}

// Aggregator accumulates records into a Summary. It performs no I/O.
type Aggregator struct {
	summary Summary
}

// NewAggregator creates an empty aggregator for dir.
func NewAggregator(dir string) *Aggregator {
	return &Aggregator{
		summary: Summary{
			Dir:    dir,
			Stages: []string{},
			Counts: map[string]int{},
			Firms:  map[string][]string{},
		},
	}
}

// Add counts a successfully decoded record.
func (a *Aggregator) Add(rec Record) {
	stage := rec.Stage

	if _, seen := a.summary.Counts[stage]; !seen {
		a.summary.Stages = append(a.summary.Stages, stage)
	}

	a.summary.Counts[stage]++
	a.summary.Firms[stage] = append(a.summary.Firms[stage], rec.FirmName)
	a.summary.Total++
	a.summary.Bytes += rec.Size
}

// AddCorrupt notes a record that was skipped.
func (a *Aggregator) AddCorrupt(path string, err error) {
	a.summary.Corrupt++
	a.summary.CorruptFiles = append(a.summary.CorruptFiles, CorruptFile{Path: path, Error: err.Error()})
}

// Summary returns a copy of the accumulated summary.
func (a *Aggregator) Summary() *Summary {
	out := a.summary
	out.Stages = slices.Clone(a.summary.Stages)
	out.CorruptFiles = slices.Clone(a.summary.CorruptFiles)
	out.Counts = make(map[string]int, len(a.summary.Counts))
	out.Firms = make(map[string][]string, len(a.summary.Firms))

	for stage, n := range a.summary.Counts {
		out.Counts[stage] = n
		out.Firms[stage] = slices.Clone(a.summary.Firms[stage])
	}

	return &out
}
