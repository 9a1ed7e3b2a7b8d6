package migrate

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"

	"github.com/toothbrush/wp2aem/repotree"
)

type AssetFailure struct {
	URL    string `yaml:"url"`
	Reason string `yaml:"reason"`
}

// MigrationResult is the outcome of one item.
type MigrationResult struct {
	ItemTitle       string          `yaml:"title"`
	Kind            string          `yaml:"kind"`
	DestinationPath string          `yaml:"path,omitempty"`
	Status          repotree.Status `yaml:"status"`
	Detail          string          `yaml:"detail,omitempty"`

	AssetsPublished int            `yaml:"assets_published,omitempty"`
	AssetFailures   []AssetFailure `yaml:"asset_failures,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Results []MigrationResult

	counts map[repotree.Status]int
}

func (s *Summary) add(r MigrationResult) {
	if s.counts == nil {
		s.counts = map[repotree.Status]int{}
	}
	s.Results = append(s.Results, r)
	s.counts[r.Status]++
}

func (s *Summary) Count(status repotree.Status) int {
	return s.counts[status]
}

func (s *Summary) AssetFailures() int {
	n := 0
	for _, r := range s.Results {
		n += len(r.AssetFailures)
	}
	return n
}

func (s *Summary) AssetsPublished() int {
	n := 0
	for _, r := range s.Results {
		n += r.AssetsPublished
	}
	return n
}

func (s *Summary) String() string {
	statuses := maps.Keys(s.counts)
	slices.Sort(statuses)

	parts := make([]string, 0, len(statuses)+1)
	for _, st := range statuses {
		parts = append(parts, fmt.Sprintf("%d %s", s.counts[st], st))
	}
	if len(parts) == 0 {
		parts = append(parts, "no items")
	}
	parts = append(parts, fmt.Sprintf("%d assets published, %d asset failures", s.AssetsPublished(), s.AssetFailures()))
	return strings.Join(parts, ", ")
}

type report struct {
	Created         int               `yaml:"created"`
	Skipped         int               `yaml:"skipped"`
	Failed          int               `yaml:"failed"`
	AssetsPublished int               `yaml:"assets_published"`
	AssetFailures   int               `yaml:"asset_failures"`
	Items           []MigrationResult `yaml:"items"`
}

// WriteReport writes the summary as YAML.
func (s *Summary) WriteReport(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(report{
		Created:         s.Count(repotree.Created),
		Skipped:         s.Count(repotree.Skipped),
		Failed:          s.Count(repotree.Failed),
		AssetsPublished: s.AssetsPublished(),
		AssetFailures:   s.AssetFailures(),
		Items:           s.Results,
	})
	if err != nil {
		return fmt.Errorf("migrate: couldn't encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("migrate: couldn't flush report: %w", err)
	}
	return nil
}
