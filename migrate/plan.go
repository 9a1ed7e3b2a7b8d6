package migrate

import (
	"github.com/toothbrush/wp2aem/repotree"
	"github.com/toothbrush/wp2aem/wordpress"
)

// PlannedItem is what a run would do with one item, worked out without touching the network.
type PlannedItem struct {
	Title        string
	Kind         string
	MediaBearing bool
	Path         string
	Assets       []string

	// Skip is non-empty when the item would not be migrated.
	Skip string
}

// Plan classifies every item and computes its destination, for dry runs.
func Plan(cfg Config, export *wordpress.Export) ([]PlannedItem, error) {
	extractor, err := cfg.extractor()
	if err != nil {
		return nil, err
	}
	builder := cfg.builder()

	var plan []PlannedItem
	for it := export.Items(); it.Next(); {
		item := it.Item()
		p := PlannedItem{Title: item.Title, Kind: item.Kind.String()}

		if reason := skipReason(item); reason != "" {
			p.Skip = reason
			plan = append(plan, p)
			continue
		}

		p.MediaBearing = repotree.IsMediaBearing(item.Body, cfg.marker())
		if p.MediaBearing {
			p.Path, err = builder.Layout.DamFolderPath(item.Title)
			for _, ref := range extractor.Extract(item.Body) {
				p.Assets = append(p.Assets, ref.Resolve(export.BaseURL))
			}
		} else {
			p.Path, err = builder.Layout.PagePath(item.Title)
		}
		if err != nil {
			p.Skip = err.Error()
		}

		plan = append(plan, p)
	}

	return plan, nil
}
