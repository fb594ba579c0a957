package services

import (
	"github.com/seqbench/seqbench/pkg/models"
)

var summaryKeys = []string{
	"id", "history_id", "name", "extension", "state", "hda_ldda",
	"deleted", "purged", "visible", "create_time", "update_time",
}

// datasetToMap renders every serializable attribute of a dataset.
func datasetToMap(d *models.Dataset) map[string]any {
	m := map[string]any{
		"id":              d.ID,
		"history_id":      d.HistoryID,
		"name":            d.Name,
		"extension":       d.Extension,
		"state":           d.State,
		"hda_ldda":        d.Source,
		"deleted":         d.Deleted,
		"purged":          d.Purged,
		"visible":         d.Visible,
		"file_size":       d.FileSize,
		"object_store_id": d.ObjectStoreID,
		"create_time":     d.CreatedAt,
		"update_time":     d.UpdatedAt,
	}
	if d.CopiedFromID != nil {
		m["copied_from_id"] = *d.CopiedFromID
	}
	return m
}

// serializeDataset renders a dataset according to the serialization params:
// an explicit key list wins over the view, the "detailed" view returns every
// attribute, and anything else falls back to the summary view.
func serializeDataset(d *models.Dataset, params models.SerializationParams) map[string]any {
	full := datasetToMap(d)

	if len(params.Keys) > 0 {
		picked := make(map[string]any, len(params.Keys))
		for _, key := range params.Keys {
			if value, ok := full[key]; ok {
				picked[key] = value
			}
		}
		return picked
	}

	view := params.View
	if view == "" {
		view = params.DefaultView
	}
	if view == "detailed" {
		return full
	}

	picked := make(map[string]any, len(summaryKeys))
	for _, key := range summaryKeys {
		picked[key] = full[key]
	}
	return picked
}
