// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package cleanup

import (
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"

	"github.com/thewaterinstitute/metget-server/pkg/observability"
)

const metricsPrefix = "metget/cleanup/"

var (
	mCutoff = stats.Int64(metricsPrefix+"cutoff",
		"Cleanup cutoff date of the most recent run", stats.UnitSeconds)
	mRowsDeleted = stats.Int64(metricsPrefix+"rows_deleted",
		"Request rows deleted", stats.UnitDimensionless)
	mObjectsDeleted = stats.Int64(metricsPrefix+"objects_deleted",
		"Output objects deleted", stats.UnitDimensionless)
	mObjectDeleteFailed = stats.Int64(metricsPrefix+"object_delete_failed",
		"Output objects that failed to delete", stats.UnitDimensionless)
)

func init() {
	observability.CollectViews(
		&view.View{
			Name:        "cleanup_cutoff_latest",
			Description: "Last value of the cleanup cutoff date",
			Measure:     mCutoff,
			Aggregation: view.LastValue(),
		},
		&view.View{
			Name:        "cleanup_rows_deleted_count",
			Description: "Total count of request rows deleted",
			Measure:     mRowsDeleted,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        "cleanup_objects_deleted_count",
			Description: "Total count of output objects deleted",
			Measure:     mObjectsDeleted,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        "cleanup_object_delete_failed_count",
			Description: "Total count of output objects that failed to delete",
			Measure:     mObjectDeleteFailed,
			Aggregation: view.Sum(),
		},
	)
}
