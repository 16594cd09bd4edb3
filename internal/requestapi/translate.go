// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"github.com/thewaterinstitute/metget-server/internal/selection"
	v1 "github.com/thewaterinstitute/metget-server/pkg/metgetapi/v1"
)

// toSelectionRequest reduces a validated wire RequestSpec to the input
// the Selection Engine needs. The conversion itself lives in
// internal/selection so the Build Worker can reuse it when it decodes
// the same spec back out of a bus envelope.
func toSelectionRequest(spec *v1.RequestSpec) (selection.Request, error) {
	return selection.RequestFromSpec(spec)
}
