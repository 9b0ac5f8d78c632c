package resolver

import (
	"context"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/logging"
)

func logWarnArtifactMissing(ctx context.Context, key aqueduct.UniqueKey) {
	logging.FromContext(ctx).WithField("unique_key", key.String()).
		Warn("artifact still missing after save; check_storage is off so this is not fatal")
}
