package watcher

import (
	"context"
	"sort"
	"strings"

	"github.com/conneroisu/assetpipe/internal/errors"
	"github.com/conneroisu/assetpipe/internal/logging"
)

// Builder rebuilds every group of one asset type.
type Builder interface {
	Build(ctx context.Context, typ string) error
}

// BuildHandler returns a handler that maps each changed path to an asset
// type by its source extension and builds every affected type once per
// batch, in type order. sources maps a source extension such as ".js" to
// its type tag. Failures of one type do not stop the others.
func BuildHandler(ctx context.Context, builder Builder, sources map[string]string, logger logging.Logger) ChangeHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return func(events []ChangeEvent) error {
		affected := make(map[string]bool)
		for _, event := range events {
			logger.Debug(ctx, "Source changed", "path", event.Path, "op", event.Type.String())
			for ext, typ := range sources {
				if strings.HasSuffix(event.Path, ext) {
					affected[typ] = true
				}
			}
		}

		types := make([]string, 0, len(affected))
		for typ := range affected {
			types = append(types, typ)
		}
		sort.Strings(types)

		collector := errors.NewErrorCollector()
		for _, typ := range types {
			logger.Info(ctx, "Rebuilding assets", "type", typ, "changes", len(events))
			collector.AddError(builder.Build(ctx, typ))
		}
		return collector.Err()
	}
}
