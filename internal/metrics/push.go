package metrics

import (
	"context"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// Push sends everything in reg to the Pushgateway at url under job, grouped by
// the given labels. An empty url is a no-op.
func Push(ctx context.Context, url, job string, reg prom.Gatherer, grouping map[string]string) error {
	if url == "" || reg == nil {
		return nil
	}
	pusher := push.New(url, job).Gatherer(reg)
	for k, v := range grouping {
		pusher = pusher.Grouping(k, v)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "push metrics").
			Warning().WithContext("url", url).Build()
	}
	slog.Debug("Pushed metrics", "url", url, "job", job)
	return nil
}
