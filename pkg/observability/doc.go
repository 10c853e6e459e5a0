/*
Package observability turns lifecycle hooks into Prometheus metrics and
structured log lines.

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Chain(m.Hooks(), observability.LogHooks(logger))
	app, _ := taskup.New(taskup.WithLifecycleHooks(hooks))
*/
package observability
