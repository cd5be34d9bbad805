package notify

import (
	"log/slog"
	"time"

	"rpscheduler/internal/config"
)

// FromConfig builds a dispatcher for every enabled sink in cfg. The returned
// closers release sink resources on shutdown.
func FromConfig(cfg *config.Config, source Source, logger *slog.Logger) (*Dispatcher, []func() error) {
	d := &Dispatcher{Source: source, Logger: logger}
	if cfg == nil {
		return d, nil
	}
	var closers []func() error
	for _, hook := range cfg.Notifications.Webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		timeout := time.Duration(hook.TimeoutSeconds) * time.Second
		d.Add(NewWebhookSink(hook.URL, hook.Secret, timeout), hook.Events)
	}
	if k := cfg.Notifications.Kafka; k.Enabled {
		sink := NewKafkaSink(k.Brokers, k.Topic)
		d.Add(sink, k.Events)
		closers = append(closers, sink.Close)
	}
	return d, closers
}
