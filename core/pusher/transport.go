package pusher

import (
	"context"

	"github.com/kilianp07/docfeed/core/factory"
	"github.com/kilianp07/docfeed/core/logger"
	infralogger "github.com/kilianp07/docfeed/infra/logger"
)

// Transports holds the transport factories. infra packages register
// "http" and "mqtt"; "log" is always available.
var Transports = factory.NewRegistry[Transport]()

// RegisterTransport adds a transport factory to the global registry.
func RegisterTransport(name string, f factory.Factory[Transport]) error {
	return Transports.Register(name, f)
}

// NewTransport creates a transport from configuration.
func NewTransport(cfg factory.ModuleConfig) (Transport, error) {
	return Transports.Create(cfg)
}

func init() {
	_ = RegisterTransport("log", func(conf map[string]any) (Transport, error) {
		var c struct {
			Component string `json:"component"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewLogTransport(c.Component), nil
	})
}

// LogTransport writes feeds to the log instead of sending them.
type LogTransport struct {
	log logger.Logger
}

// NewLogTransport returns a transport logging under component.
func NewLogTransport(component string) *LogTransport {
	if component == "" {
		component = "feed-log"
	}
	return &LogTransport{log: infralogger.NewZerologLogger(component)}
}

// Send logs the feed.
func (t *LogTransport) Send(ctx context.Context, f Feed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.log.Infof("feed %s datasource=%s type=%s records=%d", f.ID, f.Datasource, f.FeedType, len(f.Records))
	for _, r := range f.Records {
		t.log.Debugw("record", map[string]any{"doc_id": string(r.DocID), "action": r.Action.String()})
	}
	return nil
}
