// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// It backs the metrics sink registry and the feed transport registry:
//
//	reg := factory.NewRegistry[pusher.Transport]()
//	reg.Register("log", func(conf map[string]any) (pusher.Transport, error) {
//	    var c struct{ Component string `json:"component"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return pusher.NewLogTransport(c.Component), nil
//	})
//	t, err := reg.Create(factory.ModuleConfig{Type: "log"})
package factory
