// Package infra holds the adapters that talk to the outside world: the search
// appliance over HTTP, the MQTT broker, the filesystem, metrics backends and
// Sentry. They implement interfaces declared under core.
package infra
