// Package events defines the feed related events emitted on the event bus.
//
// Available event types:
//   - BatchEvent: a batch was handed to the sink by the dispatcher
package events
