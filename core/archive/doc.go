// Package archive keeps a record of every feed the pusher sent, or failed to
// send, to the search service. Entries are queryable by time range,
// datasource, status and document id.
package archive
