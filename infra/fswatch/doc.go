// Package fswatch publishes the files of a directory tree as feed records and
// keeps publishing as files are added, changed or removed.
package fswatch
