// Package feedhttp delivers feeds to the search service feed endpoint as
// GSA XML documents posted in a multipart form.
package feedhttp
