// Package api handles incoming HTTP requests for to-do items, request
// decoding, and response formatting. It translates HTTP concerns to
// ItemService operations and maps engine outcomes back to status codes.
package api
