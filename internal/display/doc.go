// Package display renders session events for a terminal reviewer, as plain
// text or as YAML documents.
package display
