package log

import (
	"io"
	"log/slog"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// DiscardHandler returns a handler that drops every record.
func DiscardHandler() slog.Handler {
	return gethlog.DiscardHandler()
}

// NewTerminalHandlerWithLevel returns a human-readable handler writing to w
// that drops records below lvl.
func NewTerminalHandlerWithLevel(w io.Writer, lvl slog.Level, useColor bool) slog.Handler {
	return gethlog.NewTerminalHandlerWithLevel(w, lvl, useColor)
}
