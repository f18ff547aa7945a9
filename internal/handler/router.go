package handler

import (
	"net/http"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// System endpoints
	mux.HandleFunc("/health", h.HandleHealthCheck)

	// Session endpoints
	mux.HandleFunc("/api/init", h.HandleInit)
	mux.HandleFunc("/api/exit", h.HandleExit)

	// Syscall endpoints
	mux.HandleFunc("/api/open", h.HandleOpen)
	mux.HandleFunc("/api/read", h.HandleRead)
	mux.HandleFunc("/api/write", h.HandleWrite)
	mux.HandleFunc("/api/close", h.HandleClose)
	mux.HandleFunc("/api/length", h.HandleLength)
	mux.HandleFunc("/api/stat", h.HandleStat)
	mux.HandleFunc("/api/read_dir", h.HandleReadDirectory)
}
