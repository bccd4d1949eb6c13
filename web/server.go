// Package web serves one partition over HTTP.
package web

import (
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/keks/mempart/memfile"
)

// Server guards a partition with a single lock held for each request.
type Server struct {
	l sync.Mutex
	p *memfile.Partition
}

func NewServer(p *memfile.Partition) *Server {
	return &Server{p: p}
}

// Partition runs fn with the lock held.
func (s *Server) Partition(fn func(p *memfile.Partition) error) error {
	s.l.Lock()
	defer s.l.Unlock()
	return fn(s.p)
}

// Router returns the routes without middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/files", s.HandlerList).Methods(http.MethodGet)
	r.HandleFunc("/files/{name}", s.HandlerGet).Methods(http.MethodGet)
	r.HandleFunc("/files/{name}", s.HandlerPut).Methods(http.MethodPut)
	r.HandleFunc("/files/{name}", s.HandlerAppend).Methods(http.MethodPost)
	r.HandleFunc("/files/{name}", s.HandlerDelete).Methods(http.MethodDelete)
	r.HandleFunc("/files/{name}/rename/{newname}", s.HandlerRename).Methods(http.MethodPost)
	r.HandleFunc("/image", s.HandlerImage).Methods(http.MethodGet)
	return r
}

// Handler returns the routes wrapped with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler()(s.Router())
	return handlers.LoggingHandler(os.Stdout, h)
}

func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, s.Handler())
}
