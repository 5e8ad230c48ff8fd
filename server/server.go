// Copyright 2019 The onyx-go Authors
// This file is part of the onyx-go library.
//
// The onyx-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The onyx-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the onyx-go library. If not, see <http://www.gnu.org/licenses/>.

// Package server wires the HTTP surface: the GraphQL endpoint and the blob
// upload/download routes backed by the Swarm gateway.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"

	"github.com/mainframehq/onyx-go/bzz"
)

// maxUploadSize caps file uploads, matching the limit of the original
// desktop client.
const maxUploadSize = 10 << 20

// Server is the HTTP front of the messaging core.
type Server struct {
	srv   *http.Server
	blobs bzz.BlobStore
	log   log.Logger
}

// New assembles the HTTP server on the given port. The UI clients are
// served cross-origin, so every route allows CORS.
func New(graphql http.Handler, blobs bzz.BlobStore, port int) *Server {
	s := &Server{
		blobs: blobs,
		log:   log.New("module", "server"),
	}
	mux := http.NewServeMux()
	mux.Handle("/graphql", graphql)
	mux.HandleFunc("/files", s.uploadFile)
	mux.HandleFunc("/files/", s.downloadFile)
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           cors.AllowAll().Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server running", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxUploadSize)
	hash, err := s.blobs.Upload(r.Context(), body, r.Header.Get("Content-Type"))
	if err != nil {
		s.log.Warn("File upload failed", "err", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, hash)
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimPrefix(r.URL.Path, "/files/")
	if hash == "" {
		http.NotFound(w, r)
		return
	}
	content, contentType, err := s.blobs.Download(r.Context(), hash)
	if err == bzz.ErrNotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Warn("File download failed", "hash", hash, "err", err)
		http.Error(w, "download failed", http.StatusInternalServerError)
		return
	}
	defer content.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	io.Copy(w, content)
}
