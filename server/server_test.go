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

package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mainframehq/onyx-go/bzz"
)

// memBlobs is an in-memory BlobStore keyed by a counter hash.
type memBlobs struct {
	blobs map[string][]byte
	types map[string]string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memBlobs) Upload(ctx context.Context, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	hash := fmt.Sprintf("hash%d", len(m.blobs))
	m.blobs[hash] = data
	m.types[hash] = contentType
	return hash, nil
}

func (m *memBlobs) Download(ctx context.Context, hash string) (io.ReadCloser, string, error) {
	data, ok := m.blobs[hash]
	if !ok {
		return nil, "", bzz.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.types[hash], nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memBlobs) {
	t.Helper()
	blobs := newMemBlobs()
	graphql := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{}}`)
	})
	s := New(graphql, blobs, 0)
	srv := httptest.NewServer(s.srv.Handler)
	t.Cleanup(srv.Close)
	return srv, blobs
}

func TestFileUploadDownload(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Post(srv.URL+"/files", "image/png", strings.NewReader("some bytes"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", res.StatusCode)
	}
	hash, _ := io.ReadAll(res.Body)
	if len(hash) == 0 {
		t.Fatal("empty hash")
	}

	res, err = http.Get(srv.URL + "/files/" + string(hash))
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	data, _ := io.ReadAll(res.Body)
	if string(data) != "some bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestFileDownloadNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	res, err := http.Get(srv.URL + "/files/unknown")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.StatusCode)
	}
}

func TestFileUploadMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	res, err := http.Get(srv.URL + "/files")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", res.StatusCode)
	}
}

func TestGraphQLRouted(t *testing.T) {
	srv, _ := newTestServer(t)
	res, err := http.Get(srv.URL + "/graphql")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/graphql", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	defer res.Body.Close()
	if res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
