// Copyright 2018 The onyx-go Authors
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

// Package bzz stores and retrieves blobs (avatars, file attachments)
// through the raw content-addressed endpoint of a Swarm HTTP gateway.
// Conversation state only ever references blobs by hash.
package bzz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when a hash is unknown to the gateway.
var ErrNotFound = fmt.Errorf("bzz: not found")

// BlobStore is the content-addressed blob storage consumed by the file
// routes and the profile avatar handling.
type BlobStore interface {
	// Upload stores the content and returns its hash.
	Upload(ctx context.Context, r io.Reader, contentType string) (string, error)
	// Download retrieves content by hash. The caller owns the returned
	// reader.
	Download(ctx context.Context, hash string) (io.ReadCloser, string, error)
}

// Client is a BlobStore backed by the bzz-raw endpoint of a Swarm node.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a blob store bound to the Swarm HTTP gateway URL.
func NewClient(url string) *Client {
	return &Client{
		url:  strings.TrimRight(url, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload posts the content to the gateway and returns the Swarm hash.
func (c *Client) Upload(ctx context.Context, r io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/bzz-raw:/", r)
	if err != nil {
		return "", err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bzz: upload failed with status %d", res.StatusCode)
	}
	hash, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Download fetches the content with the given hash, returning the body and
// its content type.
func (c *Client) Download(ctx context.Context, hash string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/bzz-raw:/"+hash, nil)
	if err != nil {
		return nil, "", err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil, "", ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, "", fmt.Errorf("bzz: download failed with status %d", res.StatusCode)
	}
	return res.Body, res.Header.Get("Content-Type"), nil
}
