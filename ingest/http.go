/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"bennypowers.dev/tsvirt/project"
)

// DefaultTimeout bounds a single ingest request.
const DefaultTimeout = 30 * time.Second

// IngestError represents a failed request to the ingestion service.
type IngestError struct {
	URL         string
	VirtualPath string
	StatusCode  int
	Message     string
	// Err is the transport failure, if the request never got a response.
	Err error
}

func (e *IngestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ingest %s to %s: HTTP %d: %s", e.VirtualPath, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ingest %s to %s: %s", e.VirtualPath, e.URL, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// HTTPClient posts snapshots to a remote ingestion service.
type HTTPClient struct {
	client *resty.Client
	url    string
}

type ingestRequest struct {
	Context     string `json:"context"`
	ProjectRoot string `json:"projectRoot"`
	VirtualPath string `json:"virtualPath"`
	Content     string `json:"content"`
}

// NewHTTPClient creates a client posting to url.
func NewHTTPClient(url string) *HTTPClient {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(DefaultTimeout)

	return &HTTPClient{
		client: client,
		url:    url,
	}
}

// Ingest sends one snapshot. Any non-2xx response is an *IngestError.
func (c *HTTPClient) Ingest(ctx context.Context, pc project.Context, virtualPath string, content []byte) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ingestRequest{
			Context:     pc.Root,
			ProjectRoot: pc.ProjectRoot,
			VirtualPath: virtualPath,
			Content:     string(content),
		}).
		Post(c.url)
	if err != nil {
		return &IngestError{URL: c.url, VirtualPath: virtualPath, Message: err.Error(), Err: err}
	}
	if !resp.IsSuccess() {
		return &IngestError{
			URL:         c.url,
			VirtualPath: virtualPath,
			StatusCode:  resp.StatusCode(),
			Message:     resp.String(),
		}
	}
	return nil
}

// Ingester matches publish.Ingester.
type Ingester interface {
	Ingest(ctx context.Context, pc project.Context, virtualPath string, content []byte) error
}

// Multi fans every ingest out to all ingesters, in order. Every ingester is
// called even if an earlier one fails; the failures are joined.
func Multi(ingesters ...Ingester) Ingester {
	return multi(ingesters)
}

type multi []Ingester

func (m multi) Ingest(ctx context.Context, pc project.Context, virtualPath string, content []byte) error {
	var errs []error
	for _, ingester := range m {
		if err := ingester.Ingest(ctx, pc, virtualPath, content); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
