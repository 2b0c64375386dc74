// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mock provides function-field implementations of the collaborator
// interfaces for tests.
package mock

import (
	"context"

	"github.com/pdiddy/osdcquery/internal/filesystem"
	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/internal/search"
	"github.com/pdiddy/osdcquery/internal/status"
	"github.com/pdiddy/osdcquery/pkg/types"
)

var _ filesystem.FS = (*FS)(nil)

// FS is a mock implementation of filesystem.FS.
type FS struct {
	ExistsFn    func(path string) (bool, error)
	MkdirAllFn  func(path string) error
	SymlinkFn   func(target, linkName string) error
	WriteFileFn func(path string, data []byte) error
	ReadFileFn  func(path string) ([]byte, error)
	ReadDirFn   func(dir string) ([]string, error)
	RemoveFn    func(path string) error
}

func (f *FS) Exists(path string) (bool, error) {
	return f.ExistsFn(path)
}

func (f *FS) MkdirAll(path string) error {
	return f.MkdirAllFn(path)
}

func (f *FS) Symlink(target, linkName string) error {
	return f.SymlinkFn(target, linkName)
}

func (f *FS) WriteFile(path string, data []byte) error {
	return f.WriteFileFn(path, data)
}

func (f *FS) ReadFile(path string) ([]byte, error) {
	return f.ReadFileFn(path)
}

func (f *FS) ReadDir(dir string) ([]string, error) {
	return f.ReadDirFn(dir)
}

func (f *FS) Remove(path string) error {
	return f.RemoveFn(path)
}

var _ search.Client = (*SearchClient)(nil)

// SearchClient is a mock implementation of search.Client.
type SearchClient struct {
	NameFn    func() string
	CountFn   func(ctx context.Context, req search.Request) (int, error)
	SearchFn  func(ctx context.Context, req search.Request, size int) (search.Response, error)
	MappingFn func(ctx context.Context, index, docType string) (map[string]string, error)
}

func (c *SearchClient) Name() string {
	if c.NameFn != nil {
		return c.NameFn()
	}
	return "mock-search"
}

func (c *SearchClient) Count(ctx context.Context, req search.Request) (int, error) {
	return c.CountFn(ctx, req)
}

func (c *SearchClient) Search(ctx context.Context, req search.Request, size int) (search.Response, error) {
	return c.SearchFn(ctx, req, size)
}

func (c *SearchClient) Mapping(ctx context.Context, index, docType string) (map[string]string, error) {
	return c.MappingFn(ctx, index, docType)
}

// Hits returns a SearchClient whose count and search agree on hits.
func Hits(hits []types.SearchHit) *SearchClient {
	return &SearchClient{
		CountFn: func(ctx context.Context, req search.Request) (int, error) {
			return len(hits), nil
		},
		SearchFn: func(ctx context.Context, req search.Request, size int) (search.Response, error) {
			return search.Response{Total: len(hits), Hits: hits}, nil
		},
	}
}

var _ status.Client = (*StatusClient)(nil)

// StatusClient is a mock implementation of status.Client.
type StatusClient struct {
	NameFn     func() string
	LookupFn   func(ctx context.Context, req status.Request) (map[string]types.StatusRecord, error)
	RegisterFn func(ctx context.Context, m *manifest.Manifest) (string, error)
	FetchFn    func(ctx context.Context, id string) (*manifest.Manifest, error)
	UpdateFn   func(ctx context.Context, id string, m *manifest.Manifest) error
}

func (c *StatusClient) Name() string {
	if c.NameFn != nil {
		return c.NameFn()
	}
	return "mock-status"
}

func (c *StatusClient) Lookup(ctx context.Context, req status.Request) (map[string]types.StatusRecord, error) {
	return c.LookupFn(ctx, req)
}

func (c *StatusClient) Register(ctx context.Context, m *manifest.Manifest) (string, error) {
	return c.RegisterFn(ctx, m)
}

func (c *StatusClient) Fetch(ctx context.Context, id string) (*manifest.Manifest, error) {
	return c.FetchFn(ctx, id)
}

func (c *StatusClient) Update(ctx context.Context, id string, m *manifest.Manifest) error {
	return c.UpdateFn(ctx, id, m)
}

// Records returns a StatusClient whose Lookup answers from records.
func Records(records map[string]types.StatusRecord) *StatusClient {
	return &StatusClient{
		LookupFn: func(ctx context.Context, req status.Request) (map[string]types.StatusRecord, error) {
			out := make(map[string]types.StatusRecord, len(req.IDs))
			for _, id := range req.IDs {
				if r, ok := records[id]; ok {
					out[id] = r
				}
			}
			return out, nil
		},
	}
}
