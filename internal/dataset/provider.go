package dataset

import (
	"bytes"
	"context"
	"sync"

	"yomitore/internal/quiz"
)

// Load fetches src and parses it. Every failure is returned as *LoadError.
func Load(ctx context.Context, src Source, cols Columns) ([]quiz.Item, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, &LoadError{Reason: ReasonFetchFailed, Source: src.Name(), Err: err}
	}

	var items []quiz.Item
	if isWorkbook(src.Name()) {
		items, err = ParseXLSX(bytes.NewReader(data), cols)
	} else {
		items, err = ParseText(data, cols)
	}
	if err != nil {
		if le, ok := IsLoadError(err); ok && le.Source == "" {
			le.Source = src.Name()
		}
		return nil, err
	}
	return items, nil
}

// Info describes the dataset a Provider currently serves.
type Info struct {
	Source   string  `json:"source"`
	Uploaded bool    `json:"uploaded"`
	Columns  Columns `json:"columns"`
}

// Provider resolves the active source: an uploaded replacement when one is
// set, the configured source otherwise.
type Provider struct {
	mu       sync.RWMutex
	base     Source
	override Source
	cols     Columns
}

func NewProvider(base Source, cols Columns) *Provider {
	return &Provider{base: base, cols: cols}
}

func (p *Provider) current() Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.override != nil {
		return p.override
	}
	return p.base
}

// Load reads the active source fresh on every call, so edits to the data
// file apply to the next session.
func (p *Provider) Load(ctx context.Context) ([]quiz.Item, error) {
	return Load(ctx, p.current(), p.cols)
}

// Replace validates src and makes it the active source. The previous source
// stays active when validation fails.
func (p *Provider) Replace(ctx context.Context, src Source) (int, error) {
	items, err := Load(ctx, src, p.cols)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.override = src
	p.mu.Unlock()
	return len(items), nil
}

// Reset drops an uploaded replacement.
func (p *Provider) Reset() {
	p.mu.Lock()
	p.override = nil
	p.mu.Unlock()
}

func (p *Provider) Info() Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info := Info{Columns: p.cols}
	if p.override != nil {
		info.Source = p.override.Name()
		info.Uploaded = true
		return info
	}
	if p.base != nil {
		info.Source = p.base.Name()
	}
	return info
}
