package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/ports"
)

// Mask replaces the values of masked keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values whose key matches one of the patterns.
// Nested maps are masked too. The model handed to Save is never modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, runID string, model *domain.Model) error {
	masked := domain.NewModel()
	for k, v := range model.All() {
		if m.matches(k) {
			masked.Set(k, Mask)
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			v = m.maskMap(sub)
		}
		masked.Set(k, v)
	}
	return m.next.Save(ctx, runID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.Model, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// maskMap returns a masked copy of in.
func (m *piiMiddleware) maskMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case m.matches(k):
			out[k] = Mask
		default:
			if sub, ok := v.(map[string]any); ok {
				v = m.maskMap(sub)
			}
			out[k] = v
		}
	}
	return out
}
