package middleware

import (
	"context"
	"regexp"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
)

const mask = "***"

type piiMiddleware struct {
	ports.InspectableLedger
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that never lets customer names reach
// the ledger and masks every match of patterns inside free-text details.
// Customer IDs are kept so operations stay attributable.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.InspectableLedger) ports.InspectableLedger {
		return &piiMiddleware{InspectableLedger: next, patterns: patterns}
	}
}

func (m *piiMiddleware) StartOperation(ctx context.Context, customer *domain.Customer, frequency, intensity, minutes int) (int64, error) {
	if customer != nil && customer.Name != "" {
		// Copy so the caller's value is left untouched.
		masked := *customer
		masked.Name = mask
		customer = &masked
	}
	return m.InspectableLedger.StartOperation(ctx, customer, frequency, intensity, minutes)
}

func (m *piiMiddleware) StopOperation(ctx context.Context, id int64, reason domain.StopReason, detail *string) error {
	return m.InspectableLedger.StopOperation(ctx, id, reason, m.maskText(detail))
}

func (m *piiMiddleware) LogOperationEvent(ctx context.Context, id int64, event domain.OperationEvent) error {
	event.Detail = m.maskText(event.Detail)
	return m.InspectableLedger.LogOperationEvent(ctx, id, event)
}

func (m *piiMiddleware) maskText(s *string) *string {
	if s == nil || len(m.patterns) == 0 {
		return s
	}
	out := *s
	for _, p := range m.patterns {
		out = p.ReplaceAllString(out, mask)
	}
	return &out
}
