package domains

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Defaults is the static seed table of known domain/category pairs.
func Defaults() map[string][]string {
	return map[string][]string{
		"healthcare": {"appointment_scheduling", "billing_inquiry", "prescription_refill"},
		"insurance":  {"claim_inquiry", "policy_inquiry", "premium_payment"},
	}
}

// Registry tracks the known business domains and their categories. One
// instance is shared by every request for the lifetime of the process;
// writes go through the mutex so concurrent registrations cannot lose
// updates, and readers never observe a partially built category set.
type Registry struct {
	mu     sync.RWMutex
	known  map[string][]string
	logger *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	r := &Registry{
		known:  make(map[string][]string),
		logger: logger,
	}
	for domain, cats := range Defaults() {
		r.known[domain] = append([]string(nil), cats...)
	}
	return r
}

// Normalize maps a free-form domain or category label onto the registry's
// lowercase snake_case key form.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// IsValid reports whether the category is registered for the domain.
func (r *Registry) IsValid(domain, category string) bool {
	domain, category = Normalize(domain), Normalize(category)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.known[domain] {
		if c == category {
			return true
		}
	}
	return false
}

// Register records a domain/category pair. Registration is append-only and
// idempotent; the return value reports whether anything new was added.
func (r *Registry) Register(domain, category string) bool {
	domain, category = Normalize(domain), Normalize(category)
	if domain == "" || category == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cats, ok := r.known[domain]
	if !ok {
		r.known[domain] = []string{category}
		r.logger.Info("new domain discovered", "domain", domain, "category", category)
		return true
	}
	for _, c := range cats {
		if c == category {
			return false
		}
	}
	r.known[domain] = append(cats, category)
	r.logger.Info("new category discovered", "domain", domain, "category", category)
	return true
}

// Merge unions persisted pairs into the registry. Called once at startup
// with the pairs found in the prompts table.
func (r *Registry) Merge(pairs map[string][]string) {
	for domain, cats := range pairs {
		for _, c := range cats {
			r.Register(domain, c)
		}
	}
}

// Snapshot returns a copy of the known pairs that never aliases the
// registry's internal state.
func (r *Registry) Snapshot() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.known))
	for domain, cats := range r.known {
		out[domain] = append([]string(nil), cats...)
	}
	return out
}

// Hint renders the known pairs as prompt text, one line per domain, in
// stable domain order.
func (r *Registry) Hint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.known))
	for d := range r.known {
		names = append(names, d)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, d := range names {
		fmt.Fprintf(&b, "for %s: %s\n", d, strings.Join(r.known[d], ", "))
	}
	return b.String()
}
