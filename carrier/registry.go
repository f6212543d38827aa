package carrier

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Carrier Registry
// --------------------------------------------------------------------------

// Registry holds the known carrier factories keyed by carrier name. It is
// safe for concurrent use; carriers are typically registered once at
// startup and looked up per connection.
type Registry struct {
	factories *xsync.MapOf[string, Factory]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: xsync.NewMapOf[string, Factory](),
	}
}

// Register adds a carrier factory under the name of the carrier it creates.
// Registering the same name twice is an error.
func (r *Registry) Register(f Factory) error {
	name := f().Name()
	if _, loaded := r.factories.LoadOrStore(name, f); loaded {
		return fmt.Errorf("carrier %q already registered", name)
	}
	return nil
}

// Find returns a fresh carrier instance by protocol name.
func (r *Registry) Find(name string) (ICarrier, error) {
	f, ok := r.factories.Load(name)
	if !ok {
		return nil, fmt.Errorf("no carrier registered for name %q", name)
	}
	return f(), nil
}

// FindByHeader returns a fresh instance of the carrier that recognises the
// given code.
func (r *Registry) FindByHeader(header []byte) (ICarrier, error) {
	var found ICarrier
	r.factories.Range(func(_ string, f Factory) bool {
		c := f()
		if c.CheckHeader(header) {
			found = c
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("no carrier recognises header %q", header)
	}
	return found, nil
}

// Names returns the names of all registered carriers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.factories.Size())
	r.factories.Range(func(name string, _ Factory) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
