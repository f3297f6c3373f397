package permissions

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charlesng35/tenantguard/internal/models"
)

// Definition describes a permission declared in code and synced to the catalog at boot.
type Definition struct {
	Name        string
	Realm       models.Realm
	Description string
	IsDefault   bool
}

type permissionRegistry struct {
	mu    sync.RWMutex
	order []string
	defs  map[string]Definition
}

var globalRegistry = &permissionRegistry{
	defs: make(map[string]Definition),
}

var (
	errEmptyName     = errors.New("permission: name is required")
	errInvalidRealm  = errors.New("permission: realm must be admin or app")
	errDuplicateName = errors.New("permission: already registered")
)

// Register adds a definition to the global registry. Registration order fixes the catalog order.
func Register(def Definition) error {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return errEmptyName
	}
	if !def.Realm.Valid() {
		return fmt.Errorf("%w: %s", errInvalidRealm, def.Name)
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.defs[def.Name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateName, def.Name)
	}

	globalRegistry.defs[def.Name] = def
	globalRegistry.order = append(globalRegistry.order, def.Name)
	return nil
}

// MustRegister is Register for init-time declarations.
func MustRegister(defs ...Definition) {
	for _, def := range defs {
		if err := Register(def); err != nil {
			panic(err)
		}
	}
}

// Get returns the registered definition for name.
func Get(name string) (Definition, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	def, ok := globalRegistry.defs[name]
	return def, ok
}

// Catalog returns every registered definition as a permission row ready for seeding.
func Catalog() []models.Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([]models.Permission, 0, len(globalRegistry.order))
	for _, name := range globalRegistry.order {
		def := globalRegistry.defs[name]
		out = append(out, models.Permission{
			Name:        def.Name,
			Description: def.Description,
			Realm:       def.Realm,
			IsDefault:   def.IsDefault,
		})
	}
	return out
}

func removeDefinition(name string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	delete(globalRegistry.defs, name)
	for i, existing := range globalRegistry.order {
		if existing == name {
			globalRegistry.order = append(globalRegistry.order[:i], globalRegistry.order[i+1:]...)
			break
		}
	}
}
