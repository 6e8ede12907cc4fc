package pricing

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// SKU is a resolved provider-specific priced unit. Resolution is a pure table
// lookup and never touches the network.
type SKU struct {
	Key         string
	Kind        ResourceKind
	DisplayName string
}

// InstanceType is the introspection projection of one compute size mapping.
type InstanceType struct {
	Type     string  `json:"type"`
	VCPU     int     `json:"vcpu"`
	MemoryGB float64 `json:"memory_gb"`
}

// ServiceInfo is the introspection projection of a storage or database mapping.
type ServiceInfo struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

type instanceEntry struct {
	SKU      string  `yaml:"sku"`
	VCPU     int     `yaml:"vcpu"`
	MemoryGB float64 `yaml:"memory_gb"`
	Price    float64 `yaml:"price"`
}

type serviceEntry struct {
	SKU   string  `yaml:"sku"`
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
}

type providerEntry struct {
	DisplayName     string                        `yaml:"display_name"`
	Region          string                        `yaml:"region"`
	StaticSource    string                        `yaml:"static_source"`
	Compute         map[ComputeSize]instanceEntry `yaml:"compute"`
	Storage         map[StorageClass]serviceEntry `yaml:"storage"`
	Database        map[DatabaseType]serviceEntry `yaml:"database"`
	DatabaseStorage serviceEntry                  `yaml:"database_storage"`
	Egress          serviceEntry                  `yaml:"egress"`
	LoadBalancer    serviceEntry                  `yaml:"load_balancer"`
}

type catalogFile struct {
	Version   int                        `yaml:"version"`
	Currency  string                     `yaml:"currency"`
	Providers map[Provider]providerEntry `yaml:"providers"`
}

// Catalog holds the hand-maintained SKU mapping tables and the static reference
// prices used as the cache's last-resort fallback. Loaded once at process start;
// read-only afterwards.
type Catalog struct {
	version   int
	currency  string
	providers map[Provider]providerEntry
	static    map[Provider]map[string]float64
}

// LoadCatalog parses the embedded reference catalog and verifies it is complete:
// every provider must map every size, class and database type, with a positive
// fallback price. A gap here is a build defect, not a runtime condition.
func LoadCatalog() (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(catalogYAML, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		version:   f.Version,
		currency:  f.Currency,
		providers: f.Providers,
		static:    make(map[Provider]map[string]float64, len(f.Providers)),
	}

	for _, p := range Providers() {
		entry, ok := f.Providers[p]
		if !ok {
			return nil, fmt.Errorf("catalog: provider %s missing", p)
		}
		idx := make(map[string]float64)
		for _, size := range []ComputeSize{SizeSmall, SizeMedium, SizeLarge, SizeXLarge} {
			inst, ok := entry.Compute[size]
			if !ok || inst.SKU == "" || inst.Price <= 0 {
				return nil, fmt.Errorf("catalog: %s compute %s incomplete", p, size)
			}
			idx[inst.SKU] = inst.Price
		}
		for _, class := range []StorageClass{StorageStandard, StoragePremium, StorageArchive} {
			svc, ok := entry.Storage[class]
			if !ok || svc.SKU == "" || svc.Price <= 0 {
				return nil, fmt.Errorf("catalog: %s storage %s incomplete", p, class)
			}
			idx[svc.SKU] = svc.Price
		}
		for _, dbt := range []DatabaseType{DatabaseSQL, DatabaseNoSQL, DatabaseCache} {
			svc, ok := entry.Database[dbt]
			if !ok || svc.SKU == "" || svc.Price <= 0 {
				return nil, fmt.Errorf("catalog: %s database %s incomplete", p, dbt)
			}
			idx[svc.SKU] = svc.Price
		}
		for _, svc := range []serviceEntry{entry.DatabaseStorage, entry.Egress, entry.LoadBalancer} {
			if svc.SKU == "" || svc.Price <= 0 {
				return nil, fmt.Errorf("catalog: %s flat-rate entry incomplete", p)
			}
			idx[svc.SKU] = svc.Price
		}
		c.static[p] = idx
	}

	return c, nil
}

func (c *Catalog) Version() int     { return c.version }
func (c *Catalog) Currency() string { return c.currency }

// Region returns the pricing region queried for a provider.
func (c *Catalog) Region(p Provider) string { return c.providers[p].Region }

// StaticSource is the provenance label attached to static fallback prices.
func (c *Catalog) StaticSource(p Provider) string { return c.providers[p].StaticSource }

// DisplayName returns the human-readable provider name.
func (c *Catalog) DisplayName(p Provider) string { return c.providers[p].DisplayName }

// ResolveCompute maps a neutral size to the provider's instance type.
func (c *Catalog) ResolveCompute(p Provider, size ComputeSize) (SKU, error) {
	entry, ok := c.providers[p]
	if !ok {
		return SKU{}, NewInvalidSpec("provider", "unknown provider %q", p)
	}
	inst, ok := entry.Compute[size]
	if !ok {
		return SKU{}, NewInvalidSpec("compute.size", "unknown size %q", size)
	}
	return SKU{Key: inst.SKU, Kind: KindCompute, DisplayName: inst.SKU}, nil
}

// ResolveStorage maps a neutral storage class to the provider's storage SKU.
func (c *Catalog) ResolveStorage(p Provider, class StorageClass) (SKU, error) {
	entry, ok := c.providers[p]
	if !ok {
		return SKU{}, NewInvalidSpec("provider", "unknown provider %q", p)
	}
	svc, ok := entry.Storage[class]
	if !ok {
		return SKU{}, NewInvalidSpec("storage.storage_class", "unknown storage class %q", class)
	}
	return SKU{Key: svc.SKU, Kind: KindStorage, DisplayName: svc.Name}, nil
}

// ResolveDatabase maps a neutral database type to the provider's service SKU.
func (c *Catalog) ResolveDatabase(p Provider, dbt DatabaseType) (SKU, error) {
	entry, ok := c.providers[p]
	if !ok {
		return SKU{}, NewInvalidSpec("provider", "unknown provider %q", p)
	}
	svc, ok := entry.Database[dbt]
	if !ok {
		return SKU{}, NewInvalidSpec("database.db_type", "unknown database type %q", dbt)
	}
	return SKU{Key: svc.SKU, Kind: KindDatabase, DisplayName: svc.Name}, nil
}

// DatabaseStorage returns the per-GB database storage SKU for a provider.
func (c *Catalog) DatabaseStorage(p Provider) SKU {
	svc := c.providers[p].DatabaseStorage
	return SKU{Key: svc.SKU, Kind: KindDatabase, DisplayName: svc.Name}
}

// Egress returns the per-GB network egress SKU for a provider.
func (c *Catalog) Egress(p Provider) SKU {
	svc := c.providers[p].Egress
	return SKU{Key: svc.SKU, Kind: KindNetwork, DisplayName: svc.Name}
}

// LoadBalancer returns the hourly load balancer SKU for a provider.
func (c *Catalog) LoadBalancer(p Provider) SKU {
	svc := c.providers[p].LoadBalancer
	return SKU{Key: svc.SKU, Kind: KindLoadBalancer, DisplayName: svc.Name}
}

// StaticPrice returns the fallback unit price for a resolved SKU key.
func (c *Catalog) StaticPrice(p Provider, skuKey string) (float64, bool) {
	idx, ok := c.static[p]
	if !ok {
		return 0, false
	}
	price, ok := idx[skuKey]
	return price, ok
}

// AllSKUs lists every resolvable SKU for a provider, used by cache warm-up.
func (c *Catalog) AllSKUs(p Provider) []SKU {
	entry, ok := c.providers[p]
	if !ok {
		return nil
	}
	var skus []SKU
	for _, size := range []ComputeSize{SizeSmall, SizeMedium, SizeLarge, SizeXLarge} {
		inst := entry.Compute[size]
		skus = append(skus, SKU{Key: inst.SKU, Kind: KindCompute, DisplayName: inst.SKU})
	}
	for _, class := range []StorageClass{StorageStandard, StoragePremium, StorageArchive} {
		svc := entry.Storage[class]
		skus = append(skus, SKU{Key: svc.SKU, Kind: KindStorage, DisplayName: svc.Name})
	}
	for _, dbt := range []DatabaseType{DatabaseSQL, DatabaseNoSQL, DatabaseCache} {
		svc := entry.Database[dbt]
		skus = append(skus, SKU{Key: svc.SKU, Kind: KindDatabase, DisplayName: svc.Name})
	}
	skus = append(skus,
		SKU{Key: entry.DatabaseStorage.SKU, Kind: KindDatabase, DisplayName: entry.DatabaseStorage.Name},
		SKU{Key: entry.Egress.SKU, Kind: KindNetwork, DisplayName: entry.Egress.Name},
		SKU{Key: entry.LoadBalancer.SKU, Kind: KindLoadBalancer, DisplayName: entry.LoadBalancer.Name},
	)
	return skus
}

// InstanceTypes projects the compute mapping tables for the introspection API.
func (c *Catalog) InstanceTypes() map[Provider]map[ComputeSize]InstanceType {
	out := make(map[Provider]map[ComputeSize]InstanceType, len(c.providers))
	for p, entry := range c.providers {
		m := make(map[ComputeSize]InstanceType, len(entry.Compute))
		for size, inst := range entry.Compute {
			m[size] = InstanceType{Type: inst.SKU, VCPU: inst.VCPU, MemoryGB: inst.MemoryGB}
		}
		out[p] = m
	}
	return out
}

// StorageServices projects the storage mapping tables for the introspection API.
func (c *Catalog) StorageServices() map[Provider]map[StorageClass]ServiceInfo {
	out := make(map[Provider]map[StorageClass]ServiceInfo, len(c.providers))
	for p, entry := range c.providers {
		m := make(map[StorageClass]ServiceInfo, len(entry.Storage))
		for class, svc := range entry.Storage {
			m[class] = ServiceInfo{SKU: svc.SKU, Name: svc.Name}
		}
		out[p] = m
	}
	return out
}

// DatabaseServices projects the database mapping tables for the introspection API.
func (c *Catalog) DatabaseServices() map[Provider]map[DatabaseType]ServiceInfo {
	out := make(map[Provider]map[DatabaseType]ServiceInfo, len(c.providers))
	for p, entry := range c.providers {
		m := make(map[DatabaseType]ServiceInfo, len(entry.Database))
		for dbt, svc := range entry.Database {
			m[dbt] = ServiceInfo{SKU: svc.SKU, Name: svc.Name}
		}
		out[p] = m
	}
	return out
}

// ProviderNames maps provider ids to display names.
func (c *Catalog) ProviderNames() map[Provider]string {
	out := make(map[Provider]string, len(c.providers))
	for p, entry := range c.providers {
		out[p] = entry.DisplayName
	}
	return out
}
