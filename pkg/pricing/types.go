package pricing

import (
	"time"
)

// Provider identifies one of the supported clouds.
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
	ProviderGCP   Provider = "gcp"
)

// Providers returns all supported providers in lexicographic order.
// Comparison output ordering and tie-breaking depend on this order being stable.
func Providers() []Provider {
	return []Provider{ProviderAWS, ProviderAzure, ProviderGCP}
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderAWS, ProviderAzure, ProviderGCP:
		return true
	}
	return false
}

// ResourceKind tags the resource category a price belongs to.
type ResourceKind string

const (
	KindCompute      ResourceKind = "compute"
	KindStorage      ResourceKind = "storage"
	KindDatabase     ResourceKind = "database"
	KindNetwork      ResourceKind = "network"
	KindLoadBalancer ResourceKind = "load_balancer"
)

// ComputeSize is the provider-neutral instance size selector.
type ComputeSize string

const (
	SizeSmall  ComputeSize = "small"
	SizeMedium ComputeSize = "medium"
	SizeLarge  ComputeSize = "large"
	SizeXLarge ComputeSize = "xlarge"
)

// ComputeSizes lists all sizes in ascending order.
func ComputeSizes() []ComputeSize {
	return []ComputeSize{SizeSmall, SizeMedium, SizeLarge, SizeXLarge}
}

// StorageClass is the provider-neutral storage tier selector.
type StorageClass string

const (
	StorageStandard StorageClass = "standard"
	StoragePremium  StorageClass = "premium"
	StorageArchive  StorageClass = "archive"
)

// StorageClasses lists all storage classes.
func StorageClasses() []StorageClass {
	return []StorageClass{StorageStandard, StoragePremium, StorageArchive}
}

// DatabaseType selects the managed database family.
type DatabaseType string

const (
	DatabaseSQL   DatabaseType = "sql"
	DatabaseNoSQL DatabaseType = "nosql"
	DatabaseCache DatabaseType = "cache"
)

// DatabaseTypes lists all database families.
func DatabaseTypes() []DatabaseType {
	return []DatabaseType{DatabaseSQL, DatabaseNoSQL, DatabaseCache}
}

// DatabaseTier scales the database instance rate.
type DatabaseTier string

const (
	TierBasic    DatabaseTier = "basic"
	TierStandard DatabaseTier = "standard"
	TierPremium  DatabaseTier = "premium"
)

// DatabaseTiers lists all tiers in ascending rate order.
func DatabaseTiers() []DatabaseTier {
	return []DatabaseTier{TierBasic, TierStandard, TierPremium}
}

// TierMultiplier returns the rate factor for a database tier.
// Unknown tiers return 0 so misuse surfaces in totals instead of passing silently;
// validation rejects them long before this point.
func (t DatabaseTier) TierMultiplier() float64 {
	switch t {
	case TierBasic:
		return 0.5
	case TierStandard:
		return 1.0
	case TierPremium:
		return 2.5
	}
	return 0
}

// ComputeSpec describes a virtual machine request.
type ComputeSpec struct {
	Size          ComputeSize `json:"size" yaml:"size"`
	Quantity      int         `json:"quantity" yaml:"quantity"`
	HoursPerMonth float64     `json:"hours_per_month" yaml:"hours_per_month"`
}

// StorageSpec describes an object/block storage request.
type StorageSpec struct {
	Class  StorageClass `json:"storage_class" yaml:"storage_class"`
	SizeGB float64      `json:"size_gb" yaml:"size_gb"`
}

// DatabaseSpec describes a managed database request.
type DatabaseSpec struct {
	Type                DatabaseType `json:"db_type" yaml:"db_type"`
	Tier                DatabaseTier `json:"tier" yaml:"tier"`
	StorageGB           float64      `json:"storage_gb" yaml:"storage_gb"`
	BackupRetentionDays int          `json:"backup_retention_days" yaml:"backup_retention_days"`
}

// ResourceSet is one estimate request: every field is optional and a nil/zero
// field is skipped, not priced at zero. Immutable once constructed.
type ResourceSet struct {
	Compute             *ComputeSpec  `json:"compute,omitempty" yaml:"compute,omitempty"`
	Storage             *StorageSpec  `json:"storage,omitempty" yaml:"storage,omitempty"`
	Database            *DatabaseSpec `json:"database,omitempty" yaml:"database,omitempty"`
	EgressGB            float64       `json:"data_transfer_gb,omitempty" yaml:"data_transfer_gb,omitempty"`
	IncludeLoadBalancer bool          `json:"include_load_balancer,omitempty" yaml:"include_load_balancer,omitempty"`
}

// Empty reports whether the set prices nothing at all.
func (r ResourceSet) Empty() bool {
	return r.Compute == nil && r.Storage == nil && r.Database == nil &&
		r.EgressGB == 0 && !r.IncludeLoadBalancer
}

// UnitPrice is the normalized result of one price lookup, whatever the upstream
// schema looked like. SourceLabel carries provenance for display; IsLive is false
// for anything that did not come straight from a provider API inside the TTL.
type UnitPrice struct {
	Provider     Provider     `json:"provider"`
	ResourceKind ResourceKind `json:"resource_kind"`
	SKUKey       string       `json:"sku_key"`
	UnitCost     float64      `json:"unit_cost"`
	Currency     string       `json:"currency"`
	SourceLabel  string       `json:"source_label"`
	FetchedAt    time.Time    `json:"fetched_at"`
	IsLive       bool         `json:"is_live"`
}

// CacheEntry wraps a UnitPrice with its expiry. Entries are refreshed in place,
// never deleted: the key space is the finite matrix of providers, kinds and sizes.
type CacheEntry struct {
	Price     UnitPrice `json:"price"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Fresh reports whether the entry may still be served as-is.
func (e CacheEntry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Age is the time since the wrapped price was fetched.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Price.FetchedAt)
}
