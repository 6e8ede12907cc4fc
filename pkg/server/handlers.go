package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloudquote/cloudquote/pkg/pricing"
	"github.com/cloudquote/cloudquote/pkg/version"
)

type computeEstimateRequest struct {
	Provider pricing.Provider `json:"provider"`
	pricing.ComputeSpec
}

type storageEstimateRequest struct {
	Provider pricing.Provider `json:"provider"`
	pricing.StorageSpec
}

type fullEstimateRequest struct {
	Provider pricing.Provider `json:"provider"`
	pricing.ResourceSet
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message": version.AppName + " API",
		"version": version.Current,
		"endpoints": []string{
			"GET /health",
			"GET /providers",
			"GET /resource-types",
			"GET /instance-types",
			"GET /storage-services",
			"GET /database-services",
			"POST /estimate/compute",
			"POST /estimate/storage",
			"POST /estimate/full",
			"POST /compare",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": version.Current,
		"cache":   s.engine.Cache().Stats(),
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	catalog := s.engine.Catalog()
	out := make(map[pricing.Provider]map[string]string)
	for p, name := range catalog.ProviderNames() {
		out[p] = map[string]string{
			"name":   name,
			"region": catalog.Region(p),
		}
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleResourceTypes(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"compute": map[string]any{
			"sizes":       pricing.ComputeSizes(),
			"description": "Virtual machines and compute instances",
		},
		"storage": map[string]any{
			"classes":     pricing.StorageClasses(),
			"description": "Object storage, block storage, and archives",
		},
		"database": map[string]any{
			"types":       pricing.DatabaseTypes(),
			"tiers":       pricing.DatabaseTiers(),
			"description": "Managed database services",
		},
		"networking": map[string]any{
			"options":     []string{"data_transfer", "load_balancer"},
			"description": "Network and data transfer costs",
		},
	})
}

func (s *Server) handleInstanceTypes(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.engine.Catalog().InstanceTypes())
}

func (s *Server) handleStorageServices(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.engine.Catalog().StorageServices())
}

func (s *Server) handleDatabaseServices(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.engine.Catalog().DatabaseServices())
}

func (s *Server) handleEstimateCompute(w http.ResponseWriter, r *http.Request) {
	var req computeEstimateRequest
	if !s.decode(w, r, &req) {
		return
	}
	spec := req.ComputeSpec
	result, err := s.engine.Estimate(r.Context(), req.Provider, pricing.ResourceSet{Compute: &spec})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleEstimateStorage(w http.ResponseWriter, r *http.Request) {
	var req storageEstimateRequest
	if !s.decode(w, r, &req) {
		return
	}
	spec := req.StorageSpec
	result, err := s.engine.Estimate(r.Context(), req.Provider, pricing.ResourceSet{Storage: &spec})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleEstimateFull(w http.ResponseWriter, r *http.Request) {
	var req fullEstimateRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.engine.Estimate(r.Context(), req.Provider, req.ResourceSet)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var set pricing.ResourceSet
	if !s.decode(w, r, &set) {
		return
	}
	result, err := s.engine.Compare(r.Context(), set)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// decode reads a size-limited JSON body into dst, answering 400 itself
// on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeEngineError maps engine errors onto HTTP statuses. Bad input is
// the caller's fault; a catalog gap is ours and gets logged loudly.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var invalid *pricing.InvalidSpecError
	if errors.As(err, &invalid) {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{
			"error":  "invalid specification",
			"field":  invalid.Field,
			"reason": invalid.Reason,
		})
		return
	}

	var gap *pricing.UnresolvableSkuError
	if errors.As(err, &gap) {
		s.logger.Error("pricing reference table gap",
			"provider", gap.Provider,
			"resource_kind", gap.ResourceKind,
			"sku_key", gap.SKUKey)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]any{
			"error":         "no pricing data available",
			"provider":      gap.Provider,
			"resource_kind": gap.ResourceKind,
			"sku_key":       gap.SKUKey,
		})
		return
	}

	s.jsonError(w, http.StatusInternalServerError, err.Error())
}
