package api

import (
	"net/http"
	"slices"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/descriptor"
	"github.com/ayusman/tailgate/internal/detector"
	"github.com/ayusman/tailgate/internal/matcher"
)

type detectorVariant struct {
	Name      string `json:"name"`
	Family    string `json:"family"`
	Available bool   `json:"available"`
}

type descriptorVariant struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
}

type variantsResponse struct {
	Detectors    []detectorVariant   `json:"detectors"`
	Descriptors  []descriptorVariant `json:"descriptors"`
	Matchers     []string            `json:"matchers"`
	Selectors    []string            `json:"selectors"`
	Combinations []string            `json:"combinations"`
}

// VariantsHandler lists the pipeline variants and which of them this build
// can run.
type VariantsHandler struct{}

// NewVariantsHandler creates a VariantsHandler.
func NewVariantsHandler() *VariantsHandler {
	return &VariantsHandler{}
}

// ServeHTTP handles GET /api/variants.
func (h *VariantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	detectors := detector.Available()
	descriptors := descriptor.Available()

	response := variantsResponse{
		Selectors: []string{config.NearestNeighbor.String(), config.KNearest.String()},
	}

	for _, d := range config.DetectorTypes() {
		response.Detectors = append(response.Detectors, detectorVariant{
			Name:      d.String(),
			Family:    string(d.Family()),
			Available: slices.Contains(detectors, d),
		})
	}
	for _, d := range config.DescriptorTypes() {
		response.Descriptors = append(response.Descriptors, descriptorVariant{
			Name:      d.String(),
			Kind:      d.Kind().String(),
			Available: slices.Contains(descriptors, d),
		})
	}
	for _, m := range matcher.Available() {
		response.Matchers = append(response.Matchers, m.String())
	}
	for _, c := range config.Combinations(detectors, descriptors) {
		response.Combinations = append(response.Combinations, c.String())
	}

	writeJSON(w, http.StatusOK, response)
}

