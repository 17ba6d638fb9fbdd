package handlers

import (
	_ "embed"
	"fmt"
	"net/http"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_data.yaml
var sampleDataYAML []byte

// HelpersResponse lists the helper names per namespace plus sample data.
type HelpersResponse struct {
	Helpers    map[string][]string `json:"helpers"`
	SampleData interface{}         `json:"sampleData" swaggertype:"object"`
}

// ListHelpers lists the helper functions available to templates
// @Summary List helpers
// @Description Returns the helper names available under $helpers, grouped by namespace, and a sample context. The names are read from the live registry.
// @Tags helpers
// @Produce json
// @Success 200 {object} HelpersResponse
// @Failure 429 {object} ErrorResponse "Rate limit exceeded"
// @Router /api/helpers [get]
func (h *Handlers) ListHelpers(w http.ResponseWriter, r *http.Request) {
	sample := orderedmap.New[string, any](orderedmap.WithCapacity[string, any](h.sample.Len() + 1))
	for pair := h.sample.Oldest(); pair != nil; pair = pair.Next() {
		sample.Set(pair.Key, pair.Value)
	}
	sample.Set("now", h.helpers.Now())

	respondJSON(w, http.StatusOK, HelpersResponse{
		Helpers:    h.helpers.Listing(),
		SampleData: sample,
	})
}

// loadSampleData decodes a YAML mapping keeping its key order.
func loadSampleData(data []byte) (*orderedmap.OrderedMap[string, any], error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return orderedmap.New[string, any](), nil
	}

	v, err := fromYAML(doc.Content[0])
	if err != nil {
		return nil, err
	}
	m, ok := v.(*orderedmap.OrderedMap[string, any])
	if !ok {
		return nil, fmt.Errorf("sample data must be a mapping, got %T", v)
	}
	return m, nil
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		m := orderedmap.New[string, any]()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
