package pipeline

import (
	"encoding/json"

	"bundleplan/internal/config"
)

// OutputDescriptor configures the emitted bundle.
type OutputDescriptor struct {
	File      string            `json:"file"`
	Format    config.Format     `json:"format"`
	Freeze    bool              `json:"freeze"`
	ESModule  bool              `json:"esModule"`
	Name      string            `json:"name"`
	Sourcemap bool              `json:"sourcemap"`
	Globals   map[string]string `json:"globals"`
	Exports   string            `json:"exports"`
	Treeshake Treeshake         `json:"treeshake"`
}

// Treeshake holds tree-shaking assumptions.
type Treeshake struct {
	PropertyReadSideEffects bool `json:"propertyReadSideEffects"`
}

// Descriptor is everything a bundler needs to run one build.
type Descriptor struct {
	// BuildName keys this build's side-channel entries.
	BuildName string
	Input     string
	External  func(id string) bool
	Output    OutputDescriptor
	Stages    []Stage
}

// Kinds lists the stage kinds in order.
func (d *Descriptor) Kinds() []StageKind {
	kinds := make([]StageKind, len(d.Stages))
	for i, s := range d.Stages {
		kinds[i] = s.Kind()
	}
	return kinds
}

// Stage returns the first stage of kind k.
func (d *Descriptor) Stage(k StageKind) (Stage, bool) {
	for _, s := range d.Stages {
		if s.Kind() == k {
			return s, true
		}
	}
	return nil, false
}

// Transform runs the in-process stages over one module in order. Stages that
// belong to an external engine are skipped.
func (d *Descriptor) Transform(id, code string) (string, error) {
	for _, s := range d.Stages {
		t, ok := s.(Transformer)
		if !ok {
			continue
		}
		res, err := t.Transform(id, code)
		if err != nil {
			return "", err
		}
		code = res.Code
	}
	return code, nil
}

type stageJSON struct {
	Kind    StageKind `json:"kind"`
	Options Stage     `json:"options"`
}

// MarshalJSON renders the descriptor for inspection. External is omitted.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	stages := make([]stageJSON, len(d.Stages))
	for i, s := range d.Stages {
		stages[i] = stageJSON{Kind: s.Kind(), Options: s}
	}
	return json.Marshal(struct {
		BuildName string           `json:"buildName"`
		Input     string           `json:"input"`
		Output    OutputDescriptor `json:"output"`
		Stages    []stageJSON      `json:"plugins"`
	}{d.BuildName, d.Input, d.Output, stages})
}
