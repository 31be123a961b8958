package config

import (
	"fmt"
	"slices"
	"strings"
)

var ground = BodyConfig{Name: "ground", Shape: "plane", Normal: [3]float64{0, 1, 0}}

var Presets = map[string]Scene{
	"drop": {
		Name: "drop", Description: "a sphere falling on the ground until it sleeps", Track: "ball",
		Bodies: []BodyConfig{
			ground,
			{Name: "ball", Shape: "sphere", Radius: 0.5, Position: [3]float64{0, 4, 0}},
		},
	},
	"stack": {
		Name: "stack", Description: "five boxes stacked on the ground", Track: "top",
		Bodies: []BodyConfig{
			ground,
			{Name: "box1", Shape: "box", HalfExtents: [3]float64{0.5, 0.5, 0.5}, Position: [3]float64{0, 0.5, 0}},
			{Name: "box2", Shape: "box", HalfExtents: [3]float64{0.5, 0.5, 0.5}, Position: [3]float64{0, 1.5, 0}},
			{Name: "box3", Shape: "box", HalfExtents: [3]float64{0.5, 0.5, 0.5}, Position: [3]float64{0, 2.5, 0}},
			{Name: "box4", Shape: "box", HalfExtents: [3]float64{0.5, 0.5, 0.5}, Position: [3]float64{0, 3.5, 0}},
			{Name: "top", Shape: "box", HalfExtents: [3]float64{0.5, 0.5, 0.5}, Position: [3]float64{0, 4.5, 0}},
		},
	},
	"pendulum": {
		Name: "pendulum", Description: "a chain of three spheres swinging from a world pivot", Track: "bob3",
		Bodies: []BodyConfig{
			{Name: "bob1", Shape: "sphere", Radius: 0.2, Position: [3]float64{1, 6, 0}},
			{Name: "bob2", Shape: "sphere", Radius: 0.2, Position: [3]float64{2, 6, 0}},
			{Name: "bob3", Shape: "sphere", Radius: 0.2, Position: [3]float64{3, 6, 0}},
		},
		Constraints: []ConstraintConfig{
			{Type: "point2point", BodyA: "bob1", PivotA: [3]float64{-1, 0, 0}, PivotB: [3]float64{0, 6, 0}},
			{Type: "point2point", BodyA: "bob2", BodyB: "bob1", PivotA: [3]float64{-0.5, 0, 0}, PivotB: [3]float64{0.5, 0, 0}, DisableCollision: true},
			{Type: "point2point", BodyA: "bob3", BodyB: "bob2", PivotA: [3]float64{-0.5, 0, 0}, PivotB: [3]float64{0.5, 0, 0}, DisableCollision: true},
		},
	},
	"door": {
		Name: "door", Description: "a door on a limited hinge, pushed open", Track: "door",
		Bodies: []BodyConfig{
			ground,
			{
				Name: "door", Shape: "box", HalfExtents: [3]float64{0.5, 1, 0.05}, Position: [3]float64{0.5, 1.2, 0},
				AngularVelocity: [3]float64{0, 3, 0}, NoSleep: true,
			},
		},
		Constraints: []ConstraintConfig{
			{
				Type: "hinge", BodyA: "door", PivotA: [3]float64{-0.5, 0, 0}, PivotB: [3]float64{0, 1.2, 0},
				AxisA: [3]float64{0, 1, 0}, AxisB: [3]float64{0, 1, 0}, Limit: []float64{-90, 90},
			},
		},
	},
	"bullet": {
		Name: "bullet", Description: "a fast sphere stopped by a thin slab through continuous collision", Track: "bullet",
		Bodies: []BodyConfig{
			{Name: "slab", Shape: "box", Type: "static", HalfExtents: [3]float64{5, 0.05, 5}},
			{
				Name: "bullet", Shape: "sphere", Radius: 0.1, Position: [3]float64{0, 2, 0},
				Velocity: [3]float64{0, -120, 0}, CcdMotionThreshold: 0.05,
			},
		},
	},
	"spring": {
		Name: "spring", Description: "a box bouncing on a vertical 6dof spring", Track: "weight",
		Bodies: []BodyConfig{
			{Name: "weight", Shape: "box", HalfExtents: [3]float64{0.25, 0.25, 0.25}, Position: [3]float64{0, 3, 0}},
		},
		Constraints: []ConstraintConfig{
			{
				Type: "generic6dof_spring", BodyA: "weight", PivotB: [3]float64{0, 3, 0},
				Params: []ParamConfig{
					{Index: 1, Values: [2]float64{-2, 2}},
					{Index: 13, Values: [2]float64{60, 0.5}},
				},
			},
		},
	},
	"trigger": {
		Name: "trigger", Description: "a ball falling through a trigger zone onto the ground", Track: "ball",
		Bodies: []BodyConfig{
			ground,
			{Name: "zone", Shape: "box", Type: "static", HalfExtents: [3]float64{2, 0.5, 2}, Position: [3]float64{0, 2, 0}, Trigger: true},
			{Name: "ball", Shape: "sphere", Radius: 0.25, Position: [3]float64{0, 5, 0}},
		},
	},
}

// GetPreset returns the default configuration holding the named scene
func GetPreset(name string) (*Config, error) {
	scene, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%q (available: %s): %w", name, strings.Join(ListPresets(), ", "), ErrUnknownPreset)
	}

	cfg := DefaultConfig()
	cfg.Scene = scene
	cfg.Scene.Bodies = slices.Clone(scene.Bodies)
	cfg.Scene.Constraints = slices.Clone(scene.Constraints)
	return cfg, nil
}

// ListPresets returns the preset names, sorted
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
