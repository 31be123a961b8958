package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
)

// maxPlotPoints bounds the samples handed to the plot
const maxPlotPoints = 120

type report struct {
	Scene       string
	Steps       int
	Dt          float64
	Elapsed     time.Duration
	Bodies      int
	Constraints int
	Sleeping    int
	Manifolds   int
	Events      map[quill.EventType]int

	Track    string
	Final    mgl64.Vec3
	Heights  []float64
	Diverged bool
}

// simulate builds the scene and steps it for the configured duration,
// sampling the tracked body height after every step.
func simulate(cfg *config.Config, logger *log.Logger) (report, error) {
	world, bodies, err := cfg.Build(logger)
	if err != nil {
		return report{}, err
	}

	r := report{
		Scene:       cfg.Scene.Name,
		Steps:       cfg.Steps(),
		Dt:          cfg.Dt,
		Bodies:      len(world.Bodies),
		Constraints: world.Constraints.Len(),
		Events:      make(map[quill.EventType]int),
		Track:       cfg.Scene.Track,
	}
	for eventType := quill.TRIGGER_ENTER; eventType <= quill.ON_WAKE; eventType++ {
		world.Events.Subscribe(eventType, func(e quill.Event) {
			r.Events[e.Type()]++
		})
	}

	tracked := bodies[cfg.Scene.Track]
	start := time.Now()
	for range r.Steps {
		world.Step(cfg.Dt)
		if tracked != nil {
			r.Heights = append(r.Heights, tracked.Transform.Position.Y())
		}
	}
	r.Elapsed = time.Since(start)

	for _, body := range world.Bodies {
		if body.ActivationState == actor.IslandSleeping && !body.IsStaticOrKinematic() {
			r.Sleeping++
		}
		if p := body.Transform.Position; math.IsNaN(p.X()) || math.IsNaN(p.Y()) || math.IsNaN(p.Z()) {
			r.Diverged = true
		}
	}
	r.Manifolds = world.Dispatcher.NumManifolds()
	if tracked != nil {
		r.Final = tracked.Transform.Position
	}
	if r.Diverged {
		logger.Warn("simulation diverged", "scene", r.Scene)
	}

	logger.Debug("scene done", "scene", r.Scene, "elapsed", r.Elapsed, "manifolds", r.Manifolds)
	return r, nil
}

func (r report) summary() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(r.Scene)) + "\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("steps", fmt.Sprintf("%d x %.4fs", r.Steps, r.Dt))
	row("wall time", r.Elapsed.Round(time.Microsecond).String())
	row("bodies", fmt.Sprintf("%d (%d sleeping)", r.Bodies, r.Sleeping))
	row("constraints", fmt.Sprint(r.Constraints))
	row("manifolds", fmt.Sprint(r.Manifolds))
	for eventType := quill.TRIGGER_ENTER; eventType <= quill.ON_WAKE; eventType++ {
		if n := r.Events[eventType]; n > 0 {
			row(eventType.String(), fmt.Sprint(n))
		}
	}
	if r.Track != "" {
		row(r.Track, fmt.Sprintf("(%.3f, %.3f, %.3f)", r.Final.X(), r.Final.Y(), r.Final.Z()))
	}
	if r.Diverged {
		row("status", "diverged")
	}

	return panelStyle.Render(strings.TrimSuffix(s.String(), "\n"))
}

func (r report) plot() string {
	data := downsample(r.Heights, maxPlotPoints)
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s height over %.2fs", r.Track, float64(r.Steps)*r.Dt)),
	)
	return graphStyle.Render(graph)
}

// downsample keeps at most n evenly spaced samples, the last one included
func downsample(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}

	out := make([]float64, n)
	last := len(data) - 1
	for i := range out {
		out[i] = data[i*last/(n-1)]
	}
	return out
}
