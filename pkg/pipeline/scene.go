package pipeline

import (
	"log"
	"os"
	"strings"

	"github.com/chazu/isoview/pkg/compile"
	"github.com/chazu/isoview/pkg/config"
	"github.com/chazu/isoview/pkg/engine"
	"github.com/chazu/isoview/pkg/field"
	"github.com/chazu/isoview/pkg/graph"
	"github.com/chazu/isoview/pkg/kernel"
	"github.com/chazu/isoview/pkg/kernel/sdfx"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// fitMargin is how many cells of empty space Fit leaves around a scene.
const fitMargin = 2

// SceneError reports problems in scene source: evaluation errors, or a
// graph that failed validation.
type SceneError struct {
	Eval    []engine.EvalError
	Invalid []graph.ValidationError
}

func (e *SceneError) Error() string {
	msgs := lo.Map(e.Eval, func(ee engine.EvalError, _ int) string { return ee.Error() })
	msgs = append(msgs, lo.Map(e.Invalid, func(v graph.ValidationError, _ int) string { return v.Error() })...)
	return "pipeline: scene: " + strings.Join(msgs, "; ")
}

// ResolveField returns the field cfg asks for. A scene file wins over the
// named preset. With FitScene set, cfg.Min and cfg.Max are replaced by cubic
// bounds around the scene.
func ResolveField(cfg *config.Config) (field.Field, error) {
	if cfg.Scene == "" {
		return field.Named(cfg.Field)
	}
	src, err := os.ReadFile(cfg.Scene)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: read scene")
	}
	f, warnings, err := SceneField(cfg, string(src))
	for _, w := range warnings {
		log.Printf("[pipeline] %s: %v", cfg.Scene, w)
	}
	return f, err
}

// SceneField evaluates scene source, validates the resulting graph and
// compiles it with the sdfx kernel. Validation warnings are returned
// alongside the field; source problems come back as *SceneError.
func SceneField(cfg *config.Config, source string) (field.Field, []graph.ValidationError, error) {
	g, evalErrs, err := engine.NewEngine().Evaluate(source)
	if err != nil {
		return nil, nil, errors.Wrap(err, "pipeline: scene")
	}
	if len(evalErrs) > 0 {
		return nil, nil, &SceneError{Eval: evalErrs}
	}

	findings := graph.Validate(g)
	bad, warnings := lo.FilterReject(findings, func(f graph.ValidationError, _ int) bool {
		return f.Severity == graph.SeverityError
	})
	if len(bad) > 0 {
		return nil, warnings, &SceneError{Invalid: bad}
	}

	k := sdfx.New()
	solid, err := compile.Compile(g, k)
	if err != nil {
		return nil, warnings, errors.Wrap(err, "pipeline: scene")
	}
	if cfg.FitScene {
		cfg.Min, cfg.Max = kernel.Fit(solid, fitMargin*cfg.StepSize)
		log.Printf("[pipeline] scene bounds fitted to [%g, %g)", cfg.Min, cfg.Max)
	}
	return k.Field(solid), warnings, nil
}
