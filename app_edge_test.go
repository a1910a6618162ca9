package main

import (
	"context"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// 1. Empty editor: nothing to render is reported, not silently accepted.
// ---------------------------------------------------------------------------

func TestE2EEmptySource(t *testing.T) {
	for _, source := range []string{"", "   \n\t  ", ";; just a comment\n; and another"} {
		app := NewApp(testConfig())
		result := app.Evaluate(source)

		if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Message, "no solid") {
			t.Errorf("source %q: errors = %v, want one 'no solid' error", source, result.Errors)
		}
		if app.Status().Vertices != 0 {
			t.Errorf("source %q: a pipeline was started", source)
		}
		app.shutdown(context.Background())
	}
}

func TestE2EResultSlicesNonNil(t *testing.T) {
	app := NewApp(testConfig())
	defer app.shutdown(context.Background())

	// JSON should serialize as [] not null, on success and failure alike.
	for _, source := range []string{`(sphere 1)`, `(sphere`} {
		result := app.Evaluate(source)
		if result.Errors == nil {
			t.Errorf("%q: Errors should be non-nil", source)
		}
		if result.Warnings == nil {
			t.Errorf("%q: Warnings should be non-nil", source)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax errors carry line information.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := NewApp(testConfig())
	defer app.shutdown(context.Background())

	// Valid code on line 1, broken code on line 2 so line info is meaningful.
	result := app.Evaluate("(+ 1 2)\n(sphere 1")
	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	if e.Line < 0 {
		t.Errorf("line should not be negative, got %d", e.Line)
	}
	if app.Status().Vertices != 0 {
		t.Error("a failed evaluation must not start a pipeline")
	}
}

// ---------------------------------------------------------------------------
// 3. Reference and dimension errors.
// ---------------------------------------------------------------------------

func TestE2ESceneErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"undefined solid", `(difference (box 2 2 2) (solid "hole"))`, "hole"},
		{"undefined function", `(teapot 1 2 3)`, "teapot"},
		{"zero radius", `(sphere 0)`, "radius"},
		{"negative box", `(box 1 -2 1)`, "box"},
		{"round too large", `(box 1 1 1 :round 2)`, "round"},
		{"duplicate name", `(defsolid "a" (sphere 1)) (defsolid "a" (sphere 2))`, "already defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(testConfig())
			defer app.shutdown(context.Background())

			result := app.Evaluate(tt.source)
			if len(result.Errors) == 0 {
				t.Fatal("expected an error")
			}
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e.Message, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %q", result.Errors, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 4. Orphaned solids are warnings, not errors.
// ---------------------------------------------------------------------------

func TestE2EOrphanWarning(t *testing.T) {
	app := NewApp(testConfig())
	defer app.shutdown(context.Background())

	result := app.Evaluate(`
(defsolid "unused" (box 1 1 1))
(scene (sphere 1))
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0].Message, "unused") {
		t.Errorf("warnings = %v, want one naming the unused solid", result.Warnings)
	}
	waitUploaded(t, app)
}

// ---------------------------------------------------------------------------
// 5. Rapid evaluation: each call replaces the running pipeline.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	// Alternates between valid and invalid sources without waiting for
	// extraction to finish. Each valid source cancels its predecessor.
	app := NewApp(testConfig())
	defer app.shutdown(context.Background())

	sources := []string{
		`(sphere 1)`,
		`(sphere`,
		``,
		`(solid "missing")`,
		`(box 2 1 1 :round 0.2)`,
		`(+ 1 2)`,
		`;; just a comment`,
		`(cylinder 2 0.5)`,
		`(undefined-func 1 2 3)`,
		`(difference (sphere 1.5) (box 1 1 4))`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_ = app.Evaluate(source)
		}()
	}

	// The last valid scene is the one on screen.
	waitUploaded(t, app)
	if app.Status().Vertices == 0 {
		t.Error("final scene produced no geometry")
	}
}

// ---------------------------------------------------------------------------
// 6. Arithmetic and kebab-case in scenes.
// ---------------------------------------------------------------------------

func TestE2EArithmeticScene(t *testing.T) {
	app := NewApp(testConfig())
	defer app.shutdown(context.Background())

	result := app.Evaluate(`
(def wall-thickness 0.6)
(def outer 2)
(def inner (- outer (* 2 wall-thickness)))
(difference (box outer outer outer) (box inner inner (+ outer 1)))
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	waitUploaded(t, app)
	if st := app.Status(); st.Vertices == 0 {
		t.Errorf("hollow box produced no geometry: %+v", st)
	}
}
