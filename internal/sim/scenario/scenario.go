package scenario

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"crowdfield.ai/internal/sim/biocrowds"
	"crowdfield.ai/internal/sim/tuning"
	"crowdfield.ai/schemas"
)

var ErrInvalidScenario = errors.New("scenario: invalid")

//go:embed builtin/*.yaml
var builtinFS embed.FS

// File is the on-disk scenario document.
type File struct {
	Name             string         `yaml:"name"`
	Tuning           yaml.Node      `yaml:"tuning"`
	Agents           []AgentSpec    `yaml:"agents"`
	Generators       []Generator    `yaml:"generators"`
	Obstacles        []ObstacleSpec `yaml:"obstacles"`
	ObstaclesGeoJSON string         `yaml:"obstacles_geojson"`
}

type AgentSpec struct {
	Name    string      `yaml:"name"`
	Pos     [2]float64  `yaml:"pos"`
	Goal    [2]float64  `yaml:"goal"`
	Forward *[2]float64 `yaml:"forward"`
	Color   []float32   `yaml:"color"`
}

type ObstacleSpec struct {
	Points [][2]float64 `yaml:"points"`
}

// Scenario is a resolved setup ready to hand to a simulation.
type Scenario struct {
	Name      string
	Tuning    tuning.Tuning
	Agents    []biocrowds.Agent
	Obstacles []biocrowds.Obstacle
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := schemas.FS.ReadFile("scenario.schema.json")
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("scenario.schema.json", bytes.NewReader(raw)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("scenario.schema.json")
	})
	return schema, schemaErr
}

// Validate checks a raw YAML document against the scenario schema.
func Validate(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("scenario schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	// Round-trip through JSON so the validator sees plain JSON types.
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// Parse validates and resolves a scenario document. base supplies every
// tuning key the document does not override; dir resolves relative paths.
func Parse(raw []byte, base tuning.Tuning, dir string) (*Scenario, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	t := base
	if !f.Tuning.IsZero() {
		if err := f.Tuning.Decode(&t); err != nil {
			return nil, fmt.Errorf("%w: tuning: %w", ErrInvalidScenario, err)
		}
		if t.ComfortTexture != base.ComfortTexture {
			t.ComfortTexture = resolve(dir, t.ComfortTexture)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	sc := &Scenario{Name: f.Name, Tuning: t}
	for _, a := range f.Agents {
		sc.Agents = append(sc.Agents, a.agent())
	}
	for i, g := range f.Generators {
		gen, err := g.Agents()
		if err != nil {
			return nil, fmt.Errorf("%w: generator %d: %w", ErrInvalidScenario, i, err)
		}
		sc.Agents = append(sc.Agents, gen...)
	}
	for _, o := range f.Obstacles {
		pts := make([]orb.Point, len(o.Points))
		for i, p := range o.Points {
			pts[i] = orb.Point{p[0], p[1]}
		}
		ob, err := biocrowds.NewObstacle(len(sc.Obstacles), pts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		sc.Obstacles = append(sc.Obstacles, ob)
	}
	if f.ObstaclesGeoJSON != "" {
		obs, err := LoadGeoJSON(resolve(dir, f.ObstaclesGeoJSON), len(sc.Obstacles))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		sc.Obstacles = append(sc.Obstacles, obs...)
	}
	if len(sc.Agents) == 0 {
		return nil, fmt.Errorf("%w: %s has no agents", ErrInvalidScenario, f.Name)
	}
	return sc, nil
}

func Load(path string, base tuning.Tuning) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(raw, base, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func BuiltinNames() []string {
	ents, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}

func Builtin(name string, base tuning.Tuning) (*Scenario, error) {
	raw, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: unknown built-in %q (have %s)", ErrInvalidScenario, name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(raw, base, "")
}

// Resolve treats a reference containing a path separator or a YAML extension
// as a file and anything else as a built-in name.
func Resolve(ref string, base tuning.Tuning) (*Scenario, error) {
	if strings.ContainsRune(ref, os.PathSeparator) || strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return Load(ref, base)
	}
	return Builtin(ref, base)
}

func resolve(dir, p string) string {
	if p == "" || dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (a AgentSpec) agent() biocrowds.Agent {
	out := biocrowds.Agent{
		Name: a.Name,
		Pos:  biocrowds.Vec3{X: a.Pos[0], Z: a.Pos[1]},
		Goal: biocrowds.Vec3{X: a.Goal[0], Z: a.Goal[1]},
	}
	if a.Forward != nil {
		out.Forward = biocrowds.Vec3{X: a.Forward[0], Z: a.Forward[1]}
	}
	if len(a.Color) == 4 {
		copy(out.Color[:], a.Color)
	}
	return out
}
