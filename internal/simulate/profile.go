package simulate

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtinFS embed.FS

var validate = validator.New(validator.WithRequiredStructEnabled())

// Action kinds.
const (
	ActConnect      = "connect"
	ActDisconnect   = "disconnect"
	ActDial         = "dial"
	ActPower        = "power"
	ActMakeCircuit  = "make_circuit"
	ActBreakCircuit = "break_circuit"
	ActWait         = "wait"
)

// Profile scripts a simulated learner.
type Profile struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`

	Resistor ResistorSpec `yaml:"resistor"`

	// ActionSeconds is how long each device action takes.
	ActionSeconds float64 `yaml:"action_seconds" validate:"gte=0"`

	// Timing is the think time in seconds before each of the five answers
	// is submitted.
	Timing []float64 `yaml:"timing" validate:"len=5,dive,gte=0"`

	// Actions are performed in order once the measuring question opens.
	Actions []Action `yaml:"actions" validate:"dive"`

	Answers Answers `yaml:"answers"`
}

// ResistorSpec fixes parts of the drawn resistor. Zero fields are drawn at
// random.
type ResistorSpec struct {
	NumBands  int     `yaml:"num_bands" validate:"omitempty,oneof=4 5"`
	Nominal   float64 `yaml:"nominal" validate:"gte=0"`
	Real      float64 `yaml:"real" validate:"gte=0"`
	Tolerance float64 `yaml:"tolerance" validate:"gte=0,lt=1"`
}

// Action is one device action.
type Action struct {
	Do       string  `yaml:"do" validate:"oneof=connect disconnect dial power make_circuit break_circuit wait"`
	Endpoint string  `yaml:"endpoint" validate:"required_if=Do connect,required_if=Do disconnect"`
	Node     string  `yaml:"node" validate:"required_if=Do connect"`
	Dial     string  `yaml:"dial" validate:"required_if=Do dial"`
	On       bool    `yaml:"on"`
	Seconds  float64 `yaml:"seconds" validate:"gte=0"`
}

// Answer is a value with its unit. Values starting with "$" are taken from
// the resistor under test, see resolve.
type Answer struct {
	Value string `yaml:"value"`
	Unit  string `yaml:"unit"`
}

// Answers holds what the learner enters for each question.
type Answers struct {
	Rated     Answer `yaml:"rated"`
	Tolerance string `yaml:"tolerance"`
	Measured  Answer `yaml:"measured"`
	RangeMin  Answer `yaml:"range_min"`
	RangeMax  Answer `yaml:"range_max"`
	Within    string `yaml:"within"`
}

// Builtin lists the names of the embedded profiles.
func Builtin() []string {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	return names
}

// Load returns the built-in profile called name, or else reads name as a
// YAML file.
func Load(name string) (*Profile, error) {
	data, err := builtinFS.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		data, err = os.ReadFile(name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("profile %q: not built in and no such file", name)
			}
			return nil, fmt.Errorf("read profile: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile. Unknown fields are rejected.
func Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	p := &Profile{ActionSeconds: 1}
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid profile %q: %w", p.Name, err)
	}
	return p, nil
}
