package devfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Devfile is the processed (flattened) devfile a workspace was created
// from. Parent resolution and plugin merging happen upstream at workspace
// creation time; by the time a devfile reaches this package it is a plain
// list of components.
type Devfile struct {
	SchemaVersion string      `yaml:"schemaVersion"`
	Components    []Component `yaml:"components"`
}

// Component is one devfile component: either a container or a volume.
type Component struct {
	Name      string     `yaml:"name"`
	Container *Container `yaml:"container,omitempty"`
	Volume    *Volume    `yaml:"volume,omitempty"`
}

// Container describes a workspace container.
type Container struct {
	Image         string        `yaml:"image"`
	Command       []string      `yaml:"command,omitempty"`
	Args          []string      `yaml:"args,omitempty"`
	Env           []EnvVar      `yaml:"env,omitempty"`
	MemoryLimit   string        `yaml:"memoryLimit,omitempty"`
	MemoryRequest string        `yaml:"memoryRequest,omitempty"`
	CPULimit      string        `yaml:"cpuLimit,omitempty"`
	CPURequest    string        `yaml:"cpuRequest,omitempty"`
	Endpoints     []Endpoint    `yaml:"endpoints,omitempty"`
	VolumeMounts  []VolumeMount `yaml:"volumeMounts,omitempty"`
}

// EnvVar is an environment variable set in a container component.
type EnvVar struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Endpoint is a port exposed by a container component.
type Endpoint struct {
	Name       string `yaml:"name"`
	TargetPort int    `yaml:"targetPort"`
	Exposure   string `yaml:"exposure,omitempty"` // "public", "internal" or "none"
	Secure     bool   `yaml:"secure,omitempty"`
	Protocol   string `yaml:"protocol,omitempty"`
}

// Public reports whether the endpoint gets an external hostname.
// Devfiles default exposure to public when unset.
func (e Endpoint) Public() bool {
	return e.Exposure == "" || e.Exposure == "public"
}

// Volume declares persistent storage shared between containers.
type Volume struct {
	Size string `yaml:"size,omitempty"`
}

// VolumeMount mounts a volume component into a container.
type VolumeMount struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Parse decodes a processed devfile from YAML. At least one container
// component is required; a workspace without a container has nothing to
// deploy.
func Parse(raw string) (*Devfile, error) {
	var df Devfile
	if err := yaml.Unmarshal([]byte(raw), &df); err != nil {
		return nil, fmt.Errorf("failed to parse devfile: %w", err)
	}

	hasContainer := false
	for _, c := range df.Components {
		if c.Name == "" {
			return nil, fmt.Errorf("devfile component missing name")
		}
		if c.Container != nil {
			if c.Container.Image == "" {
				return nil, fmt.Errorf("devfile component %s missing image", c.Name)
			}
			hasContainer = true
		}
	}
	if !hasContainer {
		return nil, fmt.Errorf("devfile has no container component")
	}

	return &df, nil
}
