package pipeline

import (
	"fmt"
	"time"

	"github.com/cardops/shiplane/pkg/domain/gate"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/pipeline.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of a deployment pipeline.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `PipelineConfig`.
// You can get `PipelineConfig` instance with `TrySeal(marshall)` .
type PipelineConfigMarshall struct {
	Repository    string                  `yaml:"repository"`
	Workspace     string                  `yaml:"workspace"`
	ProtectedRefs []string                `yaml:"protectedRefs,omitempty"`
	Registry      *RegistryConfigMarshall `yaml:"registry"`
	Gate          *GateConfigMarshall     `yaml:"gate,omitempty"`
	Image         *ImageConfigMarshall    `yaml:"image"`
	Stages        *StagesConfigMarshall   `yaml:"stages,omitempty"`
	Deploy        *DeployConfigMarshall   `yaml:"deploy"`
	Server        *ServerConfigMarshall   `yaml:"server,omitempty"`
}

var _ Marshalled[*PipelineConfig] = &PipelineConfigMarshall{}

func (pm *PipelineConfigMarshall) trySeal(path string) *PipelineConfig {
	g := pm.Gate
	if g == nil {
		g = &GateConfigMarshall{}
	}
	stages := pm.Stages
	if stages == nil {
		stages = &StagesConfigMarshall{}
	}
	var server *ServerConfig
	if pm.Server != nil {
		server = pm.Server.trySeal(path + ".server")
	}
	return &PipelineConfig{
		repository:    required(pm.Repository, path+".repository"),
		workspace:     required(pm.Workspace, path+".workspace"),
		protectedRefs: pm.ProtectedRefs,
		registry:      nonnil(pm.Registry, path+".registry").trySeal(path + ".registry"),
		gate:          g.trySeal(path + ".gate"),
		image:         nonnil(pm.Image, path+".image").trySeal(path + ".image"),
		stages:        stages.trySeal(path + ".stages"),
		deploy:        nonnil(pm.Deploy, path+".deploy").trySeal(path + ".deploy"),
		server:        server,
	}
}

type RegistryConfigMarshall struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Stage    string `yaml:"stage,omitempty"`
	Metric   string `yaml:"metric,omitempty"`
}

func (rm *RegistryConfigMarshall) trySeal(path string) *RegistryConfig {
	stage := rm.Stage
	if stage == "" {
		stage = "Production"
	}
	metric := rm.Metric
	if metric == "" {
		metric = "f1_score"
	}
	return &RegistryConfig{
		endpoint: required(rm.Endpoint, path+".endpoint"),
		model:    required(rm.Model, path+".model"),
		stage:    stage,
		metric:   metric,
	}
}

type GateConfigMarshall struct {
	Threshold float64 `yaml:"threshold,omitempty"`
}

func (gm *GateConfigMarshall) trySeal(path string) *GateConfig {
	threshold := gm.Threshold
	if threshold == 0 {
		threshold = gate.DefaultThreshold
	}
	if threshold < 0 || 1 < threshold {
		panic(fmt.Sprintf("%s.threshold is out of range (0, 1]: %v", path, threshold))
	}
	return &GateConfig{threshold: threshold}
}

type ImageConfigMarshall struct {
	Repository string `yaml:"repository"`
}

func (im *ImageConfigMarshall) trySeal(path string) *ImageConfig {
	return &ImageConfig{
		repository: required(im.Repository, path+".repository"),
	}
}

// Stage command lines. A stage whose command line is left empty
// fails with a configuration error if a run ever reaches it.
type StagesConfigMarshall struct {
	Lint           []string `yaml:"lint,omitempty"`
	StaticAnalysis []string `yaml:"staticAnalysis,omitempty"`
	Build          []string `yaml:"build,omitempty"`
	Scan           []string `yaml:"scan,omitempty"`
	Push           []string `yaml:"push,omitempty"`
}

func (sm *StagesConfigMarshall) trySeal(path string) *StagesConfig {
	return &StagesConfig{
		lint:           sm.Lint,
		staticAnalysis: sm.StaticAnalysis,
		build:          sm.Build,
		scan:           sm.Scan,
		push:           sm.Push,
	}
}

type DeployConfigMarshall struct {
	Namespace    string `yaml:"namespace"`
	Name         string `yaml:"name"`
	Container    string `yaml:"container,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	PollInterval string `yaml:"pollInterval,omitempty"`
}

func (dm *DeployConfigMarshall) trySeal(path string) *DeployConfig {
	return &DeployConfig{
		namespace:    required(dm.Namespace, path+".namespace"),
		name:         required(dm.Name, path+".name"),
		container:    dm.Container,
		timeout:      duration(dm.Timeout, 5*time.Minute, path+".timeout"),
		pollInterval: duration(dm.PollInterval, 5*time.Second, path+".pollInterval"),
	}
}

type ServerConfigMarshall struct {
	Port        int32  `yaml:"port"`
	Database    string `yaml:"database"`
	TokenSecret string `yaml:"tokenSecret"`
}

func (sm *ServerConfigMarshall) trySeal(path string) *ServerConfig {
	return &ServerConfig{
		port:        required(sm.Port, path+".port"),
		database:    required(sm.Database, path+".database"),
		tokenSecret: required(sm.TokenSecret, path+".tokenSecret"),
	}
}

func duration(v string, fallback time.Duration, path string) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	if d <= 0 {
		panic(path + " should be positive")
	}
	return d
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
