package pipeline

import (
	"time"
)

type PipelineConfig struct {
	repository    string
	workspace     string
	protectedRefs []string
	registry      *RegistryConfig
	gate          *GateConfig
	image         *ImageConfig
	stages        *StagesConfig
	deploy        *DeployConfig
	server        *ServerConfig
}

// Git URL of the repository holding the serving code.
func (c *PipelineConfig) Repository() string {
	return c.repository
}

// Directory under which per-run workspaces are created.
func (c *PipelineConfig) Workspace() string {
	return c.workspace
}

// Refs classified as release branches. Empty means the built-in
// default ("main" and "master").
func (c *PipelineConfig) ProtectedRefs() []string {
	return c.protectedRefs
}

func (c *PipelineConfig) Registry() *RegistryConfig {
	return c.registry
}

func (c *PipelineConfig) Gate() *GateConfig {
	return c.gate
}

func (c *PipelineConfig) Image() *ImageConfig {
	return c.image
}

func (c *PipelineConfig) Stages() *StagesConfig {
	return c.stages
}

func (c *PipelineConfig) Deploy() *DeployConfig {
	return c.deploy
}

// Server is nil when the config has no `server` section.
// Only the daemon needs one.
func (c *PipelineConfig) Server() *ServerConfig {
	return c.server
}

// Configuration for the model registry.
//
// to get `RegistryConfig` instance, use `PipelineConfigMarshall.TrySeal()` .
type RegistryConfig struct {
	endpoint string
	model    string
	stage    string
	metric   string
}

// Base URL of the MLflow tracking server.
func (r *RegistryConfig) Endpoint() string {
	return r.endpoint
}

// Registered model name to deploy.
func (r *RegistryConfig) Model() string {
	return r.model
}

// Stage label marking the promoted version. default = "Production"
func (r *RegistryConfig) Stage() string {
	return r.stage
}

// Metric the quality gate judges. default = "f1_score"
func (r *RegistryConfig) Metric() string {
	return r.metric
}

type GateConfig struct {
	threshold float64
}

// Minimum metric value an upgrade may ship with. default = 0.90
func (g *GateConfig) Threshold() float64 {
	return g.threshold
}

type ImageConfig struct {
	repository string
}

// Image repository the built model images are pushed to.
func (i *ImageConfig) Repository() string {
	return i.repository
}

// Tool command lines, one per stage. Tokens {src}, {artifacts},
// {env_file} and {image} are expanded per run.
type StagesConfig struct {
	lint           []string
	staticAnalysis []string
	build          []string
	scan           []string
	push           []string
}

func (s *StagesConfig) Lint() []string {
	return s.lint
}

func (s *StagesConfig) StaticAnalysis() []string {
	return s.staticAnalysis
}

func (s *StagesConfig) Build() []string {
	return s.build
}

func (s *StagesConfig) Scan() []string {
	return s.scan
}

func (s *StagesConfig) Push() []string {
	return s.push
}

// Configuration for the deploy target.
type DeployConfig struct {
	namespace    string
	name         string
	container    string
	timeout      time.Duration
	pollInterval time.Duration
}

// k8s namespace of the serving deployment.
func (d *DeployConfig) Namespace() string {
	return d.namespace
}

// Name of the serving deployment.
func (d *DeployConfig) Name() string {
	return d.name
}

// Container whose image is replaced. Empty selects the first one.
func (d *DeployConfig) Container() string {
	return d.container
}

// How long a new revision may take to become ready. default = 5m
func (d *DeployConfig) Timeout() time.Duration {
	return d.timeout
}

// How often readiness is checked while waiting. default = 5s
func (d *DeployConfig) PollInterval() time.Duration {
	return d.pollInterval
}

type ServerConfig struct {
	port        int32
	database    string
	tokenSecret string
}

func (s *ServerConfig) Port() int32 {
	return s.port
}

// Connection string for the run history database.
func (s *ServerConfig) Database() string {
	return s.database
}

// HMAC secret the trigger tokens are signed with.
func (s *ServerConfig) TokenSecret() string {
	return s.tokenSecret
}
