package usecase

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Compose progress stages
const (
	StagePlanCreated      = "plan_created"
	StageStepStarting     = "step_starting"
	StageStepCompleted    = "step_completed"
	StageComposeCompleted = "compose_completed"
)

// ComposeTasks runs a group of tasks declared in a YAML file, in dependency
// order, inside a single run
type ComposeTasks struct {
	orch     *Orchestrator
	progress ProgressSink
}

// NewComposeTasks creates a new compose use case
func NewComposeTasks(orch *Orchestrator, progress ProgressSink) *ComposeTasks {
	return &ComposeTasks{
		orch:     orch,
		progress: progress,
	}
}

// ComposeParams contains parameters for compose
type ComposeParams struct {
	ConfigPath string
}

// ComposeResult contains the result of a compose run
type ComposeResult struct {
	Plan          *ExecutionPlan
	ExecutedSteps []*StepResult
	FailedStep    *StepResult
	Success       bool
}

// StepResult contains the result of executing a single component
type StepResult struct {
	Step   *ExecutionStep
	Result *TaskResult
	Error  error
}

// Execute parses the compose file and runs its components. The run stops at
// the first failing component; effects of earlier components are kept.
func (c *ComposeTasks) Execute(ctx context.Context, params ComposeParams) (*ComposeResult, error) {
	data, err := os.ReadFile(params.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	config, err := ParseComposeConfig(data)
	if err != nil {
		return nil, err
	}

	return c.Run(ctx, config)
}

// Run executes an already parsed configuration
func (c *ComposeTasks) Run(ctx context.Context, config *ComposeConfig) (*ComposeResult, error) {
	if err := config.Validate(c.orch.Registry()); err != nil {
		return nil, fmt.Errorf("invalid compose configuration: %w", err)
	}

	graph := NewDependencyGraph(config)
	steps, err := graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to create execution plan: %w", err)
	}
	plan := &ExecutionPlan{Group: config.Group, Components: steps}

	c.progress.OnProgress(ctx, ProgressEvent{Stage: StagePlanCreated, Metadata: plan})

	result := &ComposeResult{Plan: plan, Success: true}
	session := c.orch.NewSession()
	outputs := make(map[string]*TaskResult, len(steps))

	for i, step := range plan.Components {
		c.progress.OnProgress(ctx, ProgressEvent{
			Stage:   StageStepStarting,
			Current: i + 1,
			Total:   len(plan.Components),
			Metadata: map[string]any{
				"name":    step.Name,
				"task":    step.Task,
				"current": i + 1,
				"total":   len(plan.Components),
			},
		})

		stepResult := &StepResult{Step: step}
		taskParams, err := interpolate(step, outputs)
		if err == nil {
			stepResult.Result, err = session.RunTask(ctx, step.Task, taskParams)
		}
		stepResult.Error = err
		result.ExecutedSteps = append(result.ExecutedSteps, stepResult)

		c.progress.OnProgress(ctx, ProgressEvent{Stage: StageStepCompleted, Metadata: stepResult})

		if err != nil {
			result.FailedStep = stepResult
			result.Success = false
			c.progress.OnProgress(ctx, ProgressEvent{Stage: StageComposeCompleted, Metadata: result})
			return result, fmt.Errorf("component %s: %w", step.Name, err)
		}
		outputs[step.Name] = stepResult.Result
	}

	c.progress.OnProgress(ctx, ProgressEvent{Stage: StageComposeCompleted, Metadata: result})
	return result, nil
}

var referencePattern = regexp.MustCompile(`\$\{([A-Za-z0-9_-]+)\.([A-Za-z0-9_-]+)\}`)

// interpolate substitutes ${component.ref} references with the artifact
// address or value a dependency produced
func interpolate(step *ExecutionStep, outputs map[string]*TaskResult) (map[string]string, error) {
	params := make(map[string]string, len(step.Params))
	for key, value := range step.Params {
		var refErr error
		params[key] = referencePattern.ReplaceAllStringFunc(value, func(ref string) string {
			m := referencePattern.FindStringSubmatch(ref)
			component, name := m[1], m[2]

			if !slices.Contains(step.Dependencies, component) {
				refErr = fmt.Errorf("parameter %s references %s, which is not a dependency of %s", key, component, step.Name)
				return ref
			}
			resolved, ok := outputs[component].Lookup(name)
			if !ok {
				refErr = fmt.Errorf("parameter %s: component %s produced no %q", key, component, name)
				return ref
			}
			return resolved
		})
		if refErr != nil {
			return nil, refErr
		}
	}
	return params, nil
}

// Compose configuration types

// ComposeConfig represents the top-level compose file
type ComposeConfig struct {
	Group      string                      `yaml:"group"`
	Components map[string]*ComponentConfig `yaml:"components"`
}

// ComponentConfig represents a single component of the group
type ComponentConfig struct {
	Task   string            `yaml:"task"`
	Deps   []string          `yaml:"deps,omitempty"`
	Params map[string]string `yaml:"params,omitempty"`
}

// ExecutionPlan represents the linearized execution plan
type ExecutionPlan struct {
	Group      string
	Components []*ExecutionStep
}

// ExecutionStep represents a single step in the execution plan
type ExecutionStep struct {
	Name         string
	Task         string
	Params       map[string]string
	Dependencies []string
}

// ParseComposeConfig parses a YAML compose file
func ParseComposeConfig(data []byte) (*ComposeConfig, error) {
	var config ComposeConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &config, nil
}

// Validate checks the configuration against the registered tasks
func (config *ComposeConfig) Validate(registry *TaskRegistry) error {
	if config.Group == "" {
		return fmt.Errorf("group name is required")
	}

	if len(config.Components) == 0 {
		return fmt.Errorf("at least one component is required")
	}

	for name, component := range config.Components {
		if component.Task == "" {
			return fmt.Errorf("component '%s' must specify a task", name)
		}
		if _, err := registry.Lookup(component.Task); err != nil {
			return fmt.Errorf("component '%s': %w", name, err)
		}

		for _, dep := range component.Deps {
			if dep == name {
				return fmt.Errorf("component '%s' cannot depend on itself", name)
			}
			if _, exists := config.Components[dep]; !exists {
				return fmt.Errorf("component '%s' depends on non-existent component '%s'", name, dep)
			}
		}
	}

	return nil
}

// DependencyGraph represents a directed acyclic graph of components
type DependencyGraph struct {
	nodes map[string]*ComponentConfig
	edges map[string][]string // dependency -> dependents
}

// NewDependencyGraph creates a new dependency graph from the compose config
func NewDependencyGraph(config *ComposeConfig) *DependencyGraph {
	graph := &DependencyGraph{
		nodes: config.Components,
		edges: make(map[string][]string),
	}

	for name, component := range config.Components {
		for _, dep := range component.Deps {
			if _, exists := config.Components[dep]; !exists {
				continue
			}
			graph.edges[dep] = append(graph.edges[dep], name)
		}
	}

	return graph
}

// TopologicalSort returns the components in execution order. Ties are broken
// by name so the order is deterministic.
func (g *DependencyGraph) TopologicalSort() ([]*ExecutionStep, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		inDegree[name] = 0
	}

	for name, component := range g.nodes {
		for _, dep := range component.Deps {
			if _, exists := g.nodes[dep]; !exists {
				return nil, fmt.Errorf("component '%s' depends on non-existent component '%s'", name, dep)
			}
			inDegree[name]++
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []*ExecutionStep
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		component := g.nodes[current]
		result = append(result, &ExecutionStep{
			Name:         current,
			Task:         component.Task,
			Params:       component.Params,
			Dependencies: component.Deps,
		})

		dependents := g.edges[current]
		sort.Strings(dependents)
		for _, dependent := range dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for name, degree := range inDegree {
			if degree > 0 {
				cycleNodes = append(cycleNodes, name)
			}
		}
		sort.Strings(cycleNodes)
		return nil, fmt.Errorf("circular dependency detected involving components: %v", cycleNodes)
	}

	return result, nil
}
