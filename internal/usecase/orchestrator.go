package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// Task is a named orchestration function with declared parameters
type Task interface {
	Name() string
	Description() string
	Parameters() []domain.TaskParameter
	Run(ctx context.Context, s *Session, params domain.ParamValues) (*TaskResult, error)
}

// KeyValue is an ordered result entry
type KeyValue struct {
	Key   string
	Value string
}

// TaskResult is what a task hands back to its caller. Artifacts are keyed
// by role ("vault", "library", "strategy", ...).
type TaskResult struct {
	Task      string
	Artifacts map[string]*domain.Artifact
	Values    []KeyValue
	SubTasks  []*TaskResult
}

// NewTaskResult creates an empty result
func NewTaskResult(task string) *TaskResult {
	return &TaskResult{
		Task:      task,
		Artifacts: make(map[string]*domain.Artifact),
	}
}

// SetValue records or replaces a named output
func (r *TaskResult) SetValue(key, value string) {
	for i := range r.Values {
		if r.Values[i].Key == key {
			r.Values[i].Value = value
			return
		}
	}
	r.Values = append(r.Values, KeyValue{Key: key, Value: value})
}

// Value returns a named output, or "" if absent
func (r *TaskResult) Value(key string) string {
	for _, kv := range r.Values {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Artifact returns the artifact recorded under role, or nil
func (r *TaskResult) Artifact(role string) *domain.Artifact {
	if r == nil || r.Artifacts == nil {
		return nil
	}
	return r.Artifacts[role]
}

// Lookup resolves "role" to an artifact address or "key" to a value
func (r *TaskResult) Lookup(ref string) (string, bool) {
	if artifact := r.Artifact(ref); artifact != nil {
		return artifact.Address().Hex(), true
	}
	for _, kv := range r.Values {
		if kv.Key == ref {
			return kv.Value, true
		}
	}
	return "", false
}

// TaskRegistry holds the tasks available to the orchestrator
type TaskRegistry struct {
	tasks map[string]Task
}

// NewTaskRegistry creates a registry from tasks
func NewTaskRegistry(tasks ...Task) *TaskRegistry {
	r := &TaskRegistry{tasks: make(map[string]Task)}
	for _, task := range tasks {
		r.Register(task)
	}
	return r
}

// Register adds a task, replacing any task with the same name
func (r *TaskRegistry) Register(task Task) {
	r.tasks[task.Name()] = task
}

// Lookup returns the named task. Unknown names get close-match suggestions.
func (r *TaskRegistry) Lookup(name string) (Task, error) {
	if task, ok := r.tasks[name]; ok {
		return task, nil
	}

	var suggestions []string
	for _, match := range fuzzy.Find(name, r.Names()) {
		suggestions = append(suggestions, match.Str)
		if len(suggestions) == 3 {
			break
		}
	}
	return nil, domain.TaskNotFoundError{Name: name, Suggestions: suggestions}
}

// Names returns the sorted task names
func (r *TaskRegistry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all tasks sorted by name
func (r *TaskRegistry) List() []Task {
	names := r.Names()
	tasks := make([]Task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, r.tasks[name])
	}
	return tasks
}

// Orchestrator runs tasks against the ledger
type Orchestrator struct {
	ledger   Ledger
	network  NetworkController
	resolver *ContractResolver
	registry *TaskRegistry
	state    *domain.NetworkState
	progress ProgressSink
	log      *slog.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	ledger Ledger,
	network NetworkController,
	artifacts ArtifactRepository,
	registry *TaskRegistry,
	progress ProgressSink,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		ledger:   ledger,
		network:  network,
		resolver: NewContractResolver(artifacts),
		registry: registry,
		state:    domain.NewNetworkState(),
		progress: progress,
		log:      log,
	}
}

// Registry returns the task registry
func (o *Orchestrator) Registry() *TaskRegistry {
	return o.registry
}

// State returns the simulated network state of this process
func (o *Orchestrator) State() *domain.NetworkState {
	return o.state
}

// NewSession starts a new run
func (o *Orchestrator) NewSession() *Session {
	return newSession(o)
}

// Run runs a task by name in a fresh session
func (o *Orchestrator) Run(ctx context.Context, name string, params map[string]string) (*TaskResult, error) {
	session := o.NewSession()
	session.log.Debug("starting run", "task", name)
	return session.RunTask(ctx, name, params)
}
