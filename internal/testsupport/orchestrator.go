package testsupport

import (
	"testing"

	"fetchmill/internal/config"
	"fetchmill/internal/convert"
	"fetchmill/internal/logging"
	"fetchmill/internal/runner"
	"fetchmill/internal/task"
)

// NewOrchestrator wires an orchestrator backed by the given executor stub and
// a fresh registry. The runner writes under the config's scratch directory.
func NewOrchestrator(t testing.TB, cfg *config.Config, exec runner.Executor, archiver convert.Archiver) (*convert.Orchestrator, *task.Registry) {
	t.Helper()

	registry := task.NewRegistry()
	client, err := runner.New(cfg.Tools.ConverterBinary, cfg.Paths.ScratchDir, logging.NewNop(),
		runner.WithExecutor(exec), runner.WithTimeout(cfg.ConvertTimeout()))
	if err != nil {
		t.Fatalf("runner.New failed: %v", err)
	}
	orchestrator, err := convert.New(cfg, registry, client, archiver, logging.NewNop())
	if err != nil {
		t.Fatalf("convert.New failed: %v", err)
	}
	return orchestrator, registry
}
