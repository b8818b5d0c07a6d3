package taskgraph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/assetpipe/internal/fileset"
)

type recordingStep struct {
	name      string
	journal   *[]string
	failWith  error
	transform func(*fileset.File) *fileset.File
}

func (step recordingStep) Name() string {
	return step.name
}

func (step recordingStep) Apply(ctx context.Context, environment StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	if step.journal != nil {
		*step.journal = append(*step.journal, environment.Task+":"+step.name)
	}
	if step.failWith != nil {
		return nil, step.failWith
	}
	result := make([]*fileset.File, 0, len(files))
	for _, file := range files {
		transformed := file.Clone()
		if step.transform != nil {
			transformed = step.transform(transformed)
		}
		result = append(result, transformed)
	}
	return result, nil
}

func upperCaseStep(journal *[]string) recordingStep {
	return recordingStep{
		name:    "uppercase",
		journal: journal,
		transform: func(file *fileset.File) *fileset.File {
			file.Contents = []byte(strings.ToUpper(string(file.Contents)))
			return file
		},
	}
}

func newTestRunner(registry *Registry, fileSystem afero.Fs) *Runner {
	return NewRunner(registry, RunnerOptions{
		FileSystem:     fileSystem,
		RunIDGenerator: func() string { return "run-1" },
	})
}

func seedFileSystem(testInstance *testing.T, files map[string]string) afero.Fs {
	testInstance.Helper()
	fileSystem := afero.NewMemMapFs()
	for filePath, contents := range files {
		require.NoError(testInstance, afero.WriteFile(fileSystem, filePath, []byte(contents), 0o644))
	}
	return fileSystem
}

func TestRegisterRejectsDuplicateNames(testInstance *testing.T) {
	registry := NewRegistry()
	require.NoError(testInstance, registry.Register(NewCompositeTask("fonts", "awesome")))

	registrationError := registry.Register(NewCompositeTask("fonts", "roboto"))
	require.Equal(testInstance, DuplicateTaskError{Name: "fonts"}, registrationError)

	task, exists := registry.Lookup("fonts")
	require.True(testInstance, exists)
	require.Equal(testInstance, []string{"awesome"}, task.Dependencies())
}

func TestRegisterRejectsInvalidDefinitions(testInstance *testing.T) {
	testCases := []struct {
		name string
		task Task
	}{
		{name: "empty name", task: NewCompositeTask("  ")},
		{name: "neither kind", task: Task{Name: "broken"}},
		{name: "both kinds", task: Task{Name: "broken", Pipeline: &Pipeline{}, Composite: &Composite{}}},
		{name: "nil step", task: NewPipelineTask("broken", Pipeline{Steps: []Step{nil}})},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			registrationError := NewRegistry().Register(testCase.task)
			require.Error(subTest, registrationError)
			require.True(subTest, errors.Is(registrationError, ErrInvalidTask))
		})
	}
}

func TestRegistryPreservesRegistrationOrder(testInstance *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(
		NewPipelineTask("styles", Pipeline{Destination: "public/css"}),
		NewCompositeTask("default", "styles"),
		NewPipelineTask("javascript", Pipeline{Destination: "public/js"}),
	)
	require.Equal(testInstance, []string{"styles", "default", "javascript"}, registry.Names())
	require.Len(testInstance, registry.Tasks(), 3)
}

func TestRunPipelineTransformsAndWritesOutputs(testInstance *testing.T) {
	fileSystem := seedFileSystem(testInstance, map[string]string{"src/a.txt": "alpha", "src/b.txt": "beta"})
	registry := NewRegistry()
	registry.MustRegister(NewPipelineTask("shout", Pipeline{
		Sources:     []string{"src/*.txt"},
		Steps:       []Step{upperCaseStep(nil)},
		Destination: "public",
	}))

	outcome, runError := newTestRunner(registry, fileSystem).Run(context.Background(), "shout")
	require.NoError(testInstance, runError)
	require.Equal(testInstance, "run-1", outcome.RunID)
	require.False(testInstance, outcome.Failed())
	require.Len(testInstance, outcome.Tasks, 1)
	require.Equal(testInstance, TaskStateCompleted, outcome.Tasks[0].State)
	require.Len(testInstance, outcome.Tasks[0].Steps, 1)
	require.Equal(testInstance, 2, outcome.Tasks[0].Steps[0].OutputFiles)
	require.Len(testInstance, outcome.Outputs(), 2)

	contents, readError := afero.ReadFile(fileSystem, "public/a.txt")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "ALPHA", string(contents))

	original, originalError := afero.ReadFile(fileSystem, "src/a.txt")
	require.NoError(testInstance, originalError)
	require.Equal(testInstance, "alpha", string(original))
}

func TestRunCompositeRunsDependenciesInOrderWithoutDeduplication(testInstance *testing.T) {
	journal := []string{}
	registry := NewRegistry()
	registry.MustRegister(
		NewPipelineTask("a", Pipeline{Steps: []Step{recordingStep{name: "mark", journal: &journal}}, Destination: "out/a"}),
		NewPipelineTask("b", Pipeline{Steps: []Step{recordingStep{name: "mark", journal: &journal}}, Destination: "out/b"}),
		NewCompositeTask("pair", "a", "b"),
		NewCompositeTask("twice", "pair", "a"),
	)

	outcome, runError := newTestRunner(registry, afero.NewMemMapFs()).Run(context.Background(), "twice")
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []string{"a:mark", "b:mark", "a:mark"}, journal)
	require.Equal(testInstance, []string{"a", "b", "a"}, outcome.ExecutedPipelines())
	require.Len(testInstance, outcome.Tasks, 5)
	require.Equal(testInstance, "pair", outcome.Tasks[1].Name)
	require.Equal(testInstance, "twice", outcome.Tasks[1].Parent)
	require.Equal(testInstance, "a", outcome.Tasks[2].Name)
	require.Equal(testInstance, "pair", outcome.Tasks[2].Parent)
	require.Equal(testInstance, "twice", outcome.Tasks[4].Parent)
}

func TestRunBlankNameSelectsDefault(testInstance *testing.T) {
	journal := []string{}
	registry := NewRegistry()
	registry.MustRegister(
		NewPipelineTask("a", Pipeline{Steps: []Step{recordingStep{name: "mark", journal: &journal}}, Destination: "out"}),
		NewCompositeTask(DefaultTaskName, "a"),
	)

	outcome, runError := newTestRunner(registry, afero.NewMemMapFs()).Run(context.Background(), "  ")
	require.NoError(testInstance, runError)
	require.Equal(testInstance, DefaultTaskName, outcome.Task)
	require.Equal(testInstance, []string{"a:mark"}, journal)
}

func TestRunUnknownTaskHasNoSideEffects(testInstance *testing.T) {
	fileSystem := seedFileSystem(testInstance, map[string]string{"src/a.txt": "alpha"})
	journal := []string{}
	registry := NewRegistry()
	registry.MustRegister(
		NewPipelineTask("copy", Pipeline{Sources: []string{"src/*"}, Steps: []Step{recordingStep{name: "mark", journal: &journal}}, Destination: "public"}),
		NewCompositeTask("all", "copy", "missing"),
	)
	runner := newTestRunner(registry, fileSystem)

	testCases := []struct {
		name          string
		requested     string
		expectedError UnknownTaskError
	}{
		{name: "direct", requested: "nope", expectedError: UnknownTaskError{Name: "nope"}},
		{name: "dependency", requested: "all", expectedError: UnknownTaskError{Name: "missing", RequiredBy: "all"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			outcome, runError := runner.Run(context.Background(), testCase.requested)
			var unknownTaskError UnknownTaskError
			require.ErrorAs(subTest, runError, &unknownTaskError)
			require.Equal(subTest, testCase.expectedError, unknownTaskError)
			require.Empty(subTest, outcome.Tasks)
		})
	}

	require.Empty(testInstance, journal)
	exists, existsError := afero.DirExists(fileSystem, "public")
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)
}

func TestRunDetectsCycles(testInstance *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(
		NewCompositeTask("a", "b"),
		NewCompositeTask("b", "c"),
		NewCompositeTask("c", "a"),
	)

	_, runError := newTestRunner(registry, afero.NewMemMapFs()).Run(context.Background(), "a")
	var cycleError CycleError
	require.ErrorAs(testInstance, runError, &cycleError)
	require.Equal(testInstance, []string{"a", "b", "c", "a"}, cycleError.Path)
}

func TestRunStopsAtFirstTransformError(testInstance *testing.T) {
	journal := []string{}
	stepFailure := errors.New("syntax error")
	registry := NewRegistry()
	registry.MustRegister(
		NewPipelineTask("first", Pipeline{Steps: []Step{recordingStep{name: "mark", journal: &journal}}, Destination: "out/first"}),
		NewPipelineTask("broken", Pipeline{Steps: []Step{
			recordingStep{name: "explode", journal: &journal, failWith: stepFailure},
			recordingStep{name: "never", journal: &journal},
		}, Destination: "out/broken"}),
		NewPipelineTask("last", Pipeline{Steps: []Step{recordingStep{name: "mark", journal: &journal}}, Destination: "out/last"}),
		NewCompositeTask("all", "first", "broken", "last"),
	)

	outcome, runError := newTestRunner(registry, afero.NewMemMapFs()).Run(context.Background(), "all")
	var transformError *TransformError
	require.ErrorAs(testInstance, runError, &transformError)
	require.Equal(testInstance, "broken", transformError.Task)
	require.Equal(testInstance, "explode", transformError.Step)
	require.ErrorIs(testInstance, runError, stepFailure)

	require.Equal(testInstance, []string{"first:mark", "broken:explode"}, journal)
	require.True(testInstance, outcome.Failed())
	require.Equal(testInstance, []string{"first", "broken"}, outcome.ExecutedPipelines())

	states := map[string]TaskState{}
	for _, taskOutcome := range outcome.Tasks {
		states[taskOutcome.Name] = taskOutcome.State
	}
	require.Equal(testInstance, TaskStateCompleted, states["first"])
	require.Equal(testInstance, TaskStateFailed, states["broken"])
	require.Equal(testInstance, TaskStateFailed, states["all"])
}

func TestRunReportsWriteFailuresAsIOError(testInstance *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(NewPipelineTask("emit", Pipeline{
		Steps:       []Step{generatingStep{}},
		Destination: "public",
	}))

	_, runError := newTestRunner(registry, afero.NewReadOnlyFs(afero.NewMemMapFs())).Run(context.Background(), "emit")
	var ioError *IOError
	require.ErrorAs(testInstance, runError, &ioError)
	require.Equal(testInstance, "emit", ioError.Task)
	require.Equal(testInstance, string(fileset.OperationMkdir), ioError.Operation)
}

func TestRunReportsInvalidSourcePatternsAsIOError(testInstance *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(NewPipelineTask("escape", Pipeline{Sources: []string{"../outside/*"}, Destination: "public"}))

	_, runError := newTestRunner(registry, afero.NewMemMapFs()).Run(context.Background(), "escape")
	var ioError *IOError
	require.ErrorAs(testInstance, runError, &ioError)
	require.Equal(testInstance, string(fileset.OperationGlob), ioError.Operation)
	require.ErrorIs(testInstance, runError, fileset.ErrInvalidPattern)
}

func TestRunHonorsCancelledContext(testInstance *testing.T) {
	journal := []string{}
	registry := NewRegistry()
	registry.MustRegister(NewPipelineTask("a", Pipeline{Steps: []Step{recordingStep{name: "mark", journal: &journal}}, Destination: "out"}))

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, runError := newTestRunner(registry, afero.NewMemMapFs()).Run(cancelledContext, "a")
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Empty(testInstance, journal)
}

func TestRunRecordsTimingFromClock(testInstance *testing.T) {
	startTime := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	registry := NewRegistry()
	registry.MustRegister(NewPipelineTask("a", Pipeline{Destination: "out"}))
	runner := NewRunner(registry, RunnerOptions{
		FileSystem: afero.NewMemMapFs(),
		Now: func() time.Time {
			tick++
			return startTime.Add(time.Duration(tick) * time.Second)
		},
	})

	outcome, runError := runner.Run(context.Background(), "a")
	require.NoError(testInstance, runError)
	require.NotEmpty(testInstance, outcome.RunID)
	require.Positive(testInstance, outcome.Duration)
	require.True(testInstance, outcome.EndTime.After(outcome.StartTime))
}

func TestPlanListsInvocationsWithDepth(testInstance *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(
		NewPipelineTask("awesome", Pipeline{Destination: "public/fonts"}),
		NewPipelineTask("roboto", Pipeline{Destination: "public/fonts"}),
		NewCompositeTask("fonts", "awesome", "roboto"),
		NewCompositeTask(DefaultTaskName, "fonts", "awesome"),
	)

	plan, planError := registry.Plan("")
	require.NoError(testInstance, planError)
	require.Equal(testInstance, []PlanEntry{
		{Name: DefaultTaskName, Kind: TaskKindComposite, Depth: 0},
		{Name: "fonts", Kind: TaskKindComposite, Parent: DefaultTaskName, Depth: 1},
		{Name: "awesome", Kind: TaskKindPipeline, Parent: "fonts", Depth: 2},
		{Name: "roboto", Kind: TaskKindPipeline, Parent: "fonts", Depth: 2},
		{Name: "awesome", Kind: TaskKindPipeline, Parent: DefaultTaskName, Depth: 1},
	}, plan)
}

func TestTaskStateTransitions(testInstance *testing.T) {
	next, transitionError := transitionState(TaskStateNotStarted, TaskStateRunning)
	require.NoError(testInstance, transitionError)
	require.Equal(testInstance, TaskStateRunning, next)

	_, transitionError = transitionState(TaskStateCompleted, TaskStateRunning)
	require.Error(testInstance, transitionError)

	_, transitionError = transitionState(TaskStateNotStarted, TaskStateCompleted)
	require.Error(testInstance, transitionError)
}

type generatingStep struct{}

func (generatingStep) Name() string {
	return "generate-file"
}

func (generatingStep) Apply(ctx context.Context, environment StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	return append(files, &fileset.File{Path: "generated.txt", Contents: []byte("generated")}), nil
}
