package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	taskscmd "github.com/tyemirov/assetpipe/cmd/cli/tasks"
	"github.com/tyemirov/assetpipe/internal/taskgraph"
	"github.com/tyemirov/assetpipe/internal/transform"
)

const (
	testConfigurationSearchPathEnvironmentName = "ASSETPIPE_CONFIG_SEARCH_PATH"
	testQuietLogArgumentsConstant              = "--log-level=error"
	testVersionConstant                        = "v1.2.3"
	testCompiledStylesheetConstant             = "body{color:red}"
	testExistingConfigurationContentConstant   = "common:\n  log_level: error\n"
)

type stubStylesheetCompiler struct {
	requests []transform.StylesheetRequest
	closed   int
	failure  error
}

func (compiler *stubStylesheetCompiler) Compile(_ context.Context, request transform.StylesheetRequest) (transform.StylesheetResult, error) {
	compiler.requests = append(compiler.requests, request)
	if compiler.failure != nil {
		return transform.StylesheetResult{}, compiler.failure
	}
	return transform.StylesheetResult{CSS: testCompiledStylesheetConstant}, nil
}

func (compiler *stubStylesheetCompiler) Close() error {
	compiler.closed++
	return nil
}

type applicationHarness struct {
	application *Application
	compiler    *stubStylesheetCompiler
	output      *bytes.Buffer
	errors      *bytes.Buffer
	options     []transform.DartSassOptions
}

func newApplicationHarness(testInstance *testing.T) *applicationHarness {
	testInstance.Helper()
	return newApplicationHarnessWithSearchPath(testInstance, testInstance.TempDir())
}

func newApplicationHarnessWithSearchPath(testInstance *testing.T, searchPath string) *applicationHarness {
	testInstance.Helper()
	testInstance.Setenv(testConfigurationSearchPathEnvironmentName, searchPath)

	harness := &applicationHarness{
		application: NewApplication(),
		compiler:    &stubStylesheetCompiler{},
		output:      &bytes.Buffer{},
		errors:      &bytes.Buffer{},
	}
	harness.application.stylesheetCompilerProvider = func(options transform.DartSassOptions) closableStylesheetCompiler {
		harness.options = append(harness.options, options)
		return harness.compiler
	}
	harness.application.versionResolver = func(context.Context) string { return testVersionConstant }
	harness.application.rootCommand.SetOut(harness.output)
	harness.application.rootCommand.SetErr(harness.errors)
	return harness
}

func (harness *applicationHarness) execute(arguments ...string) error {
	return harness.application.ExecuteWithArguments(append(arguments, testQuietLogArgumentsConstant))
}

func writeProjectFile(testInstance *testing.T, root string, relativePath string, contents string) {
	testInstance.Helper()
	absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
	require.NoError(testInstance, os.WriteFile(absolutePath, []byte(contents), 0o644))
}

func seedProject(testInstance *testing.T) string {
	testInstance.Helper()
	root := testInstance.TempDir()
	writeProjectFile(testInstance, root, "node_modules/font-awesome/fonts/fontawesome-webfont.woff", "awesome-woff")
	writeProjectFile(testInstance, root, "node_modules/roboto-fontface/fonts/roboto/Roboto-Regular.woff2", "roboto-woff2")
	writeProjectFile(testInstance, root, "src/style.scss", "$color: red;\nbody { color: $color; }\n")
	writeProjectFile(testInstance, root, "src/images/logo.svg", "<svg/>")
	return root
}

func readProjectFile(testInstance *testing.T, root string, relativePath string) string {
	testInstance.Helper()
	contents, readError := os.ReadFile(filepath.Join(root, filepath.FromSlash(relativePath)))
	require.NoError(testInstance, readError)
	return string(contents)
}

func writeConfiguration(testInstance *testing.T, contents string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(testInstance.TempDir(), configurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(contents), 0o600))
	return configurationPath
}

func TestApplicationRunsFontsTask(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "root command", arguments: []string{"fonts"}},
		{name: "run subcommand", arguments: []string{"run", "fonts"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			root := seedProject(subTest)
			harness := newApplicationHarness(subTest)

			require.NoError(subTest, harness.execute(append(testCase.arguments, "--root", root)...))
			require.Equal(subTest, "awesome-woff", readProjectFile(subTest, root, "public/fonts/font-awesome/fontawesome-webfont.woff"))
			require.Equal(subTest, "roboto-woff2", readProjectFile(subTest, root, "public/fonts/roboto/Roboto-Regular.woff2"))
			require.Contains(subTest, harness.errors.String(), "Summary: tasks=3 pipelines=2 outputs=2")
			require.Equal(subTest, 1, harness.compiler.closed)
		})
	}
}

func TestApplicationRunsStylesWithConfiguredCompiler(testInstance *testing.T) {
	root := seedProject(testInstance)
	configurationPath := writeConfiguration(testInstance, "build:\n  sass_executable: /opt/sass/bin/sass\n  sass_timeout: 5s\n")
	harness := newApplicationHarness(testInstance)

	require.NoError(testInstance, harness.execute("styles", "--root", root, "--config", configurationPath))
	require.Equal(testInstance, testCompiledStylesheetConstant, readProjectFile(testInstance, root, "public/css/style.css"))

	require.Len(testInstance, harness.options, 1)
	require.Equal(testInstance, "/opt/sass/bin/sass", harness.options[0].Executable)
	require.Equal(testInstance, "5s", harness.options[0].Timeout.String())
	require.Equal(testInstance, root, harness.options[0].Root)

	require.Len(testInstance, harness.compiler.requests, 1)
	require.Equal(testInstance, "src/style.scss", harness.compiler.requests[0].Path)
	require.Equal(testInstance, []string{"node_modules"}, harness.compiler.requests[0].IncludePaths)
}

func TestApplicationStylesCompilerFailureDoesNotFailRun(testInstance *testing.T) {
	root := seedProject(testInstance)
	harness := newApplicationHarness(testInstance)
	harness.compiler.failure = errors.New("Undefined variable")

	require.NoError(testInstance, harness.execute("styles", "--root", root))
	require.NoFileExists(testInstance, filepath.Join(root, "public", "css", "style.css"))
	require.Contains(testInstance, harness.errors.String(), "failed=0")
}

func TestApplicationStylesFailsWhenCompilerIsUnavailable(testInstance *testing.T) {
	root := seedProject(testInstance)
	harness := newApplicationHarness(testInstance)
	harness.compiler.failure = fmt.Errorf("%w: start dart sass %q", transform.ErrStylesheetCompilerUnavailable, "sass")

	executionError := harness.execute("styles", "--root", root)
	var transformError *taskgraph.TransformError
	require.ErrorAs(testInstance, executionError, &transformError)
	require.ErrorIs(testInstance, executionError, transform.ErrStylesheetCompilerUnavailable)
	require.NoFileExists(testInstance, filepath.Join(root, "public", "css", "style.css"))
	require.Contains(testInstance, harness.errors.String(), "failed=1")
}

func TestApplicationRejectsUnknownTaskWithoutSideEffects(testInstance *testing.T) {
	root := seedProject(testInstance)
	harness := newApplicationHarness(testInstance)

	executionError := harness.execute("nonexistent", "--root", root)
	require.Error(testInstance, executionError)

	var unknownTaskError taskgraph.UnknownTaskError
	require.ErrorAs(testInstance, executionError, &unknownTaskError)
	require.Equal(testInstance, "nonexistent", unknownTaskError.Name)
	require.NoDirExists(testInstance, filepath.Join(root, "public"))
}

func TestApplicationDryRunPrintsDefaultPlan(testInstance *testing.T) {
	root := seedProject(testInstance)
	harness := newApplicationHarness(testInstance)

	require.NoError(testInstance, harness.execute("--dry-run", "--root", root))

	expectedPlan := strings.Join([]string{
		"default (composite)",
		"  javascript (pipeline): sourcemaps-init | transpile | minify | concat | sourcemaps-write -> public/js",
		"  fonts (composite)",
		"    awesome (pipeline): copy -> public/fonts/font-awesome",
		"    roboto (pipeline): copy -> public/fonts/roboto",
		"  styles (pipeline): compile-stylesheet -> public/css",
	}, "\n") + "\n"
	require.Equal(testInstance, expectedPlan, harness.output.String())
	require.NoDirExists(testInstance, filepath.Join(root, "public"))
}

func TestApplicationDryRunFromConfiguration(testInstance *testing.T) {
	root := seedProject(testInstance)
	configurationPath := writeConfiguration(testInstance, "common:\n  dry_run: true\n")
	harness := newApplicationHarness(testInstance)

	require.NoError(testInstance, harness.execute("fonts", "--root", root, "--config", configurationPath))
	require.Contains(testInstance, harness.output.String(), "fonts (composite)")
	require.NoDirExists(testInstance, filepath.Join(root, "public"))
}

func TestApplicationAppliesEnvironmentOverridesToSearchedConfiguration(testInstance *testing.T) {
	root := seedProject(testInstance)
	searchDirectory := testInstance.TempDir()
	writeProjectFile(testInstance, searchDirectory, configurationFileNameConstant, strings.Join([]string{
		"build:",
		"  root: /nonexistent/assetpipe/root",
		"  sass_executable: /opt/dart-sass/sass",
		"tasks:",
		"  - name: images",
		"    sources:",
		"      - src/images/*.svg",
		"    destination: public/images",
		"",
	}, "\n"))
	testInstance.Setenv("ASSETPIPE_BUILD_ROOT", root)
	testInstance.Setenv("ASSETPIPE_BUILD_SASS_TIMEOUT", "45s")
	harness := newApplicationHarnessWithSearchPath(testInstance, searchDirectory)

	require.NoError(testInstance, harness.execute("images"))
	require.Equal(testInstance, "<svg/>", readProjectFile(testInstance, root, "public/images/logo.svg"))
	require.Len(testInstance, harness.options, 1)
	require.Equal(testInstance, []transform.DartSassOptions{{
		Executable: "/opt/dart-sass/sass",
		Timeout:    45 * time.Second,
		Root:       root,
		Logger:     harness.options[0].Logger,
	}}, harness.options)
}

func TestApplicationRegistersConfiguredTasks(testInstance *testing.T) {
	root := seedProject(testInstance)
	configurationPath := writeConfiguration(testInstance, strings.Join([]string{
		"tasks:",
		"  - name: images",
		"    description: Copy images",
		"    sources:",
		"      - src/images/*.svg",
		"    steps:",
		"      - transform: copy",
		"    destination: public/images",
		"  - name: release",
		"    depends_on: [fonts, images]",
		"",
	}, "\n"))
	harness := newApplicationHarness(testInstance)

	require.NoError(testInstance, harness.execute("release", "--root", root, "--config", configurationPath))
	require.Equal(testInstance, "<svg/>", readProjectFile(testInstance, root, "public/images/logo.svg"))
	require.Equal(testInstance, "awesome-woff", readProjectFile(testInstance, root, "public/fonts/font-awesome/fontawesome-webfont.woff"))
	require.Contains(testInstance, harness.errors.String(), "Summary: tasks=5 pipelines=3")
}

func TestApplicationRejectsInvalidConfiguredTasks(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration string
		assertError   func(*testing.T, error)
	}{
		{
			name:          "duplicate of built-in",
			configuration: "tasks:\n  - name: fonts\n    depends_on: [awesome]\n",
			assertError: func(testInstance *testing.T, executionError error) {
				var duplicateError taskgraph.DuplicateTaskError
				require.ErrorAs(testInstance, executionError, &duplicateError)
				require.Equal(testInstance, "fonts", duplicateError.Name)
			},
		},
		{
			name:          "unknown transform",
			configuration: "tasks:\n  - name: images\n    sources: [src/images/*.svg]\n    steps:\n      - transform: optimize\n    destination: public/images\n",
			assertError: func(testInstance *testing.T, executionError error) {
				var unknownTransformError transform.UnknownTransformError
				require.ErrorAs(testInstance, executionError, &unknownTransformError)
			},
		},
		{
			name:          "ambiguous kind",
			configuration: "tasks:\n  - name: images\n    sources: [src/images/*.svg]\n    destination: public/images\n    depends_on: [fonts]\n",
			assertError: func(testInstance *testing.T, executionError error) {
				require.ErrorIs(testInstance, executionError, errConfiguredTaskAmbiguous)
			},
		},
		{
			name:          "missing destination",
			configuration: "tasks:\n  - name: images\n    sources: [src/images/*.svg]\n",
			assertError: func(testInstance *testing.T, executionError error) {
				require.ErrorIs(testInstance, executionError, errConfiguredTaskDestinationMissing)
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			root := seedProject(subTest)
			configurationPath := writeConfiguration(subTest, testCase.configuration)
			harness := newApplicationHarness(subTest)

			executionError := harness.execute("fonts", "--root", root, "--config", configurationPath)
			require.Error(subTest, executionError)

			var configuredTaskError ConfiguredTaskError
			require.ErrorAs(subTest, executionError, &configuredTaskError)
			testCase.assertError(subTest, executionError)
			require.NoDirExists(subTest, filepath.Join(root, "public"))
			require.Equal(subTest, 1, harness.compiler.closed)
		})
	}
}

func TestApplicationListsTasksAsYAML(testInstance *testing.T) {
	root := seedProject(testInstance)
	harness := newApplicationHarness(testInstance)

	require.NoError(testInstance, harness.execute("tasks", "--format", "yaml", "--root", root))

	var descriptors []taskscmd.TaskDescriptor
	require.NoError(testInstance, yaml.Unmarshal(harness.output.Bytes(), &descriptors))

	names := make([]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		names = append(names, descriptor.Name)
	}
	require.Equal(testInstance, []string{"javascript", "awesome", "roboto", "fonts", "styles", "default"}, names)
	require.Equal(testInstance, []string{"javascript", "fonts", "styles"}, descriptors[5].Dependencies)
}

func TestApplicationVersionOutputs(testInstance *testing.T) {
	testInstance.Run("subcommand", func(subTest *testing.T) {
		harness := newApplicationHarness(subTest)
		require.NoError(subTest, harness.execute("version"))
		require.Equal(subTest, "assetpipe version: v1.2.3\n", harness.output.String())
	})

	testInstance.Run("flag", func(subTest *testing.T) {
		harness := newApplicationHarness(subTest)
		exitCodes := []int{}
		harness.application.exitFunction = func(code int) { exitCodes = append(exitCodes, code) }

		require.NoError(subTest, harness.execute("--version", "--dry-run"))
		require.Equal(subTest, []int{0}, exitCodes)
		require.True(subTest, strings.HasPrefix(harness.output.String(), "assetpipe version: v1.2.3\n"))
	})
}

func TestApplicationConfigurationInitialization(testInstance *testing.T) {
	testInstance.Run("local scope", func(subTest *testing.T) {
		workingDirectory := subTest.TempDir()
		subTest.Chdir(workingDirectory)
		harness := newApplicationHarness(subTest)

		require.NoError(subTest, harness.execute("--init"))

		written, readError := os.ReadFile(filepath.Join(workingDirectory, configurationFileNameConstant))
		require.NoError(subTest, readError)
		embedded, _ := EmbeddedDefaultConfiguration()
		require.Equal(subTest, embedded, written)
	})

	testInstance.Run("user scope", func(subTest *testing.T) {
		homeDirectory := subTest.TempDir()
		subTest.Setenv("HOME", homeDirectory)
		harness := newApplicationHarness(subTest)

		require.NoError(subTest, harness.execute("--init=user"))
		require.FileExists(subTest, filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant, configurationFileNameConstant))
	})

	testInstance.Run("force required", func(subTest *testing.T) {
		workingDirectory := subTest.TempDir()
		subTest.Chdir(workingDirectory)
		configurationPath := filepath.Join(workingDirectory, configurationFileNameConstant)
		require.NoError(subTest, os.WriteFile(configurationPath, []byte(testExistingConfigurationContentConstant), 0o600))

		harness := newApplicationHarness(subTest)
		initializationError := harness.execute("--init")
		require.Error(subTest, initializationError)
		require.Contains(subTest, initializationError.Error(), "already exists")

		forcedHarness := newApplicationHarness(subTest)
		require.NoError(subTest, forcedHarness.execute("--init", "--force"))
		written, readError := os.ReadFile(configurationPath)
		require.NoError(subTest, readError)
		require.NotEqual(subTest, testExistingConfigurationContentConstant, string(written))
	})

	testInstance.Run("unsupported scope", func(subTest *testing.T) {
		harness := newApplicationHarness(subTest)
		require.Error(subTest, harness.execute("--init=global"))
	})
}

func TestNormalizeInitializationScopeArguments(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		expected  []string
	}{
		{name: "empty", arguments: nil, expected: []string{}},
		{name: "bare flag at end", arguments: []string{"--init"}, expected: []string{"--init=local"}},
		{name: "bare flag before flag", arguments: []string{"--init", "--force"}, expected: []string{"--init=local", "--force"}},
		{name: "empty assignment", arguments: []string{"--init="}, expected: []string{"--init=local"}},
		{name: "explicit value", arguments: []string{"--init", "user"}, expected: []string{"--init", "user"}},
		{name: "unrelated", arguments: []string{"fonts", "--root", "."}, expected: []string{"fonts", "--root", "."}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, normalizeInitializationScopeArguments(testCase.arguments))
		})
	}
}
