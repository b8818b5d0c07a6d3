// Package assets defines the built-in front-end build: the JavaScript bundle, the two
// vendored font trees and the Sass stylesheet.
package assets

import (
	"fmt"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
	"github.com/tyemirov/assetpipe/internal/transform"
)

// Built-in task names.
const (
	TaskJavascript = "javascript"
	TaskAwesome    = "awesome"
	TaskRoboto     = "roboto"
	TaskFonts      = "fonts"
	TaskStyles     = "styles"
	TaskDefault    = taskgraph.DefaultTaskName
)

const (
	javascriptEntryConstant       = "./src/index.jsx"
	javascriptBundleConstant      = "bundle.js"
	javascriptDestinationConstant = "public/js"
	sourceMapDirectoryConstant    = "."
	awesomeSourceConstant         = "node_modules/font-awesome/fonts/*"
	awesomeDestinationConstant    = "public/fonts/font-awesome"
	robotoSourceConstant          = "node_modules/roboto-fontface/fonts/roboto/*"
	robotoDestinationConstant     = "public/fonts/roboto"
	stylesheetEntryConstant       = "src/style.scss"
	stylesheetIncludePathConstant = "node_modules"
	stylesheetDestinationConstant = "public/css"
	javascriptTargetConstant      = "es2015"
	catalogBuildErrorTemplate     = "assets.%s: %w"
)

// Tasks returns the built-in task definitions in registration order.
func Tasks(dependencies transform.Dependencies) ([]taskgraph.Task, error) {
	javascriptTask, javascriptError := javascript()
	if javascriptError != nil {
		return nil, fmt.Errorf(catalogBuildErrorTemplate, TaskJavascript, javascriptError)
	}
	stylesheetStep, stylesheetError := transform.NewCompileStylesheet(dependencies.StylesheetCompiler, transform.StylesheetOptions{
		IncludePaths: []string{stylesheetIncludePathConstant},
	})
	if stylesheetError != nil {
		return nil, fmt.Errorf(catalogBuildErrorTemplate, TaskStyles, stylesheetError)
	}

	return []taskgraph.Task{
		javascriptTask,
		taskgraph.NewPipelineTask(TaskAwesome, taskgraph.Pipeline{
			Sources:     []string{awesomeSourceConstant},
			Steps:       []taskgraph.Step{transform.NewCopy()},
			Destination: awesomeDestinationConstant,
		}).WithDescription("Copy the Font Awesome font files"),
		taskgraph.NewPipelineTask(TaskRoboto, taskgraph.Pipeline{
			Sources:     []string{robotoSourceConstant},
			Steps:       []taskgraph.Step{transform.NewCopy()},
			Destination: robotoDestinationConstant,
		}).WithDescription("Copy the Roboto font files"),
		taskgraph.NewCompositeTask(TaskFonts, TaskAwesome, TaskRoboto).WithDescription("Copy every vendored font"),
		taskgraph.NewPipelineTask(TaskStyles, taskgraph.Pipeline{
			Sources:     []string{stylesheetEntryConstant},
			Steps:       []taskgraph.Step{stylesheetStep},
			Destination: stylesheetDestinationConstant,
		}).WithDescription("Compile the Sass stylesheet; compiler errors are logged, not fatal"),
		taskgraph.NewCompositeTask(TaskDefault, TaskJavascript, TaskFonts, TaskStyles).WithDescription("Run javascript, then fonts, then styles"),
	}, nil
}

// Register adds the built-in tasks to registry.
func Register(registry *taskgraph.Registry, dependencies transform.Dependencies) error {
	tasks, tasksError := Tasks(dependencies)
	if tasksError != nil {
		return tasksError
	}
	for _, task := range tasks {
		if registrationError := registry.Register(task); registrationError != nil {
			return registrationError
		}
	}
	return nil
}

func javascript() (taskgraph.Task, error) {
	transpile, transpileError := transform.NewTranspile(transform.TranspileOptions{Target: javascriptTargetConstant})
	if transpileError != nil {
		return taskgraph.Task{}, transpileError
	}
	minify, minifyError := transform.NewMinify(transform.MinifyOptions{Target: javascriptTargetConstant})
	if minifyError != nil {
		return taskgraph.Task{}, minifyError
	}
	concat, concatError := transform.NewConcat(transform.ConcatOptions{File: javascriptBundleConstant})
	if concatError != nil {
		return taskgraph.Task{}, concatError
	}

	return taskgraph.NewPipelineTask(TaskJavascript, taskgraph.Pipeline{
		Sources: []string{javascriptEntryConstant},
		Steps: []taskgraph.Step{
			transform.NewSourceMapsInit(),
			transpile,
			minify,
			concat,
			transform.NewSourceMapsWrite(sourceMapDirectoryConstant),
		},
		Destination: javascriptDestinationConstant,
	}).WithDescription("Transpile, minify and bundle src/index.jsx with a sourcemap"), nil
}
