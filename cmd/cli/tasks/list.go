package tasks

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
	flagutils "github.com/tyemirov/assetpipe/internal/utils/flags"
	rootutils "github.com/tyemirov/assetpipe/internal/utils/roots"
)

const (
	listCommandUseConstant              = "tasks"
	listCommandShortDescriptionConstant = "List registered build tasks"
	listCommandLongDescriptionConstant  = "tasks prints every registered task with its kind, sources, steps and destination."
	listFormatFlagNameConstant          = "format"
	listFormatFlagUsageConstant         = "Output format"
	listFormatTextConstant              = "text"
	listFormatYAMLConstant              = "yaml"
	listUnsupportedFormatTemplate       = "%w %q"
	listTextHeaderConstant              = "NAME\tKIND\tDESCRIPTION\n"
	listTextRowTemplateConstant         = "%s\t%s\t%s\n"
)

// ErrUnsupportedListFormat indicates an unknown --format value.
var ErrUnsupportedListFormat = errors.New("unsupported task list format")

// TaskDescriptor is the serialized view of a registered task.
type TaskDescriptor struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Description  string   `yaml:"description,omitempty"`
	Sources      []string `yaml:"sources,omitempty"`
	Steps        []string `yaml:"steps,omitempty"`
	Destination  string   `yaml:"destination,omitempty"`
	Dependencies []string `yaml:"depends_on,omitempty"`
}

// ListCommandBuilder assembles the tasks command.
type ListCommandBuilder struct {
	ConfigurationProvider func() CommandConfiguration
	RegistryProvider      RegistryProvider
}

// Build constructs the tasks command.
func (builder *ListCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   listCommandUseConstant,
		Short: listCommandShortDescriptionConstant,
		Long:  listCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().String(
		listFormatFlagNameConstant,
		listFormatTextConstant,
		flagutils.FormatChoiceUsage(listFormatTextConstant, []string{listFormatTextConstant, listFormatYAMLConstant}, listFormatFlagUsageConstant),
	)
	return command, nil
}

func (builder *ListCommandBuilder) run(command *cobra.Command, _ []string) (runError error) {
	format, _, formatError := flagutils.StringFlag(command, listFormatFlagNameConstant)
	if formatError != nil {
		return formatError
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != listFormatTextConstant && format != listFormatYAMLConstant {
		return fmt.Errorf(listUnsupportedFormatTemplate, ErrUnsupportedListFormat, format)
	}

	root, rootError := rootutils.Resolve(command, resolveCommandConfiguration(builder.ConfigurationProvider, command).Root)
	if rootError != nil {
		return rootError
	}

	if builder.RegistryProvider == nil {
		return errors.New(registryMissingMessageConstant)
	}
	registry, registryError := builder.RegistryProvider(root)
	if registryError != nil {
		return fmt.Errorf(registryBuildErrorTemplateConstant, registryError)
	}
	if registry.Close != nil {
		defer func() {
			runError = multierr.Append(runError, registry.Close())
		}()
	}

	descriptors := DescribeTasks(registry.Tasks)
	if format == listFormatYAMLConstant {
		return writeYAML(command.OutOrStdout(), descriptors)
	}
	return writeText(command.OutOrStdout(), descriptors)
}

// DescribeTasks converts the registry contents into descriptors in registration order.
func DescribeTasks(registry *taskgraph.Registry) []TaskDescriptor {
	if registry == nil {
		return nil
	}
	registeredTasks := registry.Tasks()
	descriptors := make([]TaskDescriptor, 0, len(registeredTasks))
	for _, task := range registeredTasks {
		descriptor := TaskDescriptor{
			Name:        task.Name,
			Kind:        string(task.Kind()),
			Description: task.Description,
		}
		if task.Pipeline != nil {
			descriptor.Sources = append([]string(nil), task.Pipeline.Sources...)
			descriptor.Steps = task.StepNames()
			descriptor.Destination = task.Pipeline.Destination
		}
		if task.Composite != nil {
			descriptor.Dependencies = task.Dependencies()
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors
}

func writeYAML(writer io.Writer, descriptors []TaskDescriptor) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(descriptors); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func writeText(writer io.Writer, descriptors []TaskDescriptor) error {
	tabWriter := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	if _, writeError := io.WriteString(tabWriter, listTextHeaderConstant); writeError != nil {
		return writeError
	}
	for _, descriptor := range descriptors {
		if _, writeError := fmt.Fprintf(tabWriter, listTextRowTemplateConstant, descriptor.Name, descriptor.Kind, descriptor.Description); writeError != nil {
			return writeError
		}
	}
	return tabWriter.Flush()
}
