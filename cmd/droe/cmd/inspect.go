package cmd

import (
	"fmt"
	"os"

	"github.com/droe-lang/droe/internal/bytecode"
	yaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact-or-source>",
	Short: "Print a compiled artifact's tables as YAML",
	Long: `inspect renders an artifact's record-schema, module/action, and endpoint
tables as YAML, a debugging aid alongside "compile --disassemble" for
looking at what the emitter produced without single-stepping the VM.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	path := args[0]
	chunk, err := loadChunk(path, newLogger())
	if err != nil {
		return err
	}

	report := inspectReportOf(chunk)
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}
	fmt.Fprint(os.Stdout, string(data))
	return nil
}

type inspectReport struct {
	SourceFile      string             `yaml:"source_file"`
	CompilerVersion string             `yaml:"compiler_version"`
	CreatedAt       int64              `yaml:"created_at"`
	Records         []inspectRecord    `yaml:"records"`
	Modules         []inspectModule    `yaml:"modules"`
	Endpoints       []inspectEndpoint  `yaml:"endpoints"`
	Stats           inspectChunkStats  `yaml:"stats"`
}

type inspectRecord struct {
	Name   string         `yaml:"name"`
	Fields []inspectField `yaml:"fields"`
}

type inspectField struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Annotations []string `yaml:"annotations,omitempty"`
}

type inspectModule struct {
	Name    string          `yaml:"name"`
	Actions []inspectAction `yaml:"actions"`
}

type inspectAction struct {
	Name    string   `yaml:"name"`
	Params  []string `yaml:"params,omitempty"`
	Returns string   `yaml:"returns,omitempty"`
	Entry   uint32   `yaml:"entry"`
	Locals  uint16   `yaml:"locals"`
}

type inspectEndpoint struct {
	Method     string   `yaml:"method"`
	Path       string   `yaml:"path"`
	PathParams []string `yaml:"path_params,omitempty"`
	Entry      uint32   `yaml:"handler_entry"`
	Locals     uint16   `yaml:"locals"`
}

type inspectChunkStats struct {
	Instructions int `yaml:"instructions"`
	Constants    int `yaml:"constants"`
}

func inspectReportOf(chunk *bytecode.Chunk) inspectReport {
	report := inspectReport{
		SourceFile:      chunk.Metadata.SourceFile,
		CompilerVersion: chunk.Metadata.CompilerVersion,
		CreatedAt:       chunk.Metadata.CreatedAt,
		Stats: inspectChunkStats{
			Instructions: len(chunk.Code),
			Constants:    len(chunk.Constants),
		},
	}

	for _, rs := range chunk.RecordSchemas {
		rec := inspectRecord{Name: rs.Name}
		for _, f := range rs.Fields {
			var anns []string
			for _, a := range f.Annotations {
				if a.Kind == "default" {
					anns = append(anns, a.Kind+"="+a.Default)
				} else {
					anns = append(anns, a.Kind)
				}
			}
			typ := "<unknown>"
			if f.Type != nil {
				typ = f.Type.String()
			}
			rec.Fields = append(rec.Fields, inspectField{Name: f.Name, Type: typ, Annotations: anns})
		}
		report.Records = append(report.Records, rec)
	}

	for _, m := range chunk.Modules {
		mod := inspectModule{Name: m.Name}
		for _, a := range m.Actions {
			var params []string
			for _, p := range a.Params {
				params = append(params, p.Name+" which is "+p.Type.String())
			}
			returns := ""
			if a.Returns != nil {
				returns = a.Returns.String()
			}
			mod.Actions = append(mod.Actions, inspectAction{
				Name: a.Name, Params: params, Returns: returns,
				Entry: a.Entry, Locals: a.Locals,
			})
		}
		report.Modules = append(report.Modules, mod)
	}

	for _, ep := range chunk.Endpoints {
		report.Endpoints = append(report.Endpoints, inspectEndpoint{
			Method:     ep.Method.String(),
			Path:       ep.PathTemplate,
			PathParams: ep.PathParams,
			Entry:      ep.HandlerEntry,
			Locals:     ep.Locals,
		})
	}

	return report
}
