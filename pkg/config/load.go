package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/cmdboard/pkg/errors"
)

// Load reads, decodes and validates the configuration file at path.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a YAML document. source names the document in
// error messages. Unknown keys are rejected so typos fail the load instead of
// silently dropping a route, and every key except output_format must be
// present, even when its value is empty.
func Parse(data []byte, source string) (*Configuration, error) {
	var doc document
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.WrapParse("yaml", source, err)
	}

	cfg, err := doc.configuration()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, errors.NewConfigError(source, err.Error(), err)
	}
	return cfg, nil
}

// document mirrors Configuration with pointer fields so an absent key can be
// told apart from a zero value.
type document struct {
	ListenAddress *string            `yaml:"listen_address"`
	MainPageTitle *string            `yaml:"main_page_title"`
	Commands      *[]commandEntry    `yaml:"commands"`
	StaticPaths   *[]staticPathEntry `yaml:"static_paths"`
}

type commandEntry struct {
	HTTPPath     *string      `yaml:"http_path"`
	Description  *string      `yaml:"description"`
	Command      *string      `yaml:"command"`
	Args         *[]string    `yaml:"args"`
	OutputFormat OutputFormat `yaml:"output_format"`
}

type staticPathEntry struct {
	HTTPPath          *string `yaml:"http_path"`
	FSPath            *string `yaml:"fs_path"`
	IncludeInMainPage *bool   `yaml:"include_in_main_page"`
}

// required reports a missing key as a validation error on field.
func required[T any](field string, v *T) (T, error) {
	if v == nil {
		var zero T
		return zero, errors.NewValidationError(field, nil, "is required")
	}
	return *v, nil
}

// configuration converts the decoded document, failing on the first missing
// key in document order.
func (d *document) configuration() (*Configuration, error) {
	var (
		cfg Configuration
		err error
	)
	if cfg.ListenAddress, err = required("listen_address", d.ListenAddress); err != nil {
		return nil, err
	}
	if cfg.MainPageTitle, err = required("main_page_title", d.MainPageTitle); err != nil {
		return nil, err
	}

	commands, err := required("commands", d.Commands)
	if err != nil {
		return nil, err
	}
	cfg.Commands = make([]CommandInfo, 0, len(commands))
	for i, c := range commands {
		info, err := c.commandInfo(fmt.Sprintf("commands[%d]", i))
		if err != nil {
			return nil, err
		}
		cfg.Commands = append(cfg.Commands, info)
	}

	static, err := required("static_paths", d.StaticPaths)
	if err != nil {
		return nil, err
	}
	cfg.StaticPaths = make([]StaticPathInfo, 0, len(static))
	for i, s := range static {
		info, err := s.staticPathInfo(fmt.Sprintf("static_paths[%d]", i))
		if err != nil {
			return nil, err
		}
		cfg.StaticPaths = append(cfg.StaticPaths, info)
	}

	return &cfg, nil
}

func (c commandEntry) commandInfo(owner string) (CommandInfo, error) {
	info := CommandInfo{OutputFormat: c.OutputFormat}
	var err error
	if info.HTTPPath, err = required(owner+".http_path", c.HTTPPath); err != nil {
		return info, err
	}
	if info.Description, err = required(owner+".description", c.Description); err != nil {
		return info, err
	}
	if info.Command, err = required(owner+".command", c.Command); err != nil {
		return info, err
	}
	if info.Args, err = required(owner+".args", c.Args); err != nil {
		return info, err
	}
	if info.Args == nil {
		info.Args = []string{}
	}
	return info, nil
}

func (s staticPathEntry) staticPathInfo(owner string) (StaticPathInfo, error) {
	var (
		info StaticPathInfo
		err  error
	)
	if info.HTTPPath, err = required(owner+".http_path", s.HTTPPath); err != nil {
		return info, err
	}
	if info.FSPath, err = required(owner+".fs_path", s.FSPath); err != nil {
		return info, err
	}
	if info.IncludeInMainPage, err = required(owner+".include_in_main_page", s.IncludeInMainPage); err != nil {
		return info, err
	}
	return info, nil
}
