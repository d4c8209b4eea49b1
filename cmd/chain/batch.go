package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/chain"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/dispatch"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/parser"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/prompt"
)

// batchFile 批量输入文件
//
//	model: claude
//	template: "sing a song about {{input}}"
//	parser: str
//	inputs:
//	  - input: John Henry
//	  - input: Casey Jones
//
// 不需要模板时用 prompts 列出提示文本。
type batchFile struct {
	Model    string           `yaml:"model"`
	Template string           `yaml:"template"`
	Parser   string           `yaml:"parser"`
	Inputs   []map[string]any `yaml:"inputs"`
	Prompts  []string         `yaml:"prompts"`
}

type batchOptions struct {
	model  string
	limit  int
	window bool
	asJSON bool
}

func newBatchCmd() *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch [flags] FILE",
		Short: "Dispatch a YAML batch of prompts concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.model, "model", "m", "", "override the model named in the file")
	flags.IntVarP(&opts.limit, "limit", "l", 4, "concurrency limit (also the maximum batch size unless --window)")
	flags.BoolVar(&opts.window, "window", false, "treat --limit as a sliding window instead of a batch cap")
	flags.BoolVar(&opts.asJSON, "json", false, "print one JSON envelope per line")
	return cmd
}

func loadBatchFile(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}

	if f.Template == "" {
		if len(f.Inputs) > 0 {
			return nil, fmt.Errorf("batch file has inputs but no template")
		}
		f.Template = "{{input}}"
		for _, p := range f.Prompts {
			f.Inputs = append(f.Inputs, map[string]any{"input": p})
		}
	} else if len(f.Prompts) > 0 {
		return nil, fmt.Errorf("batch file sets both template and prompts")
	}
	return &f, nil
}

func (o *batchOptions) run(cmd *cobra.Command, path string) error {
	f, err := loadBatchFile(path)
	if err != nil {
		return err
	}
	model := f.Model
	if o.model != "" {
		model = o.model
	}
	if model == "" {
		model = defaultModel
	}

	p, err := parser.ByName(f.Parser)
	if err != nil {
		return err
	}
	tpl, err := prompt.New(f.Template)
	if err != nil {
		return err
	}

	policy := dispatch.PolicyStrict
	if o.window {
		policy = dispatch.PolicyWindow
	}
	c, err := chain.New(tpl, model, chain.WithParser(p), chain.WithPolicy(policy), chain.WithQuiet(true))
	if err != nil {
		return err
	}

	envs, err := c.Batch(cmd.Context(), f.Inputs, o.limit)
	if envs == nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, env := range envs {
		if o.asJSON {
			if werr := writeEnvelope(out, env, true); werr != nil {
				return werr
			}
			continue
		}
		_, _ = fmt.Fprintf(out, "[%d] %s (%.2fs)\n%s\n\n", i, env.Status, env.DurationSeconds(), env.String())
	}

	if failed := dispatch.Failed(envs); len(failed) > 0 {
		errOut := cmd.ErrOrStderr()
		_, _ = fmt.Fprintf(errOut, "%d of %d requests failed: %v\n", len(failed), len(envs), failed)
		if retryable := dispatch.Retryable(envs); len(retryable) > 0 {
			_, _ = fmt.Fprintf(errOut, "retryable: %v\n", retryable)
		}
	}
	return err
}
