package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/chain"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/parser"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/prompt"
)

type runOptions struct {
	model    string
	template string
	vars     []string
	parser   string
	asJSON   bool
	quiet    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [flags] [PROMPT...]",
		Short: "Send one prompt, or render a template and send it",
		Example: `  chain run -m claude "Why is the sky blue?"
  chain run -m gpt -t "sing a song about {{input}}" "John Henry"
  chain run -m gemini -t "{{n}} facts about {{topic}}" --var n=3 --var topic=owls --parser list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.run(cmd, args)
			if err != nil {
				return err
			}
			return writeEnvelope(cmd.OutOrStdout(), env, opts.asJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.model, "model", "m", defaultModel, "model name or alias")
	flags.StringVarP(&opts.template, "template", "t", "", "prompt template with {{var}} tags")
	flags.StringArrayVar(&opts.vars, "var", nil, "template variable as key=value (repeatable)")
	flags.StringVarP(&opts.parser, "parser", "p", "str", "output parser: str, json, list")
	flags.BoolVar(&opts.asJSON, "json", false, "print the full envelope as JSON")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "log responses at debug level only")
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, args []string) (*llm.Envelope, error) {
	p, err := parser.ByName(o.parser)
	if err != nil {
		return nil, err
	}
	vars, err := parseVars(o.vars)
	if err != nil {
		return nil, err
	}

	input := strings.TrimSpace(strings.Join(args, " "))
	text := o.template
	if text == "" {
		if input == "" {
			return nil, fmt.Errorf("a prompt or --template is required")
		}
		text = "{{input}}"
	}

	tpl, err := prompt.New(text)
	if err != nil {
		return nil, err
	}
	c, err := chain.New(tpl, o.model, chain.WithParser(p), chain.WithQuiet(o.quiet))
	if err != nil {
		return nil, err
	}

	if input != "" && len(vars) == 0 {
		return c.RunString(cmd.Context(), input)
	}
	return c.Run(cmd.Context(), vars)
}

// parseVars 解析 key=value 列表
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// writeEnvelope 输出 Envelope 的文本或 JSON 表示
func writeEnvelope(w io.Writer, env *llm.Envelope, asJSON bool) error {
	if asJSON {
		b, err := json.Marshal(env)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	_, err := fmt.Fprintln(w, env.String())
	return err
}
