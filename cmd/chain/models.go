package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/registry"
)

// modelLister 能在线列出已安装模型的 Provider（如 Ollama）
type modelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

type modelsOptions struct {
	provider string
	refresh  bool
}

func newModelsCmd() *cobra.Command {
	opts := &modelsOptions{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models and aliases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.provider, "provider", "", "only list models of this provider (gemini is accepted for google)")
	flags.BoolVar(&opts.refresh, "refresh", false, "query the local Ollama server and add its models first")
	return cmd
}

func (o *modelsOptions) run(cmd *cobra.Command) error {
	reg := registry.Default()

	kinds := llm.AllProviderKinds()
	if o.provider != "" {
		kind, err := llm.ParseProviderKind(o.provider)
		if err != nil {
			return llm.NewConfigError("--provider", err)
		}
		kinds = []llm.ProviderKind{kind}
	}

	if o.refresh {
		if err := refreshOllama(cmd.Context(), reg); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, kind := range kinds {
		models := reg.ListProviderModels(kind)
		if len(models) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(out, "%s:\n", kind)
		for _, m := range models {
			_, _ = fmt.Fprintf(out, "  %s\n", m)
		}
	}

	if o.provider == "" {
		writeAliases(out, reg)
	}
	return nil
}

func refreshOllama(ctx context.Context, reg *registry.Registry) error {
	p, err := provider.Default().Provider(llm.ProviderOllama)
	if err != nil {
		return err
	}
	lister, ok := p.(modelLister)
	if !ok {
		return llm.NewUnsupportedFeatureError(llm.ProviderOllama, "", "model listing")
	}

	names, err := lister.ListModels(ctx)
	if err != nil {
		return err
	}
	return reg.AddModels(llm.ProviderOllama, names...)
}

func writeAliases(w io.Writer, reg *registry.Registry) {
	aliases := reg.Aliases()
	names := reg.AliasNames()
	if len(names) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "aliases:")
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, n := range names {
		_, _ = fmt.Fprintf(w, "  %s%s -> %s\n", n, strings.Repeat(" ", width-len(n)), aliases[n])
	}
}
