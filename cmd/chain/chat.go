package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	goprompt "github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/chat"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

type chatOptions struct {
	model  string
	system string
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := chat.New(opts.model,
				chat.WithSystemPrompt(opts.system),
				chat.WithLogger(logger.Named("chat")),
			)
			if err != nil {
				return err
			}
			return s.Run(cmd.Context(), newLineReader(cmd.InOrStdin()), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.model, "model", "m", defaultModel, "model name or alias")
	flags.StringVarP(&opts.system, "system", "s", chat.DefaultSystemPrompt, "system prompt")
	return cmd
}

var chatSuggestions = []goprompt.Suggest{
	{Text: "/show system", Description: "print the system prompt"},
	{Text: "/show model", Description: "print the model name"},
	{Text: "/show messages", Description: "print the conversation so far"},
	{Text: "/help", Description: "list commands"},
	{Text: chat.ExitCommand, Description: "leave the chat"},
}

func chatCompleter(d goprompt.Document) []goprompt.Suggest {
	text := d.TextBeforeCursor()
	if !strings.HasPrefix(text, "/") {
		return nil
	}
	return goprompt.FilterHasPrefix(chatSuggestions, text, true)
}

// newLineReader 终端上使用 go-prompt，管道输入时逐行读取
func newLineReader(in io.Reader) func() (string, error) {
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		return promptReader()
	}

	sc := bufio.NewScanner(in)
	return func() (string, error) {
		if sc.Scan() {
			return sc.Text(), nil
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
}

// promptReader 交互输入，输入 exit 结束会话
func promptReader() func() (string, error) {
	var history []string

	return func() (string, error) {
		line := goprompt.Input("You: ", chatCompleter,
			goprompt.OptionTitle("chain"),
			goprompt.OptionHistory(history),
			goprompt.OptionMaxSuggestion(6),
			goprompt.OptionSuggestionBGColor(goprompt.DefaultColor),
			goprompt.OptionPreviewSuggestionTextColor(goprompt.DefaultColor),
			goprompt.OptionScrollbarBGColor(goprompt.DefaultColor),
		)
		if strings.TrimSpace(line) != "" {
			history = append(history, line)
		}
		return line, nil
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
