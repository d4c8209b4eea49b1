package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/provider/stub"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/llm/registry"
	"github.com/lwmacct/251220-go-pkg-chain/pkg/logger"
)

// defaultModel 未指定 --model 时使用的模型
const defaultModel = "mistral"

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "chain",
		Short:         "Route prompts to LLM providers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", os.Getenv("CHAIN_CONFIG"), "config file (yaml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with provider API keys")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	flags.String("log-output", "stderr", "log output: stdout, stderr or a file path")
	flags.String("catalog", "", "model catalog file (yaml or json), builtin catalog when empty")
	flags.String("stub-script", "", "response script (yaml or json) for the testing provider")

	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("log.output", flags.Lookup("log-output"))
	_ = viper.BindPFlag("catalog", flags.Lookup("catalog"))
	_ = viper.BindPFlag("stub_script", flags.Lookup("stub-script"))

	viper.SetEnvPrefix("chain")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	cmd.AddCommand(newRunCmd(), newBatchCmd(), newModelsCmd(), newChatCmd())
	cmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}

// setup 读取配置并初始化日志、模型注册表与 Provider Factory
func setup(opts *rootOptions) error {
	if opts.configFile != "" {
		viper.SetConfigFile(opts.configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if err := loadEnvFile(opts.envFile); err != nil {
		return err
	}

	var logCfg logger.Config
	if err := viper.UnmarshalKey("log", &logCfg); err != nil {
		return fmt.Errorf("parse log config: %w", err)
	}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	reg, err := loadRegistry(viper.GetString("catalog"))
	if err != nil {
		return err
	}
	registry.SetDefault(reg)

	factoryOpts := []provider.FactoryOption{
		provider.WithBudgets(reg),
		provider.WithCredentials(llm.EnvCredentials{}),
		provider.WithLogger(logger.L()),
	}
	for _, kind := range llm.AllProviderKinds() {
		key := "providers." + kind.String()
		if !viper.IsSet(key) {
			continue
		}
		var cfg llm.Config
		if err := viper.UnmarshalKey(key, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		cfg.Kind = kind
		factoryOpts = append(factoryOpts, provider.WithConfig(cfg))
	}
	if path := viper.GetString("stub_script"); path != "" {
		script, err := stub.LoadScript(path)
		if err != nil {
			return err
		}
		factoryOpts = append(factoryOpts, provider.WithProvider(
			stub.New(stub.WithScript(script), stub.WithLogger(logger.Named("stub"))),
		))
	}
	provider.SetDefault(provider.NewFactory(factoryOpts...))

	logger.L().Debug("configured", "catalog", viper.GetString("catalog"), "config", viper.ConfigFileUsed())
	return nil
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.NewBuiltin()
	}
	cat, err := registry.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return registry.New(cat)
}

// loadEnvFile 将 dotenv 文件中的变量写入环境，已存在的变量不覆盖
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}
