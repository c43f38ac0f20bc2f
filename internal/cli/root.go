package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

const envPrefix = "EVALCTL"

type options struct {
	cfgFile string
	v       *viper.Viper
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the evalctl command tree with its own viper
// instance.
func NewRootCommand() *cobra.Command {
	opts := &options{v: viper.New()}

	root := &cobra.Command{
		Use:   "evalctl",
		Short: "Score project manifests against language rubrics",
		Long: `evalctl runs the project evaluator offline.

It loads the built-in rubrics (plus any found in --rubric-dir), scores
project manifests and prints the results without a database.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (EVALCTL_*)
3. Config file (~/.evalctl/config.yaml)
4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: $HOME/.evalctl/config.yaml)")
	flags.String("rubric-dir", "", "directory of extra rubric YAML files")
	flags.StringP("output", "o", "json", "output format (json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")

	_ = opts.v.BindPFlag("rubric_dir", flags.Lookup("rubric-dir"))
	_ = opts.v.BindPFlag("output", flags.Lookup("output"))
	_ = opts.v.BindPFlag("verbose", flags.Lookup("verbose"))

	root.AddCommand(
		newVersionCommand(),
		newRubricsCommand(opts),
		newEvaluateCommand(opts),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "evalctl %s\n", Version)
		},
	}
}

// initConfig reads the config file and EVALCTL_* environment variables.
func (o *options) initConfig(cmd *cobra.Command) error {
	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
		if err := o.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", o.cfgFile, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		o.v.AddConfigPath(filepath.Join(home, ".evalctl"))
		o.v.SetConfigType("yaml")
		o.v.SetConfigName("config")
		// A missing default config file is fine.
		_ = o.v.ReadInConfig()
	}

	if o.v.GetBool("verbose") && o.v.ConfigFileUsed() != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", o.v.ConfigFileUsed())
	}
	switch o.v.GetString("output") {
	case "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want json or yaml)", o.v.GetString("output"))
	}
}
