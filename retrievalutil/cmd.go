package retrievalutil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information for the retrieval driver, following
// inmaputil.Cfg's pattern of wrapping a *viper.Viper with a Root cobra
// command whose PersistentPreRunE binds the configuration file.
type Cfg struct {
	*viper.Viper

	Root *cobra.Command
}

var options = []struct {
	name, usage, shorthand string
	defaultVal             interface{}
}{
	{name: "log_file", usage: "log_file is where the iteration log is written; \"-\" for stdout.", defaultVal: "-"},
	{name: "output_dir", usage: "output_dir is where costs.tab, atm_final.tab, obs_final.tab and, when err_ana is set, the matrix_*.tab, err_*.tab, atm_cont.tab and atm_res.tab files are written.", defaultVal: "."},
	{name: "verbose", usage: "verbose enables per-iteration logging to log_file.", defaultVal: true, shorthand: "v"},
}

// InitializeConfig builds the retrieval CLI's Cfg, registering the flags
// above on the Root command exactly the way inmaputil registers InMAP's.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "retrieval <ctl-file> <dirlist-file>",
		Short: "Run an infrared radiative-transfer optimal-estimation retrieval.",
		Long: `retrieval runs a Levenberg-Marquardt optimal-estimation retrieval for every
directory listed in dirlist-file, using the forward model and error
parameters configured in ctl-file. Each directory must contain an
atm_apr.tab and obs_meas.tab in the whitespace-separated column formats
read by retrievalutil.ReadAtm and retrievalutil.ReadObs.`,
		Args:              cobra.ExactArgs(2),
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}

	var set *pflag.FlagSet = cfg.Root.Flags()
	set.String("config", "", "config names a viper-readable configuration file (format chosen by its extension, e.g. .toml, .yaml, .json) overriding the flags below.")
	cfg.BindPFlag("config", set.Lookup("config"))

	for _, option := range options {
		switch v := option.defaultVal.(type) {
		case string:
			set.String(option.name, v, option.usage)
		case bool:
			if option.shorthand != "" {
				set.BoolP(option.name, option.shorthand, v, option.usage)
			} else {
				set.Bool(option.name, v, option.usage)
			}
		default:
			panic(fmt.Errorf("retrievalutil: invalid default type %T for option %s", v, option.name))
		}
		cfg.BindPFlag(option.name, set.Lookup(option.name))
	}

	cfg.Root.RunE = func(cmd *cobra.Command, args []string) error {
		return RunDirList(cfg, args[0], args[1])
	}

	return cfg
}

func setConfig(cfg *Cfg) error {
	if cfgPath := cfg.GetString("config"); cfgPath != "" {
		cfg.SetConfigFile(cfgPath)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("retrievalutil: problem reading configuration file: %w", err)
		}
	}
	return nil
}
