// move0 assembles Move scripts over a catalogue of argument signatures, runs
// them on the VM and proves that each one is accepted and aborts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/move0/assembler"
	"github.com/colorfulnotion/move0/codec"
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/guest"
	"github.com/colorfulnotion/move0/harness"
	"github.com/colorfulnotion/move0/host"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/storage"
	"github.com/colorfulnotion/move0/types"
	"github.com/colorfulnotion/move0/vm"
	"github.com/colorfulnotion/move0/zkvm"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := DefaultConfig()
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "move0",
		Short:        "Assemble, run and prove Move scripts that abort",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				fileCfg, err := ReadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = mergeFlags(cmd, fileCfg, cfg)
			}
			lvl, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(cmd.ErrOrStderr(), lvl, false)))
			log.EnableModules(cfg.Debug)
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "JSON config file")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error, crit)")
	pf.StringVar(&cfg.Debug, "debug", cfg.Debug, "comma separated modules to trace, e.g. vm_mod,zkvm_mod")
	pf.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed for generated account addresses")
	pf.IntVar(&cfg.Case, "case", cfg.Case, "fixture index; negative selects the last case")

	rootCmd.AddCommand(
		newCasesCmd(&cfg),
		newRunCmd(&cfg),
		newDescribeCmd(&cfg),
		newProveCmd(&cfg),
		newEncodeCmd(&cfg),
		newGuestCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "move0 %s (%s)\n", Version, Commit)
			},
		},
	)
	return rootCmd
}

// mergeFlags copies the flags set on the command line over the values read
// from the config file.
func mergeFlags(cmd *cobra.Command, fileCfg, flagCfg Config) Config {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		fileCfg.LogLevel = flagCfg.LogLevel
	}
	if flags.Changed("debug") {
		fileCfg.Debug = flagCfg.Debug
	}
	if flags.Changed("seed") {
		fileCfg.Seed = flagCfg.Seed
	}
	if flags.Changed("case") {
		fileCfg.Case = flagCfg.Case
	}
	if flags.Changed("store") {
		fileCfg.Store = flagCfg.Store
	}
	if flags.Changed("otlp-endpoint") {
		fileCfg.OTLPEndpoint = flagCfg.OTLPEndpoint
	}
	return fileCfg
}

func fixtures(cfg *Config) []harness.Case {
	return harness.GoodSignaturesAndArguments(assembler.NewSeededAddressGenerator(cfg.Seed))
}

func selectedCase(cfg *Config) (harness.Case, error) {
	return harness.SelectCase(fixtures(cfg), cfg.Case)
}

func newCasesCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "List the fixture signatures, optionally storing their modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cases := fixtures(cfg)
			for i, c := range cases {
				fmt.Fprintf(out, "%2d  %-44s %s\n", i, c.Name, c.Signature)
			}
			if cfg.Store == "" {
				return nil
			}
			return storeCases(out, cfg, cases)
		},
	}
	cmd.Flags().StringVar(&cfg.Store, "store", cfg.Store, "LevelDB directory to write one module per case into")
	return cmd
}

// storeCases publishes a module per case, then runs every case against the
// persistent store.
func storeCases(out io.Writer, cfg *Config, cases []harness.Case) error {
	store, err := storage.NewPersistentStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	moveVM, err := vm.NewMoveVM(nil)
	if err != nil {
		return err
	}
	session := moveVM.NewSession(store)
	asm := assembler.New(assembler.NewSeededAddressGenerator(cfg.Seed))
	for _, c := range cases {
		module, name := asm.MakeScriptFunction(c.Signature)
		if err := store.AddModule(module); err != nil {
			return err
		}
		args, err := c.SerializedArgs()
		if err != nil {
			return err
		}
		// the entry function is loaded back out of the store
		verr := session.ExecuteEntryFunction(module.SelfID(), name, nil, args, vm.UnmeteredGasMeter{})
		o := harness.Check(verr, harness.ExpectedStatus)
		if !o.Passed() {
			return fmt.Errorf("%s: %w", c.Name, o.Err)
		}
		log.Debug(log.HarnessMonitoring, "entry function executed", "module", module.SelfID().String(), "case", c.Name, "outcome", o.String())
	}
	ids, err := store.ModuleIDs()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stored %d modules in %s\n", len(ids), cfg.Store)
	for _, id := range ids {
		fmt.Fprintf(out, "  %s\n", id)
	}
	return nil
}

func newRunCmd(cfg *Config) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute fixtures on the VM without proving",
		RunE: func(cmd *cobra.Command, args []string) error {
			cases := fixtures(cfg)
			if !all {
				c, err := harness.SelectCase(cases, cfg.Case)
				if err != nil {
					return err
				}
				cases = []harness.Case{c}
			}
			failed := 0
			for _, c := range cases {
				o := c.Run()
				fmt.Fprintf(cmd.OutOrStdout(), "%-44s %s\n", c.Name, o)
				if !o.Passed() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d cases failed", failed, len(cases))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "run every fixture")
	return cmd
}

func newDescribeCmd(cfg *Config) *cobra.Command {
	var module bool
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the assembled script (or module) of a fixture as a tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := selectedCase(cfg)
			if err != nil {
				return err
			}
			if module {
				m, _ := assembler.New(assembler.NewSeededAddressGenerator(cfg.Seed)).MakeScriptFunction(c.Signature)
				fmt.Fprint(cmd.OutOrStdout(), m.Dump().String())
				return nil
			}
			script, err := fileformat.DeserializeScript(c.Script())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), script.Dump().String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&module, "module", false, "describe the module form of the signature")
	return cmd
}

func newProveCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Prove that a fixture script is accepted and aborts",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			shutdown, err := setupTracing(ctx, cfg.OTLPEndpoint)
			if err != nil {
				return err
			}
			defer func() {
				if serr := shutdown(ctx); serr != nil && err == nil {
					err = serr
				}
			}()

			c, err := selectedCase(cfg)
			if err != nil {
				return err
			}
			scriptArgs, err := c.SerializedArgs()
			if err != nil {
				return err
			}
			log.Info(log.HostMonitoring, "proving", "case", c.Name, "image", guest.ImageID.String())
			ok, err := host.ProveAndVerify(ctx, zkvm.DefaultProver(), c.Script(), scriptArgs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: verified=%t\n", c.Name, ok)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP/HTTP collector host:port for traces")
	return cmd
}

func newEncodeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "encode",
		Short: "Write a fixture's script and arguments as guest input frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := selectedCase(cfg)
			if err != nil {
				return err
			}
			scriptArgs, err := c.SerializedArgs()
			if err != nil {
				return err
			}
			enc := codec.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(c.Script()); err != nil {
				return err
			}
			return enc.Encode(scriptArgs)
		},
	}
}

// streamEnv feeds the guest from a stream of input frames.
type streamEnv struct {
	dec     *codec.Decoder
	journal []byte
	cycles  uint64
}

func (e *streamEnv) Read(dst any) error { return e.dec.Decode(dst) }

func (e *streamEnv) Commit(v any) error {
	blob, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	e.journal = append(e.journal, blob...)
	return nil
}

func (e *streamEnv) Cycles(n uint64) { e.cycles += n }

func newGuestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Run the guest over input frames read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := &streamEnv{dec: codec.NewDecoder(cmd.InOrStdin())}
			err := guest.Main(env)
			var status types.StatusCode
			if len(env.journal) > 0 {
				if derr := zkvm.Journal(env.journal).Decode(&status); derr != nil {
					return derr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "status=%s cycles=%d\n", status, env.cycles)
			}
			return err
		},
	}
}
