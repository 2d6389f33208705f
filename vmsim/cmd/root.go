// Package cmd implements the vmsim command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix prefixes the environment variables that override flag defaults.
// The flag --tlb-entries, for example, reads VMSIM_TLB_ENTRIES.
const envPrefix = "VMSIM_"

var rootCmd = &cobra.Command{
	Use:   "vmsim",
	Short: "vmsim simulates demand-paged virtual memory address translation.",
	Long: `vmsim reads a trace of logical addresses and translates each one ` +
		`through a TLB and a page table, paging in from a backing store on ` +
		`demand. Flags can also be set with VMSIM_* environment variables ` +
		`or a .env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyEnv(cmd.Flags())
	},
}

// Execute runs the root command.
func Execute() {
	err := loadDotEnv(".env")
	if err != nil {
		log.Print(err)
		atexit.Exit(1)
	}

	err = rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadDotEnv loads environment variables from the file, if it exists.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// envName returns the environment variable that overrides a flag.
func envName(flagName string) string {
	return envPrefix +
		strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// applyEnv sets every flag not given on the command line from its
// environment variable, if present.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		setErr := f.Value.Set(value)
		if setErr != nil {
			err = fmt.Errorf("%s: invalid value %q for --%s: %w",
				envName(f.Name), value, f.Name, setErr)
		}
	})

	return err
}
