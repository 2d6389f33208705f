package cmd

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/spf13/cobra"
)

var mkstoreCmd = &cobra.Command{
	Use:   "mkstore",
	Short: "Create a backing store file.",
	Long: "`mkstore --out BACKING_STORE.bin` writes a backing store of " +
		"--pages pages of --page-size bytes. The content is zero, random " +
		"with a fixed seed, or a pattern where byte i of page p is p+i.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		numPages, _ := cmd.Flags().GetUint64("pages")
		pageSize, _ := cmd.Flags().GetUint64("page-size")
		fillName, _ := cmd.Flags().GetString("fill")
		seed, _ := cmd.Flags().GetInt64("seed")

		if numPages == 0 || pageSize == 0 {
			return fmt.Errorf("--pages and --page-size must be positive")
		}

		fill, err := pageFiller(fillName, seed)
		if err != nil {
			return err
		}

		err = backingstore.Create(out, pageSize, numPages, fill)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s with %d pages of %d bytes\n",
			out, numPages, pageSize)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mkstoreCmd)

	mkstoreCmd.Flags().String("out", "BACKING_STORE.bin",
		"File to create. An existing file is never overwritten.")
	mkstoreCmd.Flags().Uint64("pages", 256, "Number of pages.")
	mkstoreCmd.Flags().Uint64("page-size", 256, "Number of bytes per page.")
	mkstoreCmd.Flags().String("fill", "random",
		"Page content, one of zero, random, or pattern.")
	mkstoreCmd.Flags().Int64("seed", 1, "Seed of the random fill.")
}

func pageFiller(name string, seed int64) (func(uint64, []byte), error) {
	switch name {
	case "zero":
		return nil, nil
	case "random":
		rng := rand.New(rand.NewSource(seed))

		return func(_ uint64, buf []byte) {
			for i := range buf {
				buf[i] = byte(rng.Intn(256))
			}
		}, nil
	case "pattern":
		return func(page uint64, buf []byte) {
			for i := range buf {
				buf[i] = byte(page + uint64(i))
			}
		}, nil
	}

	return nil, fmt.Errorf("unknown fill %q, want zero, random, or pattern",
		name)
}
