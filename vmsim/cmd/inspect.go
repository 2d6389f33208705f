package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump a page of a backing store.",
	Long: "`inspect --store BACKING_STORE.bin --page 3` prints a hex dump " +
		"of one page of the backing store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("store")
		numPages, _ := cmd.Flags().GetUint64("pages")
		pageSize, _ := cmd.Flags().GetUint64("page-size")
		page, _ := cmd.Flags().GetUint64("page")

		if numPages == 0 || pageSize == 0 {
			return fmt.Errorf("--pages and --page-size must be positive")
		}

		store, err := backingstore.Open(path, pageSize, numPages)
		if err != nil {
			return err
		}
		defer store.Close()

		buf := make([]byte, pageSize)

		err = store.ReadPage(page, buf)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Page %d at offset 0x%x:\n",
			page, page*pageSize)
		fmt.Fprint(cmd.OutOrStdout(), hex.Dump(buf))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("store", "BACKING_STORE.bin",
		"Backing store file to read.")
	inspectCmd.Flags().Uint64("pages", 256, "Number of pages in the store.")
	inspectCmd.Flags().Uint64("page-size", 256, "Number of bytes per page.")
	inspectCmd.Flags().Uint64("page", 0, "Page to dump.")
}
