package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/trace"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print rows of a recorded simulation.",
	Long: "`query --record vmsim_xxx.sqlite3 --table vm_faults` prints the " +
		"rows of a recorded table, one JSON object per line. Without " +
		"--table, it lists the tables that can be queried.",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("record")
		table, _ := cmd.Flags().GetString("table")

		params := datarecording.QueryParams{}
		params.Where, _ = cmd.Flags().GetString("where")
		params.OrderBy, _ = cmd.Flags().GetString("order-by")
		params.Limit, _ = cmd.Flags().GetInt("limit")
		params.Offset, _ = cmd.Flags().GetInt("offset")

		if file == "" {
			return fmt.Errorf("--record is required")
		}

		reader, err := datarecording.NewReader(file)
		if err != nil {
			return err
		}
		defer reader.Close()

		mapRecordedTables(reader)

		out := cmd.OutOrStdout()

		if table == "" {
			for _, t := range reader.ListTables() {
				fmt.Fprintln(out, t)
			}

			return nil
		}

		rows, total, err := reader.Query(cmd.Context(), table, params)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(out)
		for _, row := range rows {
			err = enc.Encode(row)
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d rows\n", len(rows), total)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("record", "", "Recording file to read.")
	queryCmd.Flags().String("table", "", "Table to print.")
	queryCmd.Flags().String("where", "",
		"Filter without the WHERE keyword, for example \"Page = 3\".")
	queryCmd.Flags().String("order-by", "",
		"Sort order without the ORDER BY keywords, for example \"Seq DESC\".")
	queryCmd.Flags().Int("limit", 0, "Maximum number of rows, 0 for all.")
	queryCmd.Flags().Int("offset", 0, "Number of rows to skip.")
}

func mapRecordedTables(reader datarecording.DataReader) {
	reader.MapTable(trace.AccessTable, trace.AccessEntry{})
	reader.MapTable(trace.FaultTable, trace.FaultEntry{})
	reader.MapTable(trace.WriteBackTable, trace.WriteBackEntry{})
	reader.MapTable(datarecording.RunInfoTable, datarecording.RunInfo{})
}
