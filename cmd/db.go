package cmd

import (
	"fmt"

	"github.com/aita/btreedb/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

var createCmd = &cobra.Command{
	Use:   "create [file name]",
	Short: "Create a new database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		tbl, err := db.Create(args[0],
			db.WithLogger(log),
			db.WithMaxPages(viper.GetInt("db.max_pages")),
		)
		if err != nil {
			return err
		}
		return tbl.Close()
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert [file name] [id] [username] [email]",
	Short: "Insert a new row into a database",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		row, err := parseRow(args[1:])
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		tbl, err := openTable(args[0], log, nil)
		if err != nil {
			return err
		}
		err = tbl.Insert(row)
		return multierr.Append(err, tbl.Close())
	},
}

var selectCmd = &cobra.Command{
	Use:   "select [file name]",
	Short: "Print every row of a database in ID order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTable(args[0], func(tbl *db.Table) error {
			rows, err := tbl.Select()
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Fprintln(cmd.OutOrStdout(), row)
			}
			return nil
		})
	},
}

var btreeCmd = &cobra.Command{
	Use:   "btree [file name]",
	Short: "Print the structure of the B-tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTable(args[0], func(tbl *db.Table) error {
			return tbl.WriteTree(cmd.OutOrStdout())
		})
	},
}

var constantsCmd = &cobra.Command{
	Use:   "constants",
	Short: "Print the sizes that define the file format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.WriteConstants(cmd.OutOrStdout())
	},
}

func withTable(path string, fn func(tbl *db.Table) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	tbl, err := openTable(path, log, nil)
	if err != nil {
		return err
	}
	err = fn(tbl)
	return multierr.Append(err, tbl.Close())
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(btreeCmd)
	rootCmd.AddCommand(constantsCmd)
}
