package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aita/btreedb/db"
	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var replCmd = &cobra.Command{
	Use:   "repl [file name]",
	Short: "Run statements against a database interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		var reg prometheus.Registerer
		if addr := viper.GetString("metrics.addr"); addr != "" {
			registry := prometheus.NewRegistry()
			srv := serveMetrics(addr, registry, log)
			defer srv.Shutdown(context.Background())
			reg = registry
		}

		tbl, err := openTable(args[0], log, reg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, tbl.Close())
		}()

		rl, err := readline.NewEx(&readline.Config{
			Prompt: "db > ",
			Stdout: cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		defer rl.Close()

		s := &session{table: tbl, out: cmd.OutOrStdout()}
		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			exit, err := s.exec(line)
			if err != nil || exit {
				return err
			}
		}
	},
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

// session executes REPL input against one table.
type session struct {
	table *db.Table
	out   io.Writer
}

// exec runs a single line of input and reports whether the session should
// end. Statement errors are printed; only engine failures that leave the
// table unusable are returned.
func (s *session) exec(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if strings.HasPrefix(line, ".") {
		return s.metaCommand(line)
	}

	stmt, err := prepareStatement(line)
	switch err {
	case nil:
	case errNegativeID:
		fmt.Fprintln(s.out, "Error: ID must be positive.")
		return false, nil
	case errStringTooLong:
		fmt.Fprintln(s.out, "Error: String too long.")
		return false, nil
	case errSyntax:
		fmt.Fprintln(s.out, "Syntax error. Could not parse statement.")
		return false, nil
	default:
		fmt.Fprintf(s.out, "Unrecognized keyword at start of '%s'\n", line)
		return false, nil
	}

	switch stmt.typ {
	case statementInsert:
		err := s.table.Insert(stmt.row)
		switch errors.Cause(err) {
		case nil:
		case db.ErrDuplicateKey:
			fmt.Fprintln(s.out, "Error: Duplicate key.")
			return false, nil
		case db.ErrTableFull:
			fmt.Fprintln(s.out, "Error: Table full.")
			return false, nil
		default:
			return false, err
		}
	case statementSelect:
		rows, err := s.table.Select()
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			fmt.Fprintln(s.out, row)
		}
	}
	fmt.Fprintln(s.out, "Executed successfully.")
	return false, nil
}

func (s *session) metaCommand(line string) (bool, error) {
	switch line {
	case ".exit":
		return true, nil
	case ".btree":
		fmt.Fprintln(s.out, "Tree:")
		return false, s.table.WriteTree(s.out)
	case ".constants":
		fmt.Fprintln(s.out, "Constants:")
		return false, db.WriteConstants(s.out)
	}
	fmt.Fprintf(s.out, "Unrecognized command '%s'.\n", line)
	return false, nil
}

func init() {
	replCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	viper.BindPFlag("metrics.addr", replCmd.Flags().Lookup("metrics-addr"))
	rootCmd.AddCommand(replCmd)
}
