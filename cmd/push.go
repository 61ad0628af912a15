package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/docfeed/core/model"
	"github.com/kilianp07/docfeed/infra/logger"
)

var (
	pushFile   string
	pushDelete bool
)

var pushCmd = &cobra.Command{
	Use:   "push [doc ids...]",
	Short: "Send document ids immediately, without batching",
	Long: "Send document ids given as arguments or read from --file " +
		"(JSON or one id per line, - for stdin) as feeds.",
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVarP(&pushFile, "file", "f", "", "read records from file")
	pushCmd.Flags().BoolVar(&pushDelete, "delete", false, "send argument ids as delete records")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	recs, err := collectRecords(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("no document ids given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("push-command").Errorf("service close: %v", err)
		}
	}()
	if err := svc.Push(ctx, recs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pushed %d records\n", len(recs))
	return nil
}

func collectRecords(stdin io.Reader, args []string) ([]model.Record, error) {
	var recs []model.Record
	for _, id := range args {
		r := model.NewRecord(id)
		if pushDelete {
			r.Action = model.ActionDelete
		}
		recs = append(recs, r)
	}
	if pushFile == "" {
		return recs, nil
	}
	var (
		data []byte
		err  error
	)
	if pushFile == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(pushFile)
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	parsed, err := model.ParseRecords(data)
	if err != nil {
		return nil, err
	}
	return append(recs, parsed...), nil
}
