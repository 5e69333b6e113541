package commands

import (
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marmos91/coopfs/internal/bytesize"
	"github.com/marmos91/coopfs/internal/cli/prompt"
	"github.com/marmos91/coopfs/pkg/dirops"
	"github.com/marmos91/coopfs/pkg/metrics/prometheus"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <bucket-uri> <dir>",
	Short: "Delete a directory tree inside a bucket",
	Long: `Delete every object under a directory as one journaled operation.

The delete first writes a journal listing everything it will remove,
then deletes the items children first. If the run crashes or is
interrupted, the journal stays behind and 'coopfs fsck --rollForward'
finishes the remaining deletes.

This action is irreversible. You will be prompted for confirmation
unless --yes is specified.

Examples:
  # Delete a directory with confirmation
  coopfs delete s3://backups photos/2019/

  # Delete without confirmation (scripts, cron)
  coopfs delete s3://backups tmp/scratch/ --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	st, uri, err := openBucket(ctx, args[0], cfg)
	if err != nil {
		return err
	}

	if !deleteYes {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("delete is irreversible and needs confirmation: re-run with --yes")
		}
		confirmed, err := prompt.Confirm(fmt.Sprintf("Delete '%s' from %s?", args[1], uri), false)
		if err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("\nAborted.")
				return nil
			}
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	stopMetrics := startMetrics(ctx, cfg)
	defer stopMetrics()

	ops, err := dirops.New(dirops.Config{
		Store:   st,
		LockDir: cfg.Lock.Dir,
		Renewal: renewalConfig(cfg),
		Metrics: prometheus.NewOperationMetrics(),
	})
	if err != nil {
		return err
	}

	res, err := ops.Delete(ctx, args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Deleted '%s' (%d objects, %s) in %s\n",
		args[1], res.Items, bytesize.ByteSize(res.Bytes), res.Duration.Round(time.Millisecond))
	return nil
}
