package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/coopfs/internal/bytesize"
	"github.com/marmos91/coopfs/pkg/dirops"
	"github.com/marmos91/coopfs/pkg/metrics/prometheus"
)

var renameCmd = &cobra.Command{
	Use:   "rename <bucket-uri> <src-dir> <dst-dir>",
	Short: "Rename a directory tree inside a bucket",
	Long: `Rename every object under a source directory to the matching path
under a destination directory, as one journaled operation.

The rename first writes a journal to the bucket's lock directory, then
copies all items forward and deletes the sources. The destination
directory must not already exist. If the run crashes or is interrupted,
the journal stays behind and 'coopfs fsck' can later complete the rename
(--rollForward) or undo it (--rollBack).

Examples:
  # Move a photo archive
  coopfs rename s3://backups photos/2024/ archive/photos-2024/

  # Rename against a local MinIO endpoint configured in the config file
  coopfs rename s3://staging incoming/ processed/ --config ./minio.yaml`,
	Args: cobra.ExactArgs(3),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	st, _, err := openBucket(ctx, args[0], cfg)
	if err != nil {
		return err
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

	res, err := ops.Rename(ctx, args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Printf("Renamed '%s' to '%s' (%d objects, %s) in %s\n",
		args[1], args[2], res.Items, bytesize.ByteSize(res.Bytes), res.Duration.Round(time.Millisecond))
	return nil
}
