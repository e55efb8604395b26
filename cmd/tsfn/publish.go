package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soltixdb/soltix-transform/internal/ingest"
	"github.com/soltixdb/soltix-transform/internal/models"
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the series in a file to the ingest queue",
		Args:  cobra.NoArgs,
		RunE:  runPublish,
	}
	cmd.Flags().StringP("file", "f", "", "Series file (YAML or JSON, - for stdin)")
	cmd.Flags().String("subject", "", "Subject to publish on (defaults to ingest.subject)")
	cmd.Flags().Int("compress-above", 4096, "Snappy-compress messages larger than this many bytes (-1 disables)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runPublish(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	payloads, err := readSeriesFile(file, cmd.InOrStdin())
	if err != nil {
		return err
	}
	in, err := models.ToSeriesList(payloads)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	subject, _ := cmd.Flags().GetString("subject")
	if subject == "" {
		subject = cfg.Ingest.Subject
	}
	compressAbove, _ := cmd.Flags().GetInt("compress-above")

	transport, err := ingest.New(cfg.Ingest, newLogger(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = transport.Close() }()

	if err := ingest.PublishSeries(cmd.Context(), transport, subject, in, compressAbove); err != nil {
		return err
	}

	points := 0
	for _, s := range in {
		points += s.Len()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %d series (%d points) to %s\n", len(in), points, subject)
	return nil
}
