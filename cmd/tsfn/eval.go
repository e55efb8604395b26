package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soltixdb/soltix-transform/internal/grpc"
	"github.com/soltixdb/soltix-transform/internal/models"
	"github.com/soltixdb/soltix-transform/internal/services"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval FUNCTION [ARGS...]",
		Short: "Evaluate a function over the series in a file",
		Example: `  tsfn eval MOVING 3 avg -f cpu.yaml
  cat cpu.yaml | tsfn eval DERIVATIVE -f -`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEval,
	}
	cmd.Flags().StringP("file", "f", "", "Series file (YAML or JSON, - for stdin)")
	cmd.Flags().String("start", "", "Range start: epoch ms or expression such as start+1h")
	cmd.Flags().String("end", "", "Range end: epoch ms or expression such as end-30m")
	cmd.Flags().Bool("compact", false, "Print JSON on one line")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	in, err := readSeriesFile(file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	req := &models.EvaluateRequest{
		Function: strings.ToUpper(args[0]),
		Args:     args[1:],
		Series:   in,
	}
	if err := resolveRange(cmd, req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	resp, err := evaluate(cmd, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

// resolveRange turns --start and --end into epoch milliseconds. Expressions
// are relative to the span of the series in the file.
func resolveRange(cmd *cobra.Command, req *models.EvaluateRequest) error {
	startExpr, _ := cmd.Flags().GetString("start")
	endExpr, _ := cmd.Flags().GetString("end")
	if startExpr == "" && endExpr == "" {
		return nil
	}

	spanReq := models.EvaluateRequest{Function: req.Function, Series: req.Series}
	if err := spanReq.Validate(); err != nil {
		return err
	}
	req.Start, req.End = spanReq.Start, spanReq.End

	var err error
	if startExpr != "" {
		if req.Start, err = utils.ParseRelativeTime(startExpr, spanReq.Start, spanReq.End); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}
	if endExpr != "" {
		if req.End, err = utils.ParseRelativeTime(endExpr, spanReq.Start, spanReq.End); err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}
	return nil
}

func evaluate(cmd *cobra.Command, req *models.EvaluateRequest) (*models.EvaluateResponse, error) {
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		client, err := grpc.Dial(server)
		if err != nil {
			return nil, err
		}
		defer func() { _ = client.Close() }()
		return client.Evaluate(cmd.Context(), req)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	svc := services.NewTransformService(newLogger(cmd), cfg.Engine, nil, nil)
	return svc.Evaluate(cmd.Context(), req)
}
