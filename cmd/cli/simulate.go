package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"battery-eval/internal/config"
	"battery-eval/internal/data"
	"battery-eval/internal/logging"
	"battery-eval/internal/model"
	"battery-eval/internal/policy"
	"battery-eval/internal/sim"
)

func newSimulateCmd() *cobra.Command {
	var (
		start     int
		steps     int
		soc       float64
		className string
		params    []string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one episode over a chosen window with step-by-step output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log := logging.Setup(cfg.Log)

			if className == "" {
				className = cfg.Policy.ClassName
			}
			policyParams, err := parseParams(params)
			if err != nil {
				return err
			}
			if policyParams == nil {
				policyParams = cfg.Policy.Parameters
			}
			pol, err := policy.Build(className, policyParams)
			if err != nil {
				return err
			}

			dataset, err := data.LoadCSV(cfg.Data)
			if err != nil {
				return err
			}
			if steps == 0 {
				steps = dataset.Len() - start
			}

			env, err := sim.New(dataset, cfg.ToBatterySpec(), cfg.ToSimOptions())
			if err != nil {
				return err
			}
			if err := env.Reset(start, soc, steps); err != nil {
				return err
			}

			for {
				rec, done, err := env.Step(pol)
				if err != nil {
					return fmt.Errorf("step %d: %w", len(env.Record()), err)
				}
				log.WithFields(map[string]any{
					"step":   len(env.Record()) - 1,
					"price":  rec.Price,
					"action": string(model.ActionFromPowerKW(rec.RealizedKW)),
					"kw":     rec.RealizedKW,
					"soc":    rec.SoCPercent,
					"profit": rec.Profit,
				}).Info("dispatch")
				if done {
					break
				}
			}

			fmt.Printf("Steps=%d Total profit=$%.2f Final SoC=%.1f%%\n",
				len(env.Record()), env.TotalProfit(), env.SoCPercent())

			if outPath != "" {
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return err
				}
				if err := sim.WriteEpisodeCSV(outPath, env.Record()); err != nil {
					return err
				}
				fmt.Printf("Wrote %d rows to %s\n", len(env.Record()), outPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "Start step in the market data")
	cmd.Flags().IntVar(&steps, "steps", 0, "Episode length (0 = to end of data)")
	cmd.Flags().Float64Var(&soc, "soc", 50, "Initial state of charge (percent)")
	cmd.Flags().StringVar(&className, "class", "", "Policy class name (overrides config)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Policy parameters as key=value pairs")
	cmd.Flags().StringVar(&outPath, "out", "", "Optional episode CSV path")
	return cmd
}
