package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"battery-eval/internal/config"
	"battery-eval/internal/data"
	"battery-eval/internal/eval"
	"battery-eval/internal/logging"
	"battery-eval/internal/policy"
	"battery-eval/internal/store"
	"battery-eval/internal/trial"
)

func newEvaluateCmd() *cobra.Command {
	var (
		trials      int
		seed        int64
		parallelism int
		className   string
		params      []string
		outPath     string
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run N randomized trials and write the submission result",
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
			runner, err := trial.NewRunner(dataset, cfg.ToBatterySpec(), cfg.ToSimOptions(), cfg.ToTrialConfig())
			if err != nil {
				return err
			}

			if trials == 0 {
				trials = cfg.Eval.NumRuns
			}
			if seed == 0 {
				seed = cfg.Eval.Seed
			}
			if parallelism == 0 {
				parallelism = cfg.Eval.Parallelism
			}

			harness := &eval.Harness{
				Runner:       runner,
				Log:          logrus.NewEntry(log),
				Seed:         seed,
				Parallelism:  parallelism,
				TrialTimeout: cfg.TrialTimeout(),
				Team:         cfg.Team,
				CommitHash:   cfg.CommitHash,
			}

			res := harness.Evaluate(cmd.Context(), pol, trials, policyParams)

			if outPath == "" {
				outPath = filepath.Join("results", fmt.Sprintf("%s_%s.json", time.Now().Format("20060102_150405"), className))
			}
			if err := writeResult(outPath, res); err != nil {
				return err
			}
			log.WithField("path", outPath).Info("result written")

			if save {
				if cfg.Store.Path == "" {
					return fmt.Errorf("--save requires store.path in %s", cfgPath)
				}
				st, err := store.Open(cfg.Store.Path)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()
				if err := st.Save(res); err != nil {
					return fmt.Errorf("save submission: %w", err)
				}
				log.WithFields(logrus.Fields{"team": res.Team, "commit": res.CommitHash}).Info("submission saved")
			}

			if res.Status == eval.StatusSuccess {
				fmt.Printf("Average profit ($): %.2f ± %.2f (%d/%d trials)\n",
					*res.MeanProfit, *res.StdProfit, res.NumRuns-res.FailedRuns, res.NumRuns)
			} else {
				fmt.Printf("Evaluation failed: %s\n", *res.Error)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&trials, "trials", 0, "Number of trials (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for randomness (0 = nondeterministic)")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "Concurrent trial workers")
	cmd.Flags().StringVar(&className, "class", "", "Policy class name (overrides config)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Policy parameters as key=value pairs")
	cmd.Flags().StringVar(&outPath, "out", "", "Output JSON path")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the result to the submission store")
	return cmd
}

func writeResult(path string, res *eval.SubmissionResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := res.MarshalIndent()
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
