package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/clock"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "立即结束所有已过计划结束时间的进行中会话",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			loc, err := rt.cfg.Lab.Location()
			if err != nil {
				return fmt.Errorf("实验室时区无效: %w", err)
			}
			clk := clock.Real{Loc: loc}

			repo := repository.NewRepository(rt.db)
			sessions := service.NewSessionService(rt.cfg.Lab, repo, service.NewIdentityResolver(repo), clk, nil, rt.logger)

			result, err := sessions.SweepOverdue(cmd.Context(), clk.Now())
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
