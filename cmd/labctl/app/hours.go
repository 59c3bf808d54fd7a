package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/internal/service"
)

func newHoursCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "查看或初始化实验室开放时间",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "输出当前一周开放时间",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			svc := service.NewOperatingHoursService(repository.NewRepository(rt.db), rt.logger)
			week, err := svc.ListWeek(cmd.Context())
			if err != nil {
				return err
			}
			printWeek(cmd, week)
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "按指定星期写入开放时间，其余日期设为关闭",
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetStringSlice("days")
			open, _ := cmd.Flags().GetString("open")
			closeAt, _ := cmd.Flags().GetString("close")

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			if open == "" {
				open = rt.cfg.Lab.DefaultOpen
			}
			if closeAt == "" {
				closeAt = rt.cfg.Lab.DefaultClose
			}
			req, err := buildSeedWeek(days, open, closeAt)
			if err != nil {
				return err
			}

			svc := service.NewOperatingHoursService(repository.NewRepository(rt.db), rt.logger)
			week, err := svc.UpdateWeek(cmd.Context(), req, "")
			if err != nil {
				return err
			}
			printWeek(cmd, week)
			return nil
		},
	}
	seed.Flags().StringSlice("days", []string{"monday", "tuesday", "wednesday", "thursday", "friday"}, "开放的星期")
	seed.Flags().String("open", "", "开放时间 HH:MM（默认取 lab.default_open）")
	seed.Flags().String("close", "", "关闭时间 HH:MM（默认取 lab.default_close）")

	for _, c := range []*cobra.Command{show, seed} {
		c.Flags().Bool("json", false, "以 JSON 输出")
	}
	cmd.AddCommand(show, seed)
	return cmd
}

// buildSeedWeek 生成完整一周的开放时间请求
func buildSeedWeek(days []string, open, closeAt string) (*dto.UpdateOperatingHoursRequest, error) {
	openDays := make(map[string]bool, len(days))
	for _, d := range days {
		wd, ok := model.ParseWeekday(d)
		if !ok {
			return nil, fmt.Errorf("无效的星期 %q", d)
		}
		openDays[model.WeekdayName(wd)] = true
	}

	req := &dto.UpdateOperatingHoursRequest{Days: make([]dto.OperatingWindowItem, 0, 7)}
	for _, wd := range model.WeekOrder {
		name := model.WeekdayName(wd)
		item := dto.OperatingWindowItem{Day: name}
		if openDays[name] {
			item.IsOpen, item.OpenTime, item.CloseTime = true, open, closeAt
		}
		req.Days = append(req.Days, item)
	}
	return req, nil
}

func printWeek(cmd *cobra.Command, week *dto.OperatingHoursResponse) {
	if f, _ := cmd.Flags().GetBool("json"); f {
		out, _ := json.MarshalIndent(week, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return
	}
	for _, d := range week.Days {
		if d.IsOpen {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s-%s\n", d.Day, d.OpenTime, d.CloseTime)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s closed\n", d.Day)
		}
	}
}
