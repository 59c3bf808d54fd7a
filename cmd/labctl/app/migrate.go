package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seanzed08/SmartLab/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移，配合 up / down 子命令使用",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		RunE: func(_ *cobra.Command, _ []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			sqlDB, err := rt.db.DB()
			if err != nil {
				return err
			}
			return database.RunMigrations(sqlDB, rt.logger)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "回滚指定步数的迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, err := cmd.Flags().GetInt("num-steps")
			if err != nil {
				return err
			}
			if steps <= 0 {
				return fmt.Errorf("num-steps 必须大于 0")
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			sqlDB, err := rt.db.DB()
			if err != nil {
				return err
			}
			return database.RollbackMigrations(sqlDB, steps, rt.logger)
		},
	}
	down.Flags().IntP("num-steps", "n", 1, "回滚步数")

	cmd.AddCommand(up, down)
	return cmd
}
